package reconciliation

import (
	"fmt"
	"sync"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// Registry maps object types to their synchronizer
type Registry struct {
	mu     sync.RWMutex
	byType map[reconciliation.ObjectType]*Synchronizer
	order  []reconciliation.ObjectType
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reconciliation.ObjectType]*Synchronizer),
	}
}

// Register adds a synchronizer. Each type can be registered once.
func (r *Registry) Register(s *Synchronizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := s.Type()
	if _, exists := r.byType[t]; exists {
		return fmt.Errorf("%w: %s", reconciliation.ErrSynchronizerRegistered, t)
	}
	r.byType[t] = s
	r.order = append(r.order, t)
	return nil
}

// Get returns the synchronizer of a type
func (r *Registry) Get(t reconciliation.ObjectType) (*Synchronizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reconciliation.ErrSynchronizerNotRegistered, t)
	}
	return s, nil
}

// Types returns the registered types in registration order
func (r *Registry) Types() []reconciliation.ObjectType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]reconciliation.ObjectType(nil), r.order...)
}

// All returns the registered synchronizers in registration order
func (r *Registry) All() []*Synchronizer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Synchronizer, 0, len(r.order))
	for _, t := range r.order {
		all = append(all, r.byType[t])
	}
	return all
}
