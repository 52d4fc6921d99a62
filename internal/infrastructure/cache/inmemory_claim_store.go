package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/syncengine/internal/domain/shared"
)

// InMemoryClaimStore implements ClaimStore with a map.
// Claims are only visible inside one process.
type InMemoryClaimStore struct {
	mu        sync.Mutex
	claims    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryClaimStore creates a new in-memory claim store and starts
// the background cleanup of expired claims
func NewInMemoryClaimStore() *InMemoryClaimStore {
	store := &InMemoryClaimStore{
		claims:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Claim takes the key for ttl unless an unexpired claim exists
func (s *InMemoryClaimStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.claims[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

// Release drops a claim
func (s *InMemoryClaimStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryClaimStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryClaimStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryClaimStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, expiresAt := range s.claims {
		if !now.Before(expiresAt) {
			delete(s.claims, key)
		}
	}
}

// Size returns the number of stored claims, expired or not
func (s *InMemoryClaimStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

var _ shared.ClaimStore = (*InMemoryClaimStore)(nil)
