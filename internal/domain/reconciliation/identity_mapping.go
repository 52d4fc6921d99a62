package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MappingKey identifies at most one IdentityMapping
type MappingKey struct {
	Type           ObjectType
	SourceService  Service
	TargetService  Service
	SourceObjectID string
}

// NewMappingKey creates a mapping key
func NewMappingKey(t ObjectType, source, target Service, sourceObjectID string) MappingKey {
	return MappingKey{
		Type:           t,
		SourceService:  source,
		TargetService:  target,
		SourceObjectID: sourceObjectID,
	}
}

// Validate checks that every component of the key is present and known
func (k MappingKey) Validate() error {
	if !k.Type.IsValid() {
		return fmt.Errorf("%w: unknown object type %q", ErrInvalidMapping, k.Type)
	}
	if !k.SourceService.IsValid() || !k.TargetService.IsValid() {
		return fmt.Errorf("%w: unknown service", ErrInvalidMapping)
	}
	if k.SourceService == k.TargetService {
		return fmt.Errorf("%w: source and target service must differ", ErrInvalidMapping)
	}
	if strings.TrimSpace(k.SourceObjectID) == "" {
		return fmt.Errorf("%w: source object id is required", ErrInvalidMapping)
	}
	return nil
}

// String returns a readable form used in logs and error messages
func (k MappingKey) String() string {
	return fmt.Sprintf("%s %s->%s #%s", k.Type, k.SourceService, k.TargetService, k.SourceObjectID)
}

// IdentityMapping correlates a source object with the counterpart created
// for it in the target system. Its existence is the authoritative signal
// that the create already succeeded. Mappings are never mutated.
type IdentityMapping struct {
	MappingKey
	TargetObjectID string
	CreatedAt      time.Time
}

// NewIdentityMapping creates a validated identity mapping
func NewIdentityMapping(key MappingKey, targetObjectID string) (*IdentityMapping, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(targetObjectID) == "" {
		return nil, fmt.Errorf("%w: target object id is required", ErrInvalidMapping)
	}
	return &IdentityMapping{
		MappingKey:     key,
		TargetObjectID: targetObjectID,
		CreatedAt:      time.Now(),
	}, nil
}

// IdentityMappingFilter narrows mapping listings
type IdentityMappingFilter struct {
	Type           ObjectType
	SourceService  Service
	TargetService  Service
	SourceObjectID string
	TargetObjectID string
	Page           int
	PageSize       int
}

// ---------------------------------------------------------------------------
// Repository interfaces
// ---------------------------------------------------------------------------

// IdentityMappingReader provides read access to identity mappings
type IdentityMappingReader interface {
	// Get returns the target object id for the key and whether it exists
	Get(ctx context.Context, key MappingKey) (string, bool, error)

	// List returns mappings matching the filter
	List(ctx context.Context, filter IdentityMappingFilter) ([]IdentityMapping, error)

	// Count returns the number of mappings matching the filter
	Count(ctx context.Context, filter IdentityMappingFilter) (int64, error)
}

// IdentityMappingWriter provides write access to identity mappings
type IdentityMappingWriter interface {
	// Put stores a new mapping. It fails with ErrAlreadyMapped when a mapping
	// for the same key exists; the write is conditional, never an overwrite.
	Put(ctx context.Context, mapping *IdentityMapping) error

	// Delete removes the mapping for the key
	Delete(ctx context.Context, key MappingKey) error
}

// IdentityMappingRepository combines read and write access
type IdentityMappingRepository interface {
	IdentityMappingReader
	IdentityMappingWriter
}
