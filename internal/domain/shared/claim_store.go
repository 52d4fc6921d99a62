package shared

import (
	"context"
	"time"
)

// ClaimStore holds short-lived exclusive claims used to narrow the window in
// which two triggers could act on the same object at once.
type ClaimStore interface {
	// Claim takes the key for ttl.
	// Returns true if the claim was newly taken, false if someone else holds it
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim taken with Claim
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// ClaimConfig holds configuration for create claims
type ClaimConfig struct {
	// TTL bounds how long a crashed holder can block the key
	// Default: 2 minutes
	TTL time.Duration
}

// DefaultClaimConfig returns the default claim configuration
func DefaultClaimConfig() ClaimConfig {
	return ClaimConfig{
		TTL: 2 * time.Minute,
	}
}
