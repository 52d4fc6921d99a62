package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// MemoryPayloadArchive keeps payloads in process memory.
// Used for local development when no bucket is configured.
type MemoryPayloadArchive struct {
	mu       sync.RWMutex
	payloads map[string][]byte
	// BaseURL prefixes the links returned by PayloadURL
	BaseURL string
}

// NewMemoryPayloadArchive creates an empty archive
func NewMemoryPayloadArchive() *MemoryPayloadArchive {
	return &MemoryPayloadArchive{
		payloads: make(map[string][]byte),
		BaseURL:  "memory://payloads",
	}
}

// Store keeps a copy of the payload
func (m *MemoryPayloadArchive) Store(_ context.Context, key string, payload []byte) error {
	if key == "" {
		return ErrMissingKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[key] = append([]byte(nil), payload...)
	return nil
}

// Load returns a stored payload
func (m *MemoryPayloadArchive) Load(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payloads[key]
	return p, ok
}

// PayloadURL returns a pseudo link for a stored payload
func (m *MemoryPayloadArchive) PayloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrMissingKey
	}
	if _, ok := m.Load(key); !ok {
		return "", time.Time{}, fmt.Errorf("payload %s: %w", key, reconciliation.ErrRecordNotFound)
	}
	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	return m.BaseURL + "/" + key, time.Now().Add(expiresIn), nil
}

var (
	_ reconciliation.PayloadArchive = (*MemoryPayloadArchive)(nil)
	_ PayloadLocator                = (*MemoryPayloadArchive)(nil)
)
