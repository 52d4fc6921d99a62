package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/shared"
	"github.com/erp/syncengine/internal/infrastructure/config"
)

// NewClaimStore returns the create-claim store for cfg. A disabled Redis gives
// an in-memory store, as does an unreachable one unless cfg.Required is set.
// In-memory claims only guard creates within this process.
func NewClaimStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (shared.ClaimStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		log.Info("Redis disabled, create claims are held in memory")
		return NewInMemoryClaimStore(), nil
	}

	store, err := NewRedisClaimStore(ctx, cfg)
	switch {
	case err == nil:
		log.Info("Create claims are held in Redis", zap.String("addr", store.Addr()))
		return store, nil
	case cfg.Required:
		return nil, fmt.Errorf("redis claim store: %w", err)
	}
	log.Warn("Redis unreachable, create claims are held in memory; other instances are not guarded",
		zap.Error(err))
	return NewInMemoryClaimStore(), nil
}
