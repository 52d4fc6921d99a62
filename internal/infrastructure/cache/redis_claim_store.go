package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/erp/syncengine/internal/domain/shared"
	"github.com/erp/syncengine/internal/infrastructure/config"
)

const (
	claimKeyPrefix = "sync:claim:"
	dialTimeout    = 5 * time.Second
)

// unlockScript deletes a claim only while the caller still owns it
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimStore holds create claims in Redis so every engine instance sees them.
// Each store owns its claims under a random token.
type RedisClaimStore struct {
	client *redis.Client
	prefix string
	owner  string
}

// NewRedisClaimStore connects to Redis and verifies it answers PING
func NewRedisClaimStore(ctx context.Context, cfg config.RedisConfig) (*RedisClaimStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", client.Options().Addr, err)
	}
	return NewRedisClaimStoreWithClient(client, ""), nil
}

// NewRedisClaimStoreWithClient wraps client. An empty prefix uses "sync:claim:".
func NewRedisClaimStoreWithClient(client *redis.Client, prefix string) *RedisClaimStore {
	if prefix == "" {
		prefix = claimKeyPrefix
	}
	return &RedisClaimStore{client: client, prefix: prefix, owner: uuid.NewString()}
}

// Claim takes key for ttl if nobody holds it (SET NX PX)
func (s *RedisClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, s.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release gives key back. Claims that expired and were retaken by another owner are left alone.
func (s *RedisClaimStore) Release(ctx context.Context, key string) error {
	if err := unlockScript.Run(ctx, s.client, []string{s.prefix + key}, s.owner).Err(); err != nil {
		return fmt.Errorf("release claim %s: %w", key, err)
	}
	return nil
}

// Ping reports whether Redis answers; used by the health probe
func (s *RedisClaimStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Addr is the Redis address in host:port form
func (s *RedisClaimStore) Addr() string {
	return s.client.Options().Addr
}

func (s *RedisClaimStore) Close() error {
	return s.client.Close()
}

var _ shared.ClaimStore = (*RedisClaimStore)(nil)
