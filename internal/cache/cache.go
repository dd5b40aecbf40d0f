package cache

import (
	"context"
	"fmt"
	"log/slog"

	"saasan/internal/config"
)

// Cache stores serialized projections with a TTL. Implementations are
// best-effort: a backend failure reads as a miss and never fails the caller.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Delete(ctx context.Context, keys ...string)
}

// New builds the cache selected by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (Cache, error) {
	switch cfg.Backend {
	case config.CacheLRU:
		return NewLRU(cfg.Size, cfg.TTL)
	case config.CacheRedis:
		client, err := Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedis(client, "saasan:", cfg.TTL, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
