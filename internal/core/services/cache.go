package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
)

const (
	CacheKeyAvailableLots = "user_view_lots"
	CacheKeyAdminStats    = "admin_stats"

	AvailableLotsTTL = 60 * time.Second
	AdminStatsTTL    = 300 * time.Second
)

// readThrough serves key from the cache, falling back to load on a miss.
// A broken cache degrades to always calling load.
func readThrough[T any](ctx context.Context, cache ports.Cache, log *zap.Logger, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if cache != nil {
		var cached T
		found, err := cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if cache != nil {
		if err := cache.Set(ctx, key, value, ttl); err != nil {
			log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

func invalidate(ctx context.Context, cache ports.Cache, log *zap.Logger, keys ...string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func requireAdmin(identity domain.Identity) error {
	if !identity.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}
