package governance

import (
	"context"
	"fmt"
	"time"

	"mercado/internal/domain"
	"mercado/pkg/cache"

	"github.com/google/uuid"
)

// RedisSnapshotCache keeps seller governance snapshots in Redis under
// seller:gov:<userID>, dropped on every committed transition.
type RedisSnapshotCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewRedisSnapshotCache(c *cache.RedisCache, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{cache: c, ttl: ttl}
}

func sellerKey(userID uuid.UUID) string {
	return fmt.Sprintf("seller:gov:%s", userID)
}

func (c *RedisSnapshotCache) GetSeller(ctx context.Context, userID uuid.UUID) (*domain.SellerProfile, error) {
	var profile domain.SellerProfile
	if err := c.cache.Get(ctx, sellerKey(userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *RedisSnapshotCache) SetSeller(ctx context.Context, profile *domain.SellerProfile) error {
	return c.cache.Set(ctx, sellerKey(profile.UserID), profile, c.ttl)
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.cache.Delete(ctx, sellerKey(userID))
}
