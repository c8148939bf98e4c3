package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/utils/cache"
)

const (
	gateCacheTTL = 5 * time.Minute
)

// Gate is the read-path guard in front of gated content. Every content
// endpoint must pass a Check before lessons or downloads are served; there is
// no partial-access mode, so a false answer means deny outright.
//
// A user is allowed iff an enrollment row exists with status "active".
// AccessExpiresAt and DeviceCount are deliberately not consulted here.
type Gate struct {
	store Store
	cache *cache.RedisCache // optional, nil disables caching
}

// NewGate creates a gate over the given store. The cache may be nil.
func NewGate(store Store, redisCache *cache.RedisCache) *Gate {
	return &Gate{
		store: store,
		cache: redisCache,
	}
}

// Cache exposes the gate's Redis connection so other middleware can share it.
// Returns nil when caching is disabled.
func (g *Gate) Cache() *cache.RedisCache {
	return g.cache
}

func gateCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("enrollment:allowed:%s", model.EnrollmentKey(userID, courseID))
}

// Check reports whether the user may access the course's content.
func (g *Gate) Check(ctx context.Context, userID, courseID uint) (bool, error) {
	if g.cache != nil {
		if val, err := g.cache.Get(ctx, gateCacheKey(userID, courseID)); err == nil {
			return val == "1", nil
		}
		// Cache miss or Redis down: fall through to the store.
	}

	record, err := g.store.Get(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			g.cacheResult(ctx, userID, courseID, false)
			return false, nil
		}
		return false, err
	}

	allowed := record.Status == model.EnrollmentStatusActive
	g.cacheResult(ctx, userID, courseID, allowed)
	return allowed, nil
}

// Invalidate drops the cached answer for a pair. Called after an enrollment
// is granted so the user sees access immediately.
func (g *Gate) Invalidate(ctx context.Context, userID, courseID uint) {
	if g.cache == nil {
		return
	}
	_ = g.cache.Delete(ctx, gateCacheKey(userID, courseID))
}

func (g *Gate) cacheResult(ctx context.Context, userID, courseID uint, allowed bool) {
	if g.cache == nil {
		return
	}
	val := "0"
	if allowed {
		val = "1"
	}
	_ = g.cache.Set(ctx, gateCacheKey(userID, courseID), val, gateCacheTTL)
}
