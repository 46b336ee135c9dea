package promo

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type resultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	PromoKey(parts ...string) string
}

// CachedSource memoizes lookups, valid or not, for a TTL. Transport failures
// are never cached.
type CachedSource struct {
	next  Source
	cache resultCache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedSource(next Source, cache resultCache, ttl time.Duration, logg *logger.Logger) *CachedSource {
	return &CachedSource{next: next, cache: cache, ttl: ttl, logg: logg}
}

func (c *CachedSource) Lookup(ctx context.Context, lookup Lookup) (Result, error) {
	key := c.key(lookup)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var cached Result
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.warn(ctx, "promo cache read failed", err)
	}

	result, err := c.next.Lookup(ctx, lookup)
	if err != nil {
		return Result{}, err
	}
	if c.ttl > 0 {
		if payload, err := json.Marshal(result); err == nil {
			if err := c.cache.Set(ctx, key, string(payload), c.ttl); err != nil {
				c.warn(ctx, "promo cache write failed", err)
			}
		}
	}
	return result, nil
}

func (c *CachedSource) key(lookup Lookup) string {
	item := ""
	if lookup.ItemID != nil {
		item = strconv.FormatInt(*lookup.ItemID, 10)
	}
	return c.cache.PromoKey(lookup.Code, lookup.ProductKey, lookup.Scope.String(), item)
}

func (c *CachedSource) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}
