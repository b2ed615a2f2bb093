package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderListCache holds rendered order listings for a short TTL. Listings may
// be a few seconds stale; a placed order drops the affected keys.
type OrderListCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewOrderListCache(rdb redis.Cmdable, ttl time.Duration) *OrderListCache {
	return &OrderListCache{rdb: rdb, ttl: ttl}
}

func listKey(sellerID int64) string {
	if sellerID == 0 {
		return KeyRecentOrders
	}
	return fmt.Sprintf(KeySellerOrders, sellerID)
}

// Get returns the cached body for the seller's listing, or the global recent
// listing when sellerID is zero. ok is false on a miss.
func (c *OrderListCache) Get(ctx context.Context, sellerID int64) (body []byte, ok bool, err error) {
	b, err := c.rdb.Get(ctx, listKey(sellerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *OrderListCache) Set(ctx context.Context, sellerID int64, body []byte) error {
	return c.rdb.Set(ctx, listKey(sellerID), body, c.ttl).Err()
}

// Invalidate drops the seller listing and the recent listing.
func (c *OrderListCache) Invalidate(ctx context.Context, sellerID int64) error {
	return c.rdb.Del(ctx, listKey(sellerID), KeyRecentOrders).Err()
}
