package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shopico/shop-api/internal/orders"
)

// OrderCache keeps populated orders in Redis for fast reads. Misses and
// Redis errors both fall through to the database; writes are best-effort.
type OrderCache struct{ R *redis.Client }

func (c *OrderCache) Get(ctx context.Context, orderID string) (*orders.Order, bool) {
	key := fmt.Sprintf(KeyOrder, orderID)
	b, err := c.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var o orders.Order
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, false
	}
	return &o, true
}

func (c *OrderCache) Set(ctx context.Context, o *orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(KeyOrder, o.ID)
	_ = c.R.Set(ctx, key, b, TTLOrderCache).Err()
}

func (c *OrderCache) Drop(ctx context.Context, orderID string) {
	_ = c.R.Del(ctx, fmt.Sprintf(KeyOrder, orderID)).Err()
}
