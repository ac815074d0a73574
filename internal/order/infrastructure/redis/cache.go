package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
)

// OrderCache is a cache-aside reader for single orders. Orders never change
// after they are stored, so entries are only expired, never invalidated.
// Listings always go to the underlying reader.
type OrderCache struct {
	log     *slog.Logger
	client  goredis.UniversalClient
	next    application.OrderReader
	ttl     time.Duration
	service string
}

func NewOrderCache(log *slog.Logger, client goredis.UniversalClient, next application.OrderReader, service string, ttl time.Duration) *OrderCache {
	return &OrderCache{log: log, client: client, next: next, ttl: ttl, service: service}
}

func (c *OrderCache) key(id string) string {
	return fmt.Sprintf("%s:order:%s", c.service, id)
}

func (c *OrderCache) Get(ctx context.Context, id string) (domain.Order, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var o domain.Order
		if err := json.Unmarshal(raw, &o); err == nil {
			return o, nil
		}
		c.log.WarnContext(ctx, "dropping unreadable cache entry", "order_id", id)
		c.client.Del(ctx, c.key(id))
	case !errors.Is(err, goredis.Nil):
		c.log.WarnContext(ctx, "order cache read failed", "order_id", id, "err", err)
	}

	o, err := c.next.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if raw, err := json.Marshal(o); err == nil {
		if err := c.client.Set(ctx, c.key(id), raw, c.ttl).Err(); err != nil {
			c.log.WarnContext(ctx, "order cache write failed", "order_id", id, "err", err)
		}
	}
	return o, nil
}

func (c *OrderCache) ListByUsername(ctx context.Context, username string) ([]domain.Order, error) {
	return c.next.ListByUsername(ctx, username)
}
