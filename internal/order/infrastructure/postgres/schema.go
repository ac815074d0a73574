package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/pkg/outbox"
)

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	username         TEXT          NOT NULL,
	total_price      NUMERIC       NOT NULL,
	status           TEXT          NOT NULL,
	shipping_address TEXT          NOT NULL,
	order_date       TIMESTAMPTZ   NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_username ON orders (username, order_date DESC);

CREATE TABLE IF NOT EXISTS order_items (
	order_id  TEXT          NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	line_no   INT           NOT NULL,
	item_id   BIGINT        NOT NULL,
	item_name TEXT          NOT NULL,
	quantity  INT           NOT NULL CHECK (quantity > 0),
	price     NUMERIC       NOT NULL,
	PRIMARY KEY (order_id, line_no)
);
`

// EnsureSchema creates the order and outbox tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{Schema, outbox.Schema} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
