package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// SaveWithOutbox inserts the order, its lines and the event row in one
// transaction. Orders are immutable, so a duplicate id is an error.
func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, username, total_price, status, shipping_address, order_date)
		VALUES ($1,$2,$3::numeric,$4,$5,$6)`,
		o.ID, o.Username, o.TotalPrice.String(), string(o.Status), o.ShippingAddress, o.OrderDate)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		batch.Queue(`INSERT INTO order_items (order_id, line_no, item_id, item_name, quantity, price)
			VALUES ($1,$2,$3,$4,$5,$6::numeric)`,
			o.ID, i, l.ItemID, l.ItemName, l.Quantity, l.UnitPrice.String())
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	err = outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "order",
		AggregateID:   o.ID,
		Type:          eventType,
		Payload:       payload,
		Headers:       headers,
		Traceparent:   traceparent,
	})
	if err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	r.log.DebugContext(ctx, "order stored", "order_id", o.ID, "lines", len(o.Lines))
	return nil
}

const selectOrders = `SELECT id, username, total_price::text, status, shipping_address, order_date FROM orders`

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrders+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	lines, err := r.lines(ctx, []string{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Lines = lines[id]
	return o, nil
}

// ListByUsername returns the user's orders, newest first.
func (r *Repository) ListByUsername(ctx context.Context, username string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrders+` WHERE username=$1 ORDER BY order_date DESC, id`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) lines(ctx context.Context, orderIDs []string) (map[string][]domain.OrderLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT order_id, item_id, item_name, quantity, price::text
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderLine, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			l       domain.OrderLine
			price   string
		)
		if err := rows.Scan(&orderID, &l.ItemID, &l.ItemName, &l.Quantity, &price); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order %s item %d price: %w", orderID, l.ItemID, err)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		total  string
		status string
	)
	if err := row.Scan(&o.ID, &o.Username, &total, &status, &o.ShippingAddress, &o.OrderDate); err != nil {
		return domain.Order{}, err
	}
	var err error
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return domain.Order{}, fmt.Errorf("order %s total: %w", o.ID, err)
	}
	o.Status = domain.OrderStatus(status)
	o.OrderDate = o.OrderDate.UTC()
	return o, nil
}
