package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/inventory/application"
	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

const Schema = `
CREATE TABLE IF NOT EXISTS inventory (
	id                 BIGSERIAL PRIMARY KEY,
	item_id            BIGINT       NOT NULL UNIQUE,
	quantity           INT          NOT NULL CHECK (quantity >= 0),
	warehouse_location VARCHAR(100) NOT NULL,
	last_updated       TIMESTAMPTZ  NOT NULL
);
`

const uniqueViolation = "23505"

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{Schema, outbox.Schema} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:  log,
		pool: pool,
	}
}

const returning = ` RETURNING id, item_id, quantity, warehouse_location, last_updated`

func scan(row pgx.Row) (domain.Record, error) {
	var r domain.Record
	err := row.Scan(&r.ID, &r.ItemID, &r.Quantity, &r.WarehouseLocation, &r.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, domain.ErrNotFound
	}
	r.LastUpdated = r.LastUpdated.UTC()
	return r, err
}

func (r *Repository) GetByItemID(ctx context.Context, itemID int64) (domain.Record, error) {
	return scan(r.pool.QueryRow(ctx,
		`SELECT id, item_id, quantity, warehouse_location, last_updated FROM inventory WHERE item_id=$1`, itemID))
}

func (r *Repository) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	out, err := scan(r.pool.QueryRow(ctx,
		`INSERT INTO inventory (item_id, quantity, warehouse_location, last_updated) VALUES ($1,$2,$3,$4)`+returning,
		rec.ItemID, rec.Quantity, rec.WarehouseLocation, rec.LastUpdated))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.Record{}, fmt.Errorf("%w: item %d", domain.ErrAlreadyExists, rec.ItemID)
	}
	return out, err
}

// UpdateWithOutbox keeps the stored location when rec carries none.
func (r *Repository) UpdateWithOutbox(ctx context.Context, rec domain.Record, events application.EventsFunc, traceparent string) (domain.Record, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Record{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	out, err := scan(tx.QueryRow(ctx, `UPDATE inventory
		SET quantity=$2, warehouse_location=COALESCE(NULLIF($3,''), warehouse_location), last_updated=$4
		WHERE item_id=$1`+returning,
		rec.ItemID, rec.Quantity, rec.WarehouseLocation, rec.LastUpdated))
	if err != nil {
		return domain.Record{}, err
	}

	msgs, err := events(out)
	if err != nil {
		return domain.Record{}, err
	}
	for _, m := range msgs {
		err = outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "inventory",
			AggregateID:   strconv.FormatInt(rec.ItemID, 10),
			Type:          m.Type,
			Payload:       m.Payload,
			Traceparent:   traceparent,
		})
		if err != nil {
			return domain.Record{}, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.Record{}, err
	}
	return out, nil
}
