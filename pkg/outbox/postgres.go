package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const Schema = `
CREATE TABLE IF NOT EXISTS outbox (
	id             BIGSERIAL PRIMARY KEY,
	aggregate_type TEXT        NOT NULL,
	aggregate_id   TEXT        NOT NULL,
	type           TEXT        NOT NULL,
	payload        JSONB       NOT NULL,
	headers        JSONB       NOT NULL DEFAULT '{}',
	traceparent    TEXT        NOT NULL DEFAULT '',
	status         TEXT        NOT NULL DEFAULT 'pending',
	relay_id       TEXT,
	lease_until    TIMESTAMPTZ,
	retry_count    INT         NOT NULL DEFAULT 0,
	last_error     TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (status, id);
`

// Insert adds an event row inside the caller's transaction.
func Insert(ctx context.Context, tx pgx.Tx, e Event) error {
	if e.Headers == nil {
		e.Headers = map[string]string{}
	}
	_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		e.AggregateType, e.AggregateID, e.Type, e.Payload, e.Headers, e.Traceparent)
	if err != nil {
		return fmt.Errorf("outbox insert %s: %w", e.Type, err)
	}
	return nil
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// LockBatch claims up to batchSize pending rows, plus in-progress rows whose
// lease has expired because a previous relay died mid-batch.
func (s *PGStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count
		FROM outbox
		WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, err
	}

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &ev.Headers, &ev.Traceparent, &ev.CreatedAt, &ev.RetryCount); err != nil {
			rows.Close()
			return nil, err
		}
		ev.Status = StatusInProgress
		ev.RelayID = relayID
		events = append(events, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + make_interval(secs => $2) WHERE id = ANY($3)`,
		relayID, lease.Seconds(), ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PGStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

// MarkFailed returns the row to pending until maxRetries is reached.
func (s *PGStore) MarkFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    last_error = $2,
		    retry_count = retry_count + 1,
		    lease_until = NULL
		WHERE id = $1`, id, errMsg, maxRetries)
	return err
}
