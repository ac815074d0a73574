package outbox

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error
}

type RelayOptions struct {
	BatchSize  int           `koanf:"batch_size"`
	Interval   time.Duration `koanf:"interval"`
	Lease      time.Duration `koanf:"lease"`
	MaxRetries int           `koanf:"max_retries"`
}

func DefaultRelayOptions() RelayOptions {
	return RelayOptions{
		BatchSize:  100,
		Interval:   500 * time.Millisecond,
		Lease:      5 * time.Second,
		MaxRetries: 10,
	}
}

// Relay drains pending outbox rows to the dispatcher. Publishing is
// at-least-once; consumers of the topics dedupe on the event key.
type Relay struct {
	log      *slog.Logger
	store    Store
	dispatch *Dispatcher
	relayID  string
	opts     RelayOptions
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts RelayOptions) *Relay {
	def := DefaultRelayOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.Lease <= 0 {
		opts.Lease = def.Lease
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	return &Relay{
		log:      log,
		store:    store,
		dispatch: dispatch,
		relayID:  relayID,
		opts:     opts,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.opts.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.opts.BatchSize, r.opts.Lease)
	if err != nil {
		r.log.Error("relay lock batch error", "err", err)
		return
	}
	if len(events) == 0 {
		return
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			if markErr := r.store.MarkFailed(ctx, e.ID, err.Error(), r.opts.MaxRetries); markErr != nil {
				r.log.Error("relay mark failed error", "event_id", e.ID, "err", markErr)
			}
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			r.log.Error("relay mark sent error", "err", err)
		}
	}
}
