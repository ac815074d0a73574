package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
)

// Message is one event to be written to the outbox with the change.
type Message struct {
	Type    string
	Payload []byte
}

// EventsFunc derives the outbox messages for a record as it was stored.
type EventsFunc func(stored domain.Record) ([]Message, error)

type Repository interface {
	GetByItemID(ctx context.Context, itemID int64) (domain.Record, error)
	Create(ctx context.Context, rec domain.Record) (domain.Record, error)
	// UpdateWithOutbox rewrites quantity and location of the item's record,
	// then stores the messages events builds from the stored record in the
	// same transaction.
	UpdateWithOutbox(ctx context.Context, rec domain.Record, events EventsFunc, traceparent string) (domain.Record, error)
}
