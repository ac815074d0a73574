package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type Service struct {
	log    *slog.Logger
	repo   Repository
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		tracer: otel.Tracer("inventory-application"),
		now:    time.Now,
	}
}

func (s *Service) Get(ctx context.Context, itemID int64) (domain.Record, error) {
	return s.repo.GetByItemID(ctx, itemID)
}

func (s *Service) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	rec.LastUpdated = s.now().UTC()
	return s.repo.Create(ctx, rec)
}

// Update overwrites the item's quantity and location. The last write wins;
// there is no version check and no floor other than zero.
func (s *Service) Update(ctx context.Context, itemID int64, rec domain.Record) (domain.Record, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateInventory", trace.WithAttributes(
		attribute.Int64("item_id", itemID),
		attribute.Int("quantity", rec.Quantity),
	))
	defer span.End()

	rec.ItemID = itemID
	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	rec.LastUpdated = s.now().UTC()

	var raised []string
	updated, err := s.repo.UpdateWithOutbox(ctx, rec, func(stored domain.Record) ([]Message, error) {
		raised = stored.StockEvents()
		return stockMessages(stored, raised)
	}, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Record{}, err
	}
	if len(raised) > 0 {
		s.log.InfoContext(ctx, "stock level event raised", "item_id", itemID, "quantity", updated.Quantity, "events", raised)
	}
	return updated, nil
}

func stockMessages(stored domain.Record, types []string) ([]Message, error) {
	msgs := make([]Message, 0, len(types))
	for _, typ := range types {
		payload, err := json.Marshal(domain.StockLevel{
			ItemID:            stored.ItemID,
			Quantity:          stored.Quantity,
			WarehouseLocation: stored.WarehouseLocation,
			At:                stored.LastUpdated,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{Type: typ, Payload: payload})
	}
	return msgs, nil
}
