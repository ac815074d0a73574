package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type Service struct {
	log    *slog.Logger
	repo   OrderRepository
	reader OrderReader
	cart   CartAccessor
	inv    InventoryAccessor
	tracer trace.Tracer
	now    func() time.Time
}

// NewService wires the placement workflow. reader serves the query paths and
// may be a cache in front of repo.
func NewService(log *slog.Logger, repo OrderRepository, reader OrderReader, cart CartAccessor, inv InventoryAccessor) *Service {
	if reader == nil {
		reader = repo
	}
	return &Service{
		log:    log,
		repo:   repo,
		reader: reader,
		cart:   cart,
		inv:    inv,
		tracer: otel.Tracer("order-application"),
		now:    time.Now,
	}
}

// PlaceOrder runs cart fetch, per-line stock check and decrement, order
// persistence and a best-effort cart clear, strictly in that order.
//
// Nothing is compensated. A stock failure on a later line leaves earlier
// lines decremented, and a failed save leaves every line decremented.
// Calling it twice with the same cart places two orders.
func (s *Service) PlaceOrder(ctx context.Context, p auth.Principal, shippingAddress string) (res OrderResult, err error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(attribute.String("username", p.Username)))
	defer func() {
		kind := "ok"
		if err != nil {
			kind = domain.KindOf(err).String()
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		}
		placements.WithLabelValues(kind).Inc()
		span.End()
	}()
	log := s.log.With("username", p.Username)

	if strings.TrimSpace(shippingAddress) == "" {
		return OrderResult{}, domain.ErrShippingAddress
	}

	cart, err := s.cart.FetchCart(ctx, p)
	if err != nil {
		return OrderResult{}, err
	}
	if cart.IsEmpty() {
		log.InfoContext(ctx, "place order rejected: empty cart")
		return OrderResult{}, domain.ErrEmptyCart
	}
	if err := cart.Validate(); err != nil {
		log.InfoContext(ctx, "place order rejected: invalid cart", "err", err)
		return OrderResult{}, err
	}
	span.SetAttributes(attribute.Int("cart.lines", len(cart.Lines)))

	for i, line := range cart.Lines {
		rec, err := s.inv.FetchStock(ctx, p, line.ItemID)
		if err != nil {
			return OrderResult{}, err
		}
		if rec.Quantity < line.Quantity {
			log.InfoContext(ctx, "place order rejected: out of stock",
				"item_id", line.ItemID, "requested", line.Quantity, "available", rec.Quantity,
				"lines_decremented", i)
			return OrderResult{}, &domain.OutOfStockError{
				ItemID:    line.ItemID,
				ItemName:  line.ItemName,
				Requested: line.Quantity,
				Available: rec.Quantity,
			}
		}
		if _, err := s.inv.UpdateStock(ctx, p, rec.Decremented(line.Quantity)); err != nil {
			log.ErrorContext(ctx, "inventory update failed", "item_id", line.ItemID, "lines_decremented", i, "err", err)
			return OrderResult{}, err
		}
		span.AddEvent("stock decremented", trace.WithAttributes(
			attribute.Int64("item_id", line.ItemID),
			attribute.Int("quantity", line.Quantity),
		))
	}

	order := domain.NewOrder(p.Username, shippingAddress, cart, s.now())
	if computed := order.LinesTotal(); !computed.Equal(order.TotalPrice) {
		log.WarnContext(ctx, "cart total differs from line sum",
			"cart_total", order.TotalPrice.StringFixed(2), "line_sum", computed.StringFixed(2))
	}

	payload, err := json.Marshal(domain.NewOrderPlaced(order))
	if err != nil {
		return OrderResult{}, fmt.Errorf("encode %s: %w", domain.EventOrderPlaced, err)
	}
	headers := map[string]string{"content-type": "application/json"}
	if err := s.repo.SaveWithOutbox(ctx, order, domain.EventOrderPlaced, payload, headers, tracing.Traceparent(ctx)); err != nil {
		log.ErrorContext(ctx, "order save failed after inventory decrement",
			"order_id", order.ID, "lines_decremented", len(cart.Lines), "err", err)
		return OrderResult{}, fmt.Errorf("save order %s: %w", order.ID, err)
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	if err := s.cart.ClearCart(ctx, p); err != nil {
		log.WarnContext(ctx, "cart clear failed, order kept", "order_id", order.ID, "err", err)
	}

	log.InfoContext(ctx, "order placed", "order_id", order.ID, "total", order.TotalPrice.StringFixed(2))
	return NewOrderResult(order), nil
}

// MyOrders lists the caller's orders, newest first.
func (s *Service) MyOrders(ctx context.Context, p auth.Principal) ([]OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "MyOrders")
	defer span.End()

	orders, err := s.reader.ListByUsername(ctx, p.Username)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]OrderResult, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderResult(o))
	}
	return out, nil
}

func (s *Service) OrderByID(ctx context.Context, id string) (OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	o, err := s.reader.Get(ctx, id)
	if err != nil {
		return OrderResult{}, err
	}
	return NewOrderResult(o), nil
}
