package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
)

// CartAccessor reads and clears the caller's cart in the Cart Service.
// An absent cart is returned as an empty snapshot. ClearCart is best-effort.
type CartAccessor interface {
	FetchCart(ctx context.Context, p auth.Principal) (domain.CartSnapshot, error)
	ClearCart(ctx context.Context, p auth.Principal) error
}

// InventoryAccessor reads and rewrites single inventory records.
type InventoryAccessor interface {
	FetchStock(ctx context.Context, p auth.Principal, itemID int64) (domain.InventoryRecord, error)
	UpdateStock(ctx context.Context, p auth.Principal, rec domain.InventoryRecord) (domain.InventoryRecord, error)
}

type OrderReader interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUsername(ctx context.Context, username string) ([]domain.Order, error)
}

// OrderRepository writes the order, its lines and one outbox event in a
// single local transaction.
type OrderRepository interface {
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error
	OrderReader
}
