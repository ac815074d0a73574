package remote

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/resilience"
)

type inventoryDTO struct {
	ID                int64      `json:"id"`
	ItemID            int64      `json:"itemId"`
	Quantity          int        `json:"quantity"`
	WarehouseLocation string     `json:"warehouseLocation"`
	LastUpdated       *time.Time `json:"lastUpdated,omitempty"`
}

func (d inventoryDTO) record() domain.InventoryRecord {
	r := domain.InventoryRecord{
		ID:                d.ID,
		ItemID:            d.ItemID,
		Quantity:          d.Quantity,
		WarehouseLocation: d.WarehouseLocation,
	}
	if d.LastUpdated != nil {
		r.LastUpdated = *d.LastUpdated
	}
	return r
}

func toInventoryDTO(r domain.InventoryRecord) inventoryDTO {
	d := inventoryDTO{
		ID:                r.ID,
		ItemID:            r.ItemID,
		Quantity:          r.Quantity,
		WarehouseLocation: r.WarehouseLocation,
	}
	if !r.LastUpdated.IsZero() {
		t := r.LastUpdated
		d.LastUpdated = &t
	}
	return d
}

type InventoryClient struct {
	client
}

func NewInventoryClient(log *slog.Logger, hc *http.Client, baseURL string, policy *resilience.Policy) *InventoryClient {
	return &InventoryClient{client: newClient(log, hc, baseURL, policy)}
}

func itemPath(itemID int64) string {
	return "/inventory/item/" + strconv.FormatInt(itemID, 10)
}

func (c *InventoryClient) FetchStock(ctx context.Context, p auth.Principal, itemID int64) (domain.InventoryRecord, error) {
	var dto inventoryDTO
	err := c.call(ctx, p, "fetch_stock", http.MethodGet, itemPath(itemID), nil, &dto)
	if err == nil {
		return dto.record(), nil
	}
	if isNotFound(err) {
		return domain.InventoryRecord{}, &domain.ItemNotFoundError{ItemID: itemID}
	}
	c.log.ErrorContext(ctx, "inventory fetch failed", "item_id", itemID, "err", err)
	return domain.InventoryRecord{}, &domain.UnavailableError{Remote: c.policy.Name(), Op: "fetch inventory", Cause: err}
}

// UpdateStock writes the full record back. Any failure, including 404,
// aborts placement as unavailable.
func (c *InventoryClient) UpdateStock(ctx context.Context, p auth.Principal, rec domain.InventoryRecord) (domain.InventoryRecord, error) {
	var dto inventoryDTO
	err := c.call(ctx, p, "update_stock", http.MethodPut, itemPath(rec.ItemID), toInventoryDTO(rec), &dto)
	if err != nil {
		c.log.ErrorContext(ctx, "inventory update failed", "item_id", rec.ItemID, "err", err)
		return domain.InventoryRecord{}, &domain.UnavailableError{Remote: c.policy.Name(), Op: "update inventory", Cause: err}
	}
	return dto.record(), nil
}
