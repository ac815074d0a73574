package application

import (
	"time"

	"github.com/dmehra2102/storefront/internal/order/domain"
)

// OrderResult is the order representation returned to callers. Money is
// rendered with two decimal places.
type OrderResult struct {
	ID              string                 `json:"id"`
	Username        string                 `json:"username"`
	TotalPrice      string                 `json:"totalPrice"`
	Status          string                 `json:"status"`
	ShippingAddress string                 `json:"shippingAddress"`
	OrderDate       time.Time              `json:"orderDate"`
	Items           []domain.OrderLineJSON `json:"items"`
}

func NewOrderResult(o domain.Order) OrderResult {
	items := make([]domain.OrderLineJSON, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, domain.OrderLineJSON{
			ItemID:   l.ItemID,
			ItemName: l.ItemName,
			Quantity: l.Quantity,
			Price:    l.UnitPrice.StringFixed(2),
		})
	}
	return OrderResult{
		ID:              o.ID,
		Username:        o.Username,
		TotalPrice:      o.TotalPrice.StringFixed(2),
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		OrderDate:       o.OrderDate,
		Items:           items,
	}
}
