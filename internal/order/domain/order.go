package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

// StatusPlaced is the only status the placement workflow produces.
const StatusPlaced OrderStatus = "PLACED"

// Order is the aggregate root. Lines are owned by the order and are never
// referenced from anywhere else; they are stored and deleted with it.
type Order struct {
	ID              string
	Username        string
	Lines           []OrderLine
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	ShippingAddress string
	OrderDate       time.Time
}

// OrderLine is a snapshot of a cart line at order time. ItemName and
// UnitPrice are copies, not live references to the catalog.
type OrderLine struct {
	ItemID    int64
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrder builds a PLACED order from a cart snapshot. The total is taken
// from the cart as-is; see LinesTotal for the computed value.
func NewOrder(username, shippingAddress string, cart CartSnapshot, now time.Time) Order {
	lines := make([]OrderLine, 0, len(cart.Lines))
	for _, cl := range cart.Lines {
		lines = append(lines, OrderLine{
			ItemID:    cl.ItemID,
			ItemName:  cl.ItemName,
			Quantity:  cl.Quantity,
			UnitPrice: cl.UnitPrice,
		})
	}
	return Order{
		ID:              uuid.NewString(),
		Username:        username,
		Lines:           lines,
		TotalPrice:      cart.TotalPrice,
		Status:          StatusPlaced,
		ShippingAddress: shippingAddress,
		OrderDate:       now.UTC(),
	}
}

// LinesTotal sums price * quantity over the order's lines.
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
