package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartSnapshot is the caller's cart as read once from the Cart Service.
// It is never persisted.
type CartSnapshot struct {
	TotalPrice decimal.Decimal
	Lines      []CartLine
}

type CartLine struct {
	ItemID    int64
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (c CartSnapshot) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Validate rejects lines that cannot become order lines: quantity must be
// positive and the unit price must not be negative.
func (c CartSnapshot) Validate() error {
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			return &InvalidCartLineError{ItemID: l.ItemID, Reason: fmt.Sprintf("quantity %d must be positive", l.Quantity)}
		}
		if l.UnitPrice.IsNegative() {
			return &InvalidCartLineError{ItemID: l.ItemID, Reason: "price " + l.UnitPrice.String() + " must not be negative"}
		}
	}
	return nil
}
