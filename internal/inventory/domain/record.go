package domain

import (
	"errors"
	"fmt"
	"time"
)

// LowStockThreshold is the quantity below which a LowStock event is raised.
const LowStockThreshold = 10

const (
	EventLowStock   = "LowStock"
	EventOutOfStock = "OutOfStock"
)

var (
	ErrNotFound         = errors.New("inventory not found")
	ErrAlreadyExists    = errors.New("inventory already exists")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
)

// Record is the on-hand stock of one item in one warehouse.
type Record struct {
	ID                int64     `json:"id"`
	ItemID            int64     `json:"itemId"`
	Quantity          int       `json:"quantity"`
	WarehouseLocation string    `json:"warehouseLocation"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

func (r Record) Validate() error {
	if r.Quantity < 0 {
		return fmt.Errorf("%w: item %d quantity %d", ErrNegativeQuantity, r.ItemID, r.Quantity)
	}
	return nil
}

// StockLevel is the payload of LowStock and OutOfStock events.
type StockLevel struct {
	ItemID            int64     `json:"itemId"`
	Quantity          int       `json:"quantity"`
	WarehouseLocation string    `json:"warehouseLocation"`
	At                time.Time `json:"at"`
}

// StockEvents names the events an update to r raises. A record at zero
// raises both.
func (r Record) StockEvents() []string {
	var out []string
	if r.Quantity < LowStockThreshold {
		out = append(out, EventLowStock)
	}
	if r.Quantity == 0 {
		out = append(out, EventOutOfStock)
	}
	return out
}
