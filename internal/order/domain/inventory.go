package domain

import "time"

// InventoryRecord mirrors the Inventory Service's record. Only Quantity is
// rewritten by order placement; the other fields are sent back untouched.
type InventoryRecord struct {
	ID                int64
	ItemID            int64
	Quantity          int
	WarehouseLocation string
	LastUpdated       time.Time
}

// Decremented returns a copy of the record with qty removed from Quantity.
func (r InventoryRecord) Decremented(qty int) InventoryRecord {
	r.Quantity -= qty
	return r
}
