package domain

import "time"

const EventOrderPlaced = "OrderPlaced"

type OrderPlaced struct {
	OrderID         string          `json:"orderId"`
	Username        string          `json:"username"`
	TotalPrice      string          `json:"totalPrice"`
	ShippingAddress string          `json:"shippingAddress"`
	OrderDate       time.Time       `json:"orderDate"`
	Lines           []OrderLineJSON `json:"items"`
}

type OrderLineJSON struct {
	ItemID   int64  `json:"itemId"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

func NewOrderPlaced(o Order) OrderPlaced {
	lines := make([]OrderLineJSON, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineJSON{
			ItemID:   l.ItemID,
			ItemName: l.ItemName,
			Quantity: l.Quantity,
			Price:    l.UnitPrice.StringFixed(2),
		})
	}
	return OrderPlaced{
		OrderID:         o.ID,
		Username:        o.Username,
		TotalPrice:      o.TotalPrice.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		OrderDate:       o.OrderDate,
		Lines:           lines,
	}
}
