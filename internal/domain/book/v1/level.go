package bookv1

import (
	"github.com/shopspring/decimal"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
)

// Level is one price level of a book side. Orders are kept in arrival
// order (lowest sequence first); Volume caches the sum of remaining
// quantities.
type Level struct {
	Price  decimal.Decimal
	Orders []*orderv1.Order
	Volume decimal.Decimal
}

// NewLevel creates an empty level at price.
func NewLevel(price decimal.Decimal) *Level {
	return &Level{
		Price:  price,
		Volume: decimal.Zero,
	}
}

// Add appends an order at the back of the level's queue.
func (l *Level) Add(order *orderv1.Order) {
	l.Orders = append(l.Orders, order)
	l.Volume = l.Volume.Add(order.Remaining())
}

// Remove unlinks the order with the given id. Returns false when the
// order is not at this level.
func (l *Level) Remove(orderID string) bool {
	for i, o := range l.Orders {
		if o.ID == orderID {
			l.Volume = l.Volume.Sub(o.Remaining())
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			return true
		}
	}
	return false
}

// Reduce shrinks the cached volume after a fill against one of the
// level's orders.
func (l *Level) Reduce(qty decimal.Decimal) {
	l.Volume = l.Volume.Sub(qty)
}

// Empty reports whether the level holds no orders.
func (l *Level) Empty() bool {
	return len(l.Orders) == 0
}

// LevelDepth is the aggregated view of a price level used for market
// depth display. Never used for matching decisions.
type LevelDepth struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Count    int             `json:"count"`
}

// Depth returns the level's aggregate.
func (l *Level) Depth() LevelDepth {
	return LevelDepth{
		Price:    l.Price,
		Quantity: l.Volume,
		Count:    len(l.Orders),
	}
}
