package orderbook

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	bookv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/book/v1"
	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
)

// Levels is a btree of price levels. The side's comparator decides the
// scan direction, so Scan always visits best price first.
type Levels = btree.BTreeG[*bookv1.Level]

// Book holds the resting orders of a single asset, indexed by side and
// price. It is not safe for concurrent use: the engine serializes all
// access through the asset's critical section.
type Book struct {
	asset orderv1.AssetType

	bids *Levels // sorted greatest price first
	asks *Levels // sorted least price first

	// orderID -> resting order / its level, for O(log n) removal.
	orders map[string]*orderv1.Order
	levels map[string]*bookv1.Level
}

// NewBook creates an empty book for the given asset.
func NewBook(asset orderv1.AssetType) *Book {
	bids := btree.NewBTreeG(func(a, b *bookv1.Level) bool {
		return a.Price.GreaterThan(b.Price)
	})
	asks := btree.NewBTreeG(func(a, b *bookv1.Level) bool {
		return a.Price.LessThan(b.Price)
	})
	return &Book{
		asset:  asset,
		bids:   bids,
		asks:   asks,
		orders: make(map[string]*orderv1.Order),
		levels: make(map[string]*bookv1.Level),
	}
}

// Asset returns the asset this book trades.
func (b *Book) Asset() orderv1.AssetType {
	return b.asset
}

func (b *Book) side(s orderv1.Side) *Levels {
	if s == orderv1.SideBuy {
		return b.bids
	}
	return b.asks
}

// Insert adds a restable order to its side's price level.
func (b *Book) Insert(order *orderv1.Order) error {
	if order.Asset != b.asset {
		return errors.NewErrorDetailsWithObject(
			fmt.Sprintf("order asset %s does not match book asset %s", order.Asset, b.asset),
			string(errors.OrderValidationError), "asset", order,
		)
	}
	if !order.Price.IsPositive() {
		return errors.NewErrorDetailsWithObject("order price must be positive", string(errors.OrderValidationError), "price", order)
	}
	if !order.Remaining().IsPositive() {
		return errors.NewErrorDetailsWithObject("order has no remaining quantity", string(errors.OrderValidationError), "quantity", order)
	}
	if _, exists := b.orders[order.ID]; exists {
		return errors.NewErrorDetailsWithObject("order already resting in book", string(errors.OrderValidationError), "id", order)
	}

	levels := b.side(order.Side)
	probe := bookv1.NewLevel(order.Price)
	level, ok := levels.Get(probe)
	if !ok {
		level = probe
		levels.Set(level)
	}
	level.Add(order)

	b.orders[order.ID] = order
	b.levels[order.ID] = level
	return nil
}

// BestOpposing returns the resting orders an incoming order at the given
// side and limit price is allowed to trade against, ordered by price
// priority then arrival sequence. An empty result is not an error.
func (b *Book) BestOpposing(side orderv1.Side, price decimal.Decimal) []*orderv1.Order {
	var out []*orderv1.Order

	crosses := func(restingPrice decimal.Decimal) bool {
		if side == orderv1.SideBuy {
			return restingPrice.LessThanOrEqual(price)
		}
		return restingPrice.GreaterThanOrEqual(price)
	}

	b.side(side.Opposite()).Scan(func(level *bookv1.Level) bool {
		if !crosses(level.Price) {
			return false
		}
		out = append(out, level.Orders...)
		return true
	})

	return out
}

// Remove removes an order from the book regardless of fill state. It is
// a no-op when the order is not resting, which keeps cancellation
// idempotent at the book layer.
func (b *Book) Remove(orderID string) {
	level, ok := b.levels[orderID]
	if !ok {
		return
	}
	level.Remove(orderID)
	if level.Empty() {
		order := b.orders[orderID]
		b.side(order.Side).Delete(level)
	}
	delete(b.orders, orderID)
	delete(b.levels, orderID)
}

// Reduce records a fill of qty against a resting order, shrinking the
// level's cached volume and evicting the order once fully filled.
func (b *Book) Reduce(order *orderv1.Order, qty decimal.Decimal) {
	level, ok := b.levels[order.ID]
	if !ok {
		return
	}
	level.Reduce(qty)
	if !order.Remaining().IsPositive() {
		level.Remove(order.ID)
		if level.Empty() {
			b.side(order.Side).Delete(level)
		}
		delete(b.orders, order.ID)
		delete(b.levels, order.ID)
	}
}

// Contains reports whether the order currently rests in the book.
func (b *Book) Contains(orderID string) bool {
	_, ok := b.orders[orderID]
	return ok
}

// Depth returns the side's price levels aggregated as
// (price, remaining quantity, order count), best price first.
func (b *Book) Depth(side orderv1.Side) []bookv1.LevelDepth {
	out := make([]bookv1.LevelDepth, 0, b.side(side).Len())
	b.side(side).Scan(func(level *bookv1.Level) bool {
		out = append(out, level.Depth())
		return true
	})
	return out
}

// BestBid returns the highest-priced bid level, if any.
func (b *Book) BestBid() (*bookv1.Level, bool) {
	return b.bids.Min()
}

// BestAsk returns the lowest-priced ask level, if any.
func (b *Book) BestAsk() (*bookv1.Level, bool) {
	return b.asks.Min()
}

// RestingOrders returns every order in the book ordered by arrival
// sequence. Used for snapshots.
func (b *Book) RestingOrders() []*orderv1.Order {
	out := make([]*orderv1.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// CheckInvariant verifies the book's structural invariants: no crossed
// prices between the sides and sane fill state on every resting order.
// A violation means matching has corrupted the book and the asset must
// halt.
func (b *Book) CheckInvariant() error {
	bestBid, bidOk := b.bids.Min()
	bestAsk, askOk := b.asks.Min()
	if bidOk && askOk && bestBid.Price.GreaterThanOrEqual(bestAsk.Price) {
		return errors.NewErrorDetails(
			fmt.Sprintf("book crossed: bid %s >= ask %s for %s", bestBid.Price, bestAsk.Price, b.asset),
			string(errors.BookInvariantError), "book",
		)
	}

	for _, o := range b.orders {
		if o.Filled.GreaterThan(o.Quantity) {
			return errors.NewErrorDetailsWithObject(
				"resting order filled beyond its quantity",
				string(errors.BookInvariantError), "filled", o,
			)
		}
		if !o.Remaining().IsPositive() {
			return errors.NewErrorDetailsWithObject(
				"resting order has no remaining quantity",
				string(errors.BookInvariantError), "quantity", o,
			)
		}
	}
	return nil
}
