package tradev1

import (
	"time"

	"github.com/shopspring/decimal"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
)

// Trade is an immutable record of a single execution between two orders.
// The price is always the resting (maker) order's price.
type Trade struct {
	ID          string            `json:"id"`
	BuyOrderID  string            `json:"buyOrderID"`
	SellOrderID string            `json:"sellOrderID"`
	BuyerID     string            `json:"buyerID"`
	SellerID    string            `json:"sellerID"`
	Asset       orderv1.AssetType `json:"asset"`
	Price       decimal.Decimal   `json:"price"`
	Quantity    decimal.Decimal   `json:"quantity"`
	RECAttached bool              `json:"recAttached"`
	Sequence    uint64            `json:"sequence"` // global execution sequence, audit order
	ExecutedAt  time.Time         `json:"executedAt"`
}

// Value returns price x quantity, the settled amount of the trade.
func (t *Trade) Value() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// New builds a trade between a taker and the maker it executed against.
// The sequence is assigned later by the trade log.
func New(id string, taker, maker *orderv1.Order, qty decimal.Decimal) *Trade {
	t := &Trade{
		ID:         id,
		Asset:      taker.Asset,
		Price:      maker.Price,
		Quantity:   qty,
		ExecutedAt: time.Now().UTC(),
	}

	buy, sell := maker, taker
	if taker.IsBuy() {
		buy, sell = taker, maker
	}
	t.BuyOrderID = buy.ID
	t.SellOrderID = sell.ID
	t.BuyerID = buy.OwnerID
	t.SellerID = sell.OwnerID
	// REC linkage follows the seller: the certificate travels with the
	// generation being sold.
	t.RECAttached = sell.RECAttached

	return t
}
