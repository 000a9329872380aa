package orderv1

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
)

// AssetType identifies a fungible energy commodity.
type AssetType string

const (
	// AssetSolar is solar-generated MWh.
	AssetSolar AssetType = "SOLAR"
	// AssetWind is wind-generated MWh.
	AssetWind AssetType = "WIND"
	// AssetHydro is hydro-generated MWh.
	AssetHydro AssetType = "HYDRO"
)

// Side represents the side of an order.
type Side string

const (
	// SideBuy represents a buy order.
	SideBuy Side = "buy"
	// SideSell represents a sell order.
	SideSell Side = "sell"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether the side is a known value.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Status represents the lifecycle state of an order.
type Status string

const (
	// StatusOpen is a resting order with no fills yet.
	StatusOpen Status = "open"
	// StatusPartiallyFilled is a resting order with some fills.
	StatusPartiallyFilled Status = "partially_filled"
	// StatusFilled is a terminal state: filled equals the original quantity.
	StatusFilled Status = "filled"
	// StatusCancelled is a terminal state. Fills executed before the
	// cancel are not reversed.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Scale is the number of fractional digits carried by prices and
// quantities. Trade value (price x quantity) must reconcile exactly with
// downstream carbon and certificate accounting, so anything finer is
// rejected at the boundary.
const Scale = 2

// Order represents a single limit order.
type Order struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerID"`
	Asset       AssetType       `json:"asset"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"` // original quantity
	Filled      decimal.Decimal `json:"filled"`
	RECAttached bool            `json:"recAttached"`
	Status      Status          `json:"status"`
	Sequence    uint64          `json:"sequence"` // arrival sequence, engine-assigned
	CreatedAt   time.Time       `json:"createdAt"`
}

// PlaceOrderRequest represents a request to submit an order to the engine.
// OrderID may be empty, in which case the engine assigns one.
type PlaceOrderRequest struct {
	OrderID     string          `json:"orderID"`
	OwnerID     string          `json:"ownerID"`
	Asset       AssetType       `json:"asset"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	RECAttached bool            `json:"recAttached"`
}

// NewOrder creates an open order from a request. The arrival sequence is
// assigned by the engine inside the asset's critical section.
func NewOrder(req *PlaceOrderRequest, id string, sequence uint64) *Order {
	return &Order{
		ID:          id,
		OwnerID:     req.OwnerID,
		Asset:       req.Asset,
		Side:        req.Side,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Filled:      decimal.Zero,
		RECAttached: req.RECAttached,
		Status:      StatusOpen,
		Sequence:    sequence,
		CreatedAt:   time.Now().UTC(),
	}
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// IsBuy reports whether the order is on the buy side.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// Restable reports whether the order may sit in a book: a non-terminal
// status and remaining quantity.
func (o *Order) Restable() bool {
	return !o.Status.Terminal() && o.Remaining().IsPositive()
}

// Crosses reports whether an incoming order at the receiver's limit
// price would trade against a resting order at restingPrice.
func (o *Order) Crosses(restingPrice decimal.Decimal) bool {
	if o.IsBuy() {
		return restingPrice.LessThanOrEqual(o.Price)
	}
	return restingPrice.GreaterThanOrEqual(o.Price)
}

// Fill applies qty to the order's filled quantity and advances the
// status. Filling past the original quantity is a book invariant
// violation, never a caller error.
func (o *Order) Fill(qty decimal.Decimal) error {
	if o.Status.Terminal() {
		return errors.NewErrorDetailsWithObject(
			"cannot fill an order in a terminal state",
			string(errors.BookInvariantError), "status", o,
		)
	}

	filled := o.Filled.Add(qty)
	if filled.GreaterThan(o.Quantity) {
		return errors.NewErrorDetailsWithObject(
			"fill exceeds order quantity",
			string(errors.BookInvariantError), "filled", o,
		)
	}

	o.Filled = filled
	if o.Filled.Equal(o.Quantity) {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	return nil
}

// Cancel transitions the order to cancelled. Terminal orders cannot be
// cancelled again.
func (o *Order) Cancel() error {
	if o.Status.Terminal() {
		return errors.NewErrorDetailsWithObject(
			"order is already filled or cancelled",
			string(errors.OrderInvalidStateError), "status", o,
		)
	}
	o.Status = StatusCancelled
	return nil
}

// ValidateAmount checks that a price or quantity value is positive and
// carries at most Scale fractional digits.
func ValidateAmount(value decimal.Decimal, field string) error {
	if !value.IsPositive() {
		return errors.NewErrorDetails(field+" must be positive", string(errors.OrderValidationError), field)
	}
	if !value.Equal(value.Truncate(Scale)) {
		return errors.NewErrorDetails(field+" exceeds 2 decimal places", string(errors.OrderValidationError), field)
	}
	return nil
}

// Validate checks request shape: side, price and quantity. Asset
// validity is the catalog's concern.
func (r *PlaceOrderRequest) Validate() error {
	if !r.Side.Valid() {
		return errors.NewErrorDetails("unknown order side", string(errors.OrderValidationError), "side")
	}
	if err := ValidateAmount(r.Price, "price"); err != nil {
		return err
	}
	return ValidateAmount(r.Quantity, "quantity")
}
