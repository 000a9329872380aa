package gatewayv1

import (
	"context"

	bookv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/book/v1"
	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	tradev1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/trade/v1"
)

// MarketUpdate carries the effects of one mutating engine call: the
// trades produced in execution order and the resulting book depth.
// Version increases monotonically per asset so consumers can
// de-duplicate at-least-once deliveries.
type MarketUpdate struct {
	Asset   orderv1.AssetType   `json:"asset"`
	Version uint64              `json:"version"`
	Trades  []*tradev1.Trade    `json:"trades,omitempty"`
	Bids    []bookv1.LevelDepth `json:"bids"`
	Asks    []bookv1.LevelDepth `json:"asks"`
}

// Persistence receives final order and trade state after each mutating
// engine call. Implementations must be idempotent under retry: the same
// order or trade id may be stored more than once.
type Persistence interface {
	StoreOrder(ctx context.Context, order *orderv1.Order) error
	StoreTrade(ctx context.Context, trade *tradev1.Trade) error
}

// Notification pushes market updates to subscribers, at-least-once.
type Notification interface {
	PublishUpdate(ctx context.Context, update *MarketUpdate) error
}

// AssetCatalog supplies the set of valid asset types at engine
// configuration time.
type AssetCatalog interface {
	Contains(asset orderv1.AssetType) bool
	Assets() []orderv1.AssetType
}

// StaticCatalog is an AssetCatalog over a fixed set of assets.
type StaticCatalog struct {
	assets map[orderv1.AssetType]struct{}
	order  []orderv1.AssetType
}

// NewStaticCatalog builds a catalog from the configured asset tokens.
func NewStaticCatalog(assets ...orderv1.AssetType) *StaticCatalog {
	c := &StaticCatalog{
		assets: make(map[orderv1.AssetType]struct{}, len(assets)),
	}
	for _, a := range assets {
		if _, ok := c.assets[a]; ok {
			continue
		}
		c.assets[a] = struct{}{}
		c.order = append(c.order, a)
	}
	return c
}

// Contains reports whether asset is tradable.
func (c *StaticCatalog) Contains(asset orderv1.AssetType) bool {
	_, ok := c.assets[asset]
	return ok
}

// Assets lists the catalog in configuration order.
func (c *StaticCatalog) Assets() []orderv1.AssetType {
	out := make([]orderv1.AssetType, len(c.order))
	copy(out, c.order)
	return out
}
