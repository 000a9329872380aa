package carbon

import (
	"github.com/shopspring/decimal"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	tradev1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/trade/v1"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/tradelog"
)

// offsetRates is the CO2 displaced per traded MWh, in tonnes.
var offsetRates = map[orderv1.AssetType]decimal.Decimal{
	orderv1.AssetSolar: decimal.NewFromFloat(0.9),
	orderv1.AssetWind:  decimal.NewFromFloat(0.8),
	orderv1.AssetHydro: decimal.NewFromFloat(0.7),
}

// OffsetForTrade returns the carbon offset attributable to one trade.
// Assets without a configured rate contribute zero.
func OffsetForTrade(trade *tradev1.Trade) decimal.Decimal {
	rate, ok := offsetRates[trade.Asset]
	if !ok {
		return decimal.Zero
	}
	return trade.Quantity.Mul(rate)
}

// Reporter computes carbon impact figures from the trade log. It is a
// read-only downstream consumer and never touches engine state.
type Reporter struct {
	log *tradelog.Log
}

// NewReporter creates a reporter over the given trade log.
func NewReporter(log *tradelog.Log) *Reporter {
	return &Reporter{log: log}
}

// TotalOffset returns the cumulative offset across all executed trades.
func (r *Reporter) TotalOffset() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.log.Trades() {
		total = total.Add(OffsetForTrade(t))
	}
	return total
}

// OffsetByAsset breaks the cumulative offset down per asset.
func (r *Reporter) OffsetByAsset() map[orderv1.AssetType]decimal.Decimal {
	out := make(map[orderv1.AssetType]decimal.Decimal)
	for _, t := range r.log.Trades() {
		out[t.Asset] = out[t.Asset].Add(OffsetForTrade(t))
	}
	return out
}
