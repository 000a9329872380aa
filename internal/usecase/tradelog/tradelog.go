package tradelog

import (
	"sync"

	"github.com/shopspring/decimal"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	tradev1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/trade/v1"
)

// Log is the engine's append-only audit record of executed trades. It
// owns the global execution sequence: appends from different asset
// shards interleave, but every trade gets a strictly increasing
// sequence number and the log iterates in that order.
type Log struct {
	mu     sync.RWMutex
	seq    uint64
	trades []*tradev1.Trade
}

// New creates an empty trade log.
func New() *Log {
	return &Log{}
}

// Append assigns the next execution sequence to the trade and records
// it. Returns the assigned sequence.
func (l *Log) Append(trade *tradev1.Trade) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	trade.Sequence = l.seq
	l.trades = append(l.trades, trade)
	return l.seq
}

// Sequence returns the last assigned execution sequence.
func (l *Log) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Resume fast-forwards the sequence counter after a snapshot restore so
// new trades continue the audit ordering.
func (l *Log) Resume(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq > l.seq {
		l.seq = seq
	}
}

// Len returns the number of recorded trades.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// Trades returns all trades in execution-sequence order.
func (l *Log) Trades() []*tradev1.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*tradev1.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// TradesForOrder returns the trades in which the order participated, in
// execution-sequence order.
func (l *Log) TradesForOrder(orderID string) []*tradev1.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*tradev1.Trade
	for _, t := range l.trades {
		if t.BuyOrderID == orderID || t.SellOrderID == orderID {
			out = append(out, t)
		}
	}
	return out
}

// Summary aggregates the executed trades of one asset for market
// reporting.
type Summary struct {
	Asset        orderv1.AssetType `json:"asset"`
	TradeCount   int               `json:"tradeCount"`
	TotalVolume  decimal.Decimal   `json:"totalVolume"`
	TotalValue   decimal.Decimal   `json:"totalValue"`
	AveragePrice decimal.Decimal   `json:"averagePrice"` // volume-weighted
}

// Summarize computes the market summary for one asset.
func (l *Log) Summarize(asset orderv1.AssetType) Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{
		Asset:       asset,
		TotalVolume: decimal.Zero,
		TotalValue:  decimal.Zero,
	}
	for _, t := range l.trades {
		if t.Asset != asset {
			continue
		}
		s.TradeCount++
		s.TotalVolume = s.TotalVolume.Add(t.Quantity)
		s.TotalValue = s.TotalValue.Add(t.Value())
	}
	if s.TotalVolume.IsPositive() {
		s.AveragePrice = s.TotalValue.Div(s.TotalVolume).Round(orderv1.Scale)
	} else {
		s.AveragePrice = decimal.Zero
	}
	return s
}
