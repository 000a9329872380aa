package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	gatewayv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/gateway/v1"
	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	snapshotv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/snapshot/v1"
	tradev1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/trade/v1"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/matching"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/orderbook"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/tradelog"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
)

// shard owns one asset's book and everything that must mutate atomically
// with it. All writes happen under mu; depth reads take the read lock so
// a snapshot can never observe a half-applied match.
type shard struct {
	mu      sync.RWMutex
	book    *orderbook.Book
	orders  map[string]*orderv1.Order // every order routed to this asset, incl. terminal
	version uint64                    // bumped on each mutation, carried on updates
	halted  error                     // fatal invariant violation, poisons the shard
}

// Engine is the single source of truth for the order books. It
// serializes mutations per asset, emits trades through the trade log,
// and fans out to the persistence and notification gateways strictly
// after the critical section releases.
type Engine struct {
	catalog  gatewayv1.AssetCatalog
	policy   matching.Policy
	shards   map[orderv1.AssetType]*shard
	tradeLog *tradelog.Log
	logger   *logger.Logger

	persistence []gatewayv1.Persistence
	notifier    gatewayv1.Notification

	arrival atomic.Uint64
	assetOf sync.Map // orderID -> orderv1.AssetType
}

// New creates an engine with one book per catalog asset.
func New(catalog gatewayv1.AssetCatalog, tradeLog *tradelog.Log, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		policy:   matching.PolicyPriceTime,
		shards:   make(map[orderv1.AssetType]*shard),
		tradeLog: tradeLog,
		logger:   log,
	}
	for _, asset := range catalog.Assets() {
		e.shards[asset] = &shard{
			book:   orderbook.NewBook(asset),
			orders: make(map[string]*orderv1.Order),
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitResult carries the effects of a submit call. Warnings hold
// downstream gateway failures: the match itself succeeded and is never
// rolled back because persistence or fan-out failed.
type SubmitResult struct {
	Order    *orderv1.Order
	Trades   []*tradev1.Trade
	Update   *gatewayv1.MarketUpdate
	Warnings []error
}

// CancelResult carries the effects of a cancel call.
type CancelResult struct {
	Order    *orderv1.Order
	Update   *gatewayv1.MarketUpdate
	Warnings []error
}

// Submit validates the request, matches it against the asset's book and
// rests any remainder. Returns the trades created in execution-sequence
// order. The whole match runs inside the asset's critical section;
// different assets proceed in parallel.
func (e *Engine) Submit(ctx context.Context, req *orderv1.PlaceOrderRequest) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !e.catalog.Contains(req.Asset) {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("unknown asset type %q", req.Asset),
			string(errors.OrderValidationError), "asset",
		)
	}

	sh := e.shards[req.Asset]

	sh.mu.Lock()
	if err := sh.halted; err != nil {
		sh.mu.Unlock()
		return nil, err
	}

	id := req.OrderID
	if id == "" {
		id = ulid.Make().String()
	}
	// Order ids are unique across the whole engine, not per asset. The
	// id index doubles as the reservation, so two concurrent submits on
	// different assets can never both claim the same id.
	if _, dup := e.assetOf.LoadOrStore(id, req.Asset); dup {
		sh.mu.Unlock()
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("order id %s already exists", id),
			string(errors.OrderValidationError), "orderID",
		)
	}

	order := orderv1.NewOrder(req, id, e.arrival.Add(1))

	trades, err := e.match(sh, order)
	if err != nil {
		// Invariant violations halt the asset rather than risk
		// corrupting financial state.
		sh.halted = err
		sh.mu.Unlock()
		e.logger.Error(err, logger.Field{Key: "asset", Value: string(req.Asset)})
		return nil, err
	}

	if order.Restable() {
		if err := sh.book.Insert(order); err != nil {
			sh.halted = err
			sh.mu.Unlock()
			return nil, err
		}
	}
	if err := sh.book.CheckInvariant(); err != nil {
		sh.halted = err
		sh.mu.Unlock()
		e.logger.Error(err, logger.Field{Key: "asset", Value: string(req.Asset)})
		return nil, err
	}

	sh.orders[order.ID] = order
	sh.version++
	update := e.buildUpdate(sh, order.Asset)

	makers := make([]*orderv1.Order, 0, len(trades))
	for _, t := range trades {
		makerID := t.SellOrderID
		if !order.IsBuy() {
			makerID = t.BuyOrderID
		}
		makers = append(makers, sh.orders[makerID])
	}
	sh.mu.Unlock()

	warnings := e.fanOut(ctx, update, trades, append(makers, order))

	e.logger.DebugContext(ctx, "order processed",
		logger.Field{Key: "orderID", Value: order.ID},
		logger.Field{Key: "asset", Value: string(order.Asset)},
		logger.Field{Key: "trades", Value: len(trades)},
		logger.Field{Key: "status", Value: string(order.Status)},
	)

	return &SubmitResult{
		Order:    order,
		Trades:   trades,
		Update:   update,
		Warnings: warnings,
	}, nil
}

// match walks the allocation plan against the book. Caller holds the
// shard's write lock.
func (e *Engine) match(sh *shard, order *orderv1.Order) ([]*tradev1.Trade, error) {
	candidates := sh.book.BestOpposing(order.Side, order.Price)
	if len(candidates) == 0 {
		return nil, nil
	}

	plan := matching.Plan(order, candidates, e.policy)

	var trades []*tradev1.Trade
	for _, alloc := range plan {
		if !order.Remaining().IsPositive() {
			break
		}
		resting := alloc.Order
		qty := decimal.Min(alloc.Quantity, order.Remaining(), resting.Remaining())
		if !qty.IsPositive() {
			continue
		}

		trade := tradev1.New(ulid.Make().String(), order, resting, qty)
		if err := order.Fill(qty); err != nil {
			return nil, err
		}
		if err := resting.Fill(qty); err != nil {
			return nil, err
		}
		sh.book.Reduce(resting, qty)

		e.tradeLog.Append(trade)
		trades = append(trades, trade)
	}
	return trades, nil
}

// Cancel marks the order cancelled and removes it from its book. Fills
// already executed are not reversed. Losing the race against a match
// that just filled the order is reported as an invalid-state error, not
// a bug.
func (e *Engine) Cancel(ctx context.Context, orderID string) (*CancelResult, error) {
	assetVal, ok := e.assetOf.Load(orderID)
	if !ok {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("unknown order id %s", orderID),
			string(errors.OrderNotFoundError), "orderID",
		)
	}
	sh := e.shards[assetVal.(orderv1.AssetType)]

	sh.mu.Lock()
	if err := sh.halted; err != nil {
		sh.mu.Unlock()
		return nil, err
	}

	order, ok := sh.orders[orderID]
	if !ok {
		sh.mu.Unlock()
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("unknown order id %s", orderID),
			string(errors.OrderNotFoundError), "orderID",
		)
	}
	if err := order.Cancel(); err != nil {
		sh.mu.Unlock()
		return nil, err
	}
	sh.book.Remove(orderID)
	sh.version++
	update := e.buildUpdate(sh, order.Asset)
	sh.mu.Unlock()

	warnings := e.fanOut(ctx, update, nil, []*orderv1.Order{order})

	e.logger.DebugContext(ctx, "order cancelled",
		logger.Field{Key: "orderID", Value: orderID},
		logger.Field{Key: "asset", Value: string(order.Asset)},
	)

	return &CancelResult{
		Order:    order,
		Update:   update,
		Warnings: warnings,
	}, nil
}

// DepthSnapshot returns both sides' aggregated depth at a single
// consistent point in time.
func (e *Engine) DepthSnapshot(asset orderv1.AssetType) (*gatewayv1.MarketUpdate, error) {
	sh, ok := e.shards[asset]
	if !ok {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("unknown asset type %q", asset),
			string(errors.OrderValidationError), "asset",
		)
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if err := sh.halted; err != nil {
		return nil, err
	}
	return e.buildUpdate(sh, asset), nil
}

// GetOrder returns the engine's record of an order, terminal or not.
func (e *Engine) GetOrder(orderID string) (*orderv1.Order, error) {
	assetVal, ok := e.assetOf.Load(orderID)
	if !ok {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("unknown order id %s", orderID),
			string(errors.OrderNotFoundError), "orderID",
		)
	}
	sh := e.shards[assetVal.(orderv1.AssetType)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	order, ok := sh.orders[orderID]
	if !ok {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("unknown order id %s", orderID),
			string(errors.OrderNotFoundError), "orderID",
		)
	}
	return order, nil
}

// TradeLog exposes the engine's audit log to downstream readers.
func (e *Engine) TradeLog() *tradelog.Log {
	return e.tradeLog
}

// buildUpdate assembles a market update. Caller holds at least the read
// lock of the asset's shard.
func (e *Engine) buildUpdate(sh *shard, asset orderv1.AssetType) *gatewayv1.MarketUpdate {
	return &gatewayv1.MarketUpdate{
		Asset:   asset,
		Version: sh.version,
		Bids:    sh.book.Depth(orderv1.SideBuy),
		Asks:    sh.book.Depth(orderv1.SideSell),
	}
}

// fanOut pushes results to the gateways outside any shard lock. Gateway
// failures never fail the engine call; they come back as warnings.
func (e *Engine) fanOut(ctx context.Context, update *gatewayv1.MarketUpdate, trades []*tradev1.Trade, orders []*orderv1.Order) []error {
	var warnings []error

	for _, p := range e.persistence {
		for _, o := range orders {
			if err := p.StoreOrder(ctx, o); err != nil {
				warnings = append(warnings, err)
			}
		}
		for _, t := range trades {
			if err := p.StoreTrade(ctx, t); err != nil {
				warnings = append(warnings, err)
			}
		}
	}

	if e.notifier != nil {
		u := *update
		u.Trades = trades
		if err := e.notifier.PublishUpdate(ctx, &u); err != nil {
			warnings = append(warnings, err)
		}
	}

	for _, w := range warnings {
		e.logger.WarnContext(ctx, "gateway fan-out failed", logger.Field{Key: "error", Value: w.Error()})
	}
	return warnings
}

// CreateSnapshot captures every shard's resting orders and the engine
// counters. Shards are locked one at a time; the snapshot is consistent
// per asset, which is all replay needs since assets are independent.
func (e *Engine) CreateSnapshot() *snapshotv1.Snapshot {
	snap := &snapshotv1.Snapshot{
		ArrivalSequence:   e.arrival.Load(),
		ExecutionSequence: e.tradeLog.Sequence(),
	}
	for _, asset := range e.catalog.Assets() {
		sh := e.shards[asset]
		sh.mu.RLock()
		snap.Books = append(snap.Books, snapshotv1.BookSnapshot{
			Asset:   asset,
			Version: sh.version,
			Orders:  sh.book.RestingOrders(),
		})
		sh.mu.RUnlock()
	}
	return snap
}

// RestoreSnapshot rebuilds the books from a snapshot. Only valid on a
// fresh engine before any submissions.
func (e *Engine) RestoreSnapshot(snap *snapshotv1.Snapshot) error {
	if snap == nil {
		return nil
	}
	for _, bs := range snap.Books {
		sh, ok := e.shards[bs.Asset]
		if !ok {
			// A snapshot may reference assets no longer in the catalog;
			// their resting orders cannot be revived.
			e.logger.Warn("snapshot references unknown asset", logger.Field{Key: "asset", Value: string(bs.Asset)})
			continue
		}
		sh.mu.Lock()
		for _, o := range bs.Orders {
			if err := sh.book.Insert(o); err != nil {
				sh.mu.Unlock()
				return err
			}
			sh.orders[o.ID] = o
			e.assetOf.Store(o.ID, o.Asset)
		}
		sh.version = bs.Version
		sh.mu.Unlock()
	}

	for {
		cur := e.arrival.Load()
		if cur >= snap.ArrivalSequence || e.arrival.CompareAndSwap(cur, snap.ArrivalSequence) {
			break
		}
	}
	e.tradeLog.Resume(snap.ExecutionSequence)
	return nil
}
