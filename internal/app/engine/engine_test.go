package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewayv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/gateway/v1"
	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	tradev1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/trade/v1"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/matching"
	"github.com/TIWARINEERAJ/GreenIEX/internal/usecase/tradelog"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
)

// fakePersistence records stored orders and trades, optionally failing
// every call.
type fakePersistence struct {
	mu     sync.Mutex
	orders []*orderv1.Order
	trades []*tradev1.Trade
	fail   error
}

func (f *fakePersistence) StoreOrder(ctx context.Context, order *orderv1.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakePersistence) StoreTrade(ctx context.Context, trade *tradev1.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.trades = append(f.trades, trade)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	updates []*gatewayv1.MarketUpdate
	fail    error
}

func (f *fakeNotifier) PublishUpdate(ctx context.Context, update *gatewayv1.MarketUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.updates = append(f.updates, update)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	return log
}

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	catalog := gatewayv1.NewStaticCatalog(orderv1.AssetSolar, orderv1.AssetWind, orderv1.AssetHydro)
	return New(catalog, tradelog.New(), testLogger(t), opts...)
}

func placeReq(asset orderv1.AssetType, side orderv1.Side, price, qty string) *orderv1.PlaceOrderRequest {
	return &orderv1.PlaceOrderRequest{
		OwnerID:  "owner-" + string(side),
		Asset:    asset,
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEngine_ExactMatch(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	sell, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.50", "100"))
	require.NoError(t, err)
	assert.Empty(t, sell.Trades)
	assert.Equal(t, orderv1.StatusOpen, sell.Order.Status)

	buy, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.50", "100"))
	require.NoError(t, err)
	require.Len(t, buy.Trades, 1)

	trade := buy.Trades[0]
	assert.True(t, trade.Price.Equal(dec("3.50")))
	assert.True(t, trade.Quantity.Equal(dec("100")))
	assert.Equal(t, sell.Order.ID, trade.SellOrderID)
	assert.Equal(t, buy.Order.ID, trade.BuyOrderID)

	assert.Equal(t, orderv1.StatusFilled, buy.Order.Status)
	assert.Equal(t, orderv1.StatusFilled, sell.Order.Status)

	// Both sides of the book are empty again.
	update, err := e.DepthSnapshot(orderv1.AssetSolar)
	require.NoError(t, err)
	assert.Empty(t, update.Bids)
	assert.Empty(t, update.Asks)
}

func TestEngine_TimePriorityAtSamePrice(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	s1, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.40", "50"))
	require.NoError(t, err)
	s2, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.40", "80"))
	require.NoError(t, err)

	buy, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.45", "100"))
	require.NoError(t, err)
	require.Len(t, buy.Trades, 2)

	assert.Equal(t, s1.Order.ID, buy.Trades[0].SellOrderID)
	assert.True(t, buy.Trades[0].Quantity.Equal(dec("50")))
	assert.Equal(t, s2.Order.ID, buy.Trades[1].SellOrderID)
	assert.True(t, buy.Trades[1].Quantity.Equal(dec("50")))

	assert.Equal(t, orderv1.StatusFilled, s1.Order.Status)
	assert.Equal(t, orderv1.StatusPartiallyFilled, s2.Order.Status)
	assert.True(t, s2.Order.Remaining().Equal(dec("30")))
	assert.Equal(t, orderv1.StatusFilled, buy.Order.Status)
}

func TestEngine_MakerPrice(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	_, err := e.Submit(ctx, placeReq(orderv1.AssetWind, orderv1.SideSell, "3.00", "50"))
	require.NoError(t, err)

	// Taker is willing to pay 3.20 but executes at the resting 3.00.
	buy, err := e.Submit(ctx, placeReq(orderv1.AssetWind, orderv1.SideBuy, "3.20", "50"))
	require.NoError(t, err)
	require.Len(t, buy.Trades, 1)
	assert.True(t, buy.Trades[0].Price.Equal(dec("3.00")))
}

func TestEngine_NoCross_RestsOpen(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	res, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "50"))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, orderv1.StatusOpen, res.Order.Status)

	update, err := e.DepthSnapshot(orderv1.AssetSolar)
	require.NoError(t, err)
	require.Len(t, update.Bids, 1)
	assert.True(t, update.Bids[0].Price.Equal(dec("3.00")))
	assert.True(t, update.Bids[0].Quantity.Equal(dec("50")))
	assert.Equal(t, 1, update.Bids[0].Count)
}

func TestEngine_Cancel(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	res, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "50"))
	require.NoError(t, err)

	cancelled, err := e.Cancel(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderv1.StatusCancelled, cancelled.Order.Status)
	assert.Empty(t, cancelled.Update.Bids)

	// Second cancel of the same id is an invalid-state rejection.
	_, err = e.Cancel(ctx, res.Order.ID)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidState(err))

	_, err = e.Cancel(ctx, "no-such-order")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestEngine_CancelPreservesFills(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	sell, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.00", "100"))
	require.NoError(t, err)
	_, err = e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "40"))
	require.NoError(t, err)

	res, err := e.Cancel(ctx, sell.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderv1.StatusCancelled, res.Order.Status)
	assert.True(t, res.Order.Filled.Equal(dec("40")))
	assert.Equal(t, 1, e.TradeLog().Len())
}

func TestEngine_ProRata(t *testing.T) {
	e := testEngine(t, WithPolicy(matching.PolicyProRata))
	ctx := context.Background()

	s1, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.00", "60"))
	require.NoError(t, err)
	s2, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.00", "40"))
	require.NoError(t, err)

	buy, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "100"))
	require.NoError(t, err)
	require.Len(t, buy.Trades, 2)

	qtyBySeller := map[string]decimal.Decimal{}
	for _, tr := range buy.Trades {
		qtyBySeller[tr.SellOrderID] = tr.Quantity
	}
	assert.True(t, qtyBySeller[s1.Order.ID].Equal(dec("60")))
	assert.True(t, qtyBySeller[s2.Order.ID].Equal(dec("40")))
	assert.Equal(t, orderv1.StatusFilled, buy.Order.Status)
}

func TestEngine_Validation(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	_, err := e.Submit(ctx, placeReq("COAL", orderv1.SideBuy, "3.00", "50"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.001", "50"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "-3.00", "50"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestEngine_DuplicateOrderID(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	req := placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "50")
	req.OrderID = "fixed-id"
	_, err := e.Submit(ctx, req)
	require.NoError(t, err)

	_, err = e.Submit(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestEngine_OrderIDUniqueAcrossAssets(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	req := placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "50")
	req.OrderID = "shared-id"
	_, err := e.Submit(ctx, req)
	require.NoError(t, err)

	// The same id on another asset must be rejected, not shadow the
	// first order in the id index.
	other := placeReq(orderv1.AssetWind, orderv1.SideBuy, "3.20", "50")
	other.OrderID = "shared-id"
	_, err = e.Submit(ctx, other)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	got, err := e.GetOrder("shared-id")
	require.NoError(t, err)
	assert.Equal(t, orderv1.AssetSolar, got.Asset)

	res, err := e.Cancel(ctx, "shared-id")
	require.NoError(t, err)
	assert.Equal(t, orderv1.StatusCancelled, res.Order.Status)

	update, err := e.DepthSnapshot(orderv1.AssetSolar)
	require.NoError(t, err)
	assert.Empty(t, update.Bids)
}

func TestEngine_HaltsAssetOnInvariantViolation(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	rested, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.00", "50"))
	require.NoError(t, err)

	// Corrupt the resting order so the next invariant check trips.
	rested.Order.Filled = dec("60")

	_, err = e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "2.00", "10"))
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))

	// The asset stays halted: every further operation on it fails with
	// the original violation.
	_, err = e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "2.00", "10"))
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))

	_, err = e.DepthSnapshot(orderv1.AssetSolar)
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))

	// Other assets keep trading.
	_, err = e.Submit(ctx, placeReq(orderv1.AssetWind, orderv1.SideSell, "3.20", "25"))
	require.NoError(t, err)
}

func TestEngine_QuantityConservation(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	submitted := decimal.Zero
	for i := 0; i < 10; i++ {
		qty := fmt.Sprintf("%d", 10+i*7)
		_, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.00", qty))
		require.NoError(t, err)
		submitted = submitted.Add(dec(qty))
	}

	buy, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "200"))
	require.NoError(t, err)

	traded := decimal.Zero
	for _, tr := range buy.Trades {
		traded = traded.Add(tr.Quantity)
	}
	assert.True(t, traded.Equal(buy.Order.Filled))

	// What was not traded still rests on the ask side.
	update, err := e.DepthSnapshot(orderv1.AssetSolar)
	require.NoError(t, err)
	resting := decimal.Zero
	for _, level := range update.Asks {
		resting = resting.Add(level.Quantity)
	}
	assert.True(t, traded.Add(resting).Equal(submitted))
}

func TestEngine_RECFollowsSeller(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	sellReq := placeReq(orderv1.AssetHydro, orderv1.SideSell, "2.80", "25")
	sellReq.RECAttached = true
	_, err := e.Submit(ctx, sellReq)
	require.NoError(t, err)

	buy, err := e.Submit(ctx, placeReq(orderv1.AssetHydro, orderv1.SideBuy, "2.80", "25"))
	require.NoError(t, err)
	require.Len(t, buy.Trades, 1)
	assert.True(t, buy.Trades[0].RECAttached)
}

func TestEngine_GatewayFanOut(t *testing.T) {
	store := &fakePersistence{}
	notif := &fakeNotifier{}
	e := testEngine(t, WithPersistence(store), WithNotification(notif))
	ctx := context.Background()

	_, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.50", "100"))
	require.NoError(t, err)
	res, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.50", "100"))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	store.mu.Lock()
	assert.Len(t, store.trades, 1)
	// Maker and taker from the match, plus the first submit's rest.
	assert.Len(t, store.orders, 3)
	store.mu.Unlock()

	notif.mu.Lock()
	require.Len(t, notif.updates, 2)
	last := notif.updates[1]
	assert.Equal(t, orderv1.AssetSolar, last.Asset)
	assert.Len(t, last.Trades, 1)
	notif.mu.Unlock()
}

func TestEngine_GatewayFailureIsWarning(t *testing.T) {
	store := &fakePersistence{fail: fmt.Errorf("store unavailable")}
	notif := &fakeNotifier{fail: fmt.Errorf("bus unavailable")}
	e := testEngine(t, WithPersistence(store), WithNotification(notif))
	ctx := context.Background()

	res, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "50"))
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 2)

	// The order rested despite the gateway failures.
	update, err := e.DepthSnapshot(orderv1.AssetSolar)
	require.NoError(t, err)
	assert.Len(t, update.Bids, 1)
}

func TestEngine_CrossAssetParallelism(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	assets := []orderv1.AssetType{orderv1.AssetSolar, orderv1.AssetWind, orderv1.AssetHydro}

	var wg sync.WaitGroup
	for _, asset := range assets {
		wg.Add(1)
		go func(a orderv1.AssetType) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := e.Submit(ctx, placeReq(a, orderv1.SideSell, "3.00", "10"))
				assert.NoError(t, err)
				_, err = e.Submit(ctx, placeReq(a, orderv1.SideBuy, "3.00", "10"))
				assert.NoError(t, err)
			}
		}(asset)
	}
	wg.Wait()

	assert.Equal(t, 150, e.TradeLog().Len())
	for _, asset := range assets {
		update, err := e.DepthSnapshot(asset)
		require.NoError(t, err)
		assert.Empty(t, update.Bids, "asset %s", asset)
		assert.Empty(t, update.Asks, "asset %s", asset)

		summary := e.TradeLog().Summarize(asset)
		assert.Equal(t, 50, summary.TradeCount)
		assert.True(t, summary.TotalVolume.Equal(dec("500")))
	}

	// Execution sequences are unique and dense across assets.
	seen := map[uint64]bool{}
	for _, tr := range e.TradeLog().Trades() {
		assert.False(t, seen[tr.Sequence])
		seen[tr.Sequence] = true
	}
}

func TestEngine_SnapshotRestore(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	_, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "50"))
	require.NoError(t, err)
	_, err = e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.10", "40"))
	require.NoError(t, err)
	_, err = e.Submit(ctx, placeReq(orderv1.AssetWind, orderv1.SideSell, "2.50", "20"))
	require.NoError(t, err)

	snap := e.CreateSnapshot()
	require.Len(t, snap.Books, 3)

	restored := testEngine(t)
	require.NoError(t, restored.RestoreSnapshot(snap))

	for _, asset := range []orderv1.AssetType{orderv1.AssetSolar, orderv1.AssetWind, orderv1.AssetHydro} {
		want, err := e.DepthSnapshot(asset)
		require.NoError(t, err)
		got, err := restored.DepthSnapshot(asset)
		require.NoError(t, err)
		assert.Equal(t, want.Bids, got.Bids)
		assert.Equal(t, want.Asks, got.Asks)
	}

	// Matching picks up where the original left off: the restored bid
	// still crosses a new sell.
	res, err := restored.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.00", "50"))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Price.Equal(dec("3.00")))
}

func TestEngine_ReplayDeterminism(t *testing.T) {
	script := []*orderv1.PlaceOrderRequest{
		placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.40", "50"),
		placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.40", "80"),
		placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.30", "20"),
		placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.45", "100"),
		placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.20", "40"),
		placeReq(orderv1.AssetSolar, orderv1.SideSell, "3.20", "10"),
	}
	for i, req := range script {
		req.OrderID = fmt.Sprintf("o%d", i)
	}

	run := func() (*Engine, []*tradev1.Trade) {
		e := testEngine(t)
		for _, req := range script {
			r := *req
			_, err := e.Submit(context.Background(), &r)
			require.NoError(t, err)
		}
		return e, e.TradeLog().Trades()
	}

	e1, trades1 := run()
	e2, trades2 := run()

	require.Equal(t, len(trades1), len(trades2))
	for i := range trades1 {
		assert.Equal(t, trades1[i].BuyOrderID, trades2[i].BuyOrderID)
		assert.Equal(t, trades1[i].SellOrderID, trades2[i].SellOrderID)
		assert.True(t, trades1[i].Price.Equal(trades2[i].Price))
		assert.True(t, trades1[i].Quantity.Equal(trades2[i].Quantity))
		assert.Equal(t, trades1[i].Sequence, trades2[i].Sequence)
	}

	d1, err := e1.DepthSnapshot(orderv1.AssetSolar)
	require.NoError(t, err)
	d2, err := e2.DepthSnapshot(orderv1.AssetSolar)
	require.NoError(t, err)
	assert.Equal(t, d1.Bids, d2.Bids)
	assert.Equal(t, d1.Asks, d2.Asks)
}

func TestEngine_GetOrder(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	res, err := e.Submit(ctx, placeReq(orderv1.AssetSolar, orderv1.SideBuy, "3.00", "50"))
	require.NoError(t, err)

	got, err := e.GetOrder(res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, got.ID)

	_, err = e.GetOrder("missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
