package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
)

var seq uint64

func testOrder(id string, side orderv1.Side, price, qty string) *orderv1.Order {
	seq++
	req := &orderv1.PlaceOrderRequest{
		OwnerID:  "user-" + id,
		Asset:    orderv1.AssetSolar,
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
	return orderv1.NewOrder(req, id, seq)
}

func TestBook_Insert(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	require.NoError(t, b.Insert(testOrder("a1", orderv1.SideSell, "26.00", "50")))
	require.NoError(t, b.Insert(testOrder("a2", orderv1.SideSell, "26.00", "30")))
	require.NoError(t, b.Insert(testOrder("b1", orderv1.SideBuy, "25.00", "40")))

	assert.True(t, b.Contains("a1"))
	assert.True(t, b.Contains("b1"))

	asks := b.Depth(orderv1.SideSell)
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Quantity.Equal(decimal.RequireFromString("80")))
	assert.Equal(t, 2, asks[0].Count)
}

func TestBook_Insert_Rejections(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	wind := testOrder("w1", orderv1.SideBuy, "25.00", "40")
	wind.Asset = orderv1.AssetWind
	err := b.Insert(wind)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	dup := testOrder("d1", orderv1.SideBuy, "25.00", "40")
	require.NoError(t, b.Insert(dup))
	err = b.Insert(dup)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestBook_BestOpposing_PriceThenArrival(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	// Asks at two levels, arrival order a1, a2, a3.
	a1 := testOrder("a1", orderv1.SideSell, "26.00", "50")
	a2 := testOrder("a2", orderv1.SideSell, "25.00", "30")
	a3 := testOrder("a3", orderv1.SideSell, "25.00", "20")
	require.NoError(t, b.Insert(a1))
	require.NoError(t, b.Insert(a2))
	require.NoError(t, b.Insert(a3))

	// A buy at 26 crosses both levels: best price first, then arrival.
	got := b.BestOpposing(orderv1.SideBuy, decimal.RequireFromString("26.00"))
	require.Len(t, got, 3)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "a3", got[1].ID)
	assert.Equal(t, "a1", got[2].ID)

	// A buy at 25.50 only reaches the 25.00 level.
	got = b.BestOpposing(orderv1.SideBuy, decimal.RequireFromString("25.50"))
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)

	// A buy below the best ask crosses nothing.
	got = b.BestOpposing(orderv1.SideBuy, decimal.RequireFromString("24.00"))
	assert.Empty(t, got)
}

func TestBook_BestOpposing_SellAgainstBids(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	b1 := testOrder("b1", orderv1.SideBuy, "24.00", "10")
	b2 := testOrder("b2", orderv1.SideBuy, "25.00", "10")
	require.NoError(t, b.Insert(b1))
	require.NoError(t, b.Insert(b2))

	got := b.BestOpposing(orderv1.SideSell, decimal.RequireFromString("24.00"))
	require.Len(t, got, 2)
	// Highest bid first.
	assert.Equal(t, "b2", got[0].ID)
	assert.Equal(t, "b1", got[1].ID)
}

func TestBook_Remove_Idempotent(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	o := testOrder("o1", orderv1.SideBuy, "25.00", "40")
	require.NoError(t, b.Insert(o))

	b.Remove("o1")
	assert.False(t, b.Contains("o1"))
	assert.Empty(t, b.Depth(orderv1.SideBuy))

	// Removing again, or removing an unknown id, is a no-op.
	b.Remove("o1")
	b.Remove("nope")
}

func TestBook_Reduce_EvictsFilled(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	o := testOrder("o1", orderv1.SideSell, "26.00", "50")
	require.NoError(t, b.Insert(o))

	qty := decimal.RequireFromString("20")
	require.NoError(t, o.Fill(qty))
	b.Reduce(o, qty)
	assert.True(t, b.Contains("o1"))

	depth := b.Depth(orderv1.SideSell)
	require.Len(t, depth, 1)
	assert.True(t, depth[0].Quantity.Equal(decimal.RequireFromString("30")))

	rest := decimal.RequireFromString("30")
	require.NoError(t, o.Fill(rest))
	b.Reduce(o, rest)
	assert.False(t, b.Contains("o1"))
	assert.Empty(t, b.Depth(orderv1.SideSell))
}

func TestBook_BestBidAsk(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	_, ok := b.BestBid()
	assert.False(t, ok)

	require.NoError(t, b.Insert(testOrder("b1", orderv1.SideBuy, "24.00", "10")))
	require.NoError(t, b.Insert(testOrder("b2", orderv1.SideBuy, "25.00", "10")))
	require.NoError(t, b.Insert(testOrder("a1", orderv1.SideSell, "27.00", "10")))
	require.NoError(t, b.Insert(testOrder("a2", orderv1.SideSell, "26.00", "10")))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(decimal.RequireFromString("25.00")))

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Price.Equal(decimal.RequireFromString("26.00")))
}

func TestBook_CheckInvariant(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	require.NoError(t, b.Insert(testOrder("b1", orderv1.SideBuy, "25.00", "10")))
	require.NoError(t, b.Insert(testOrder("a1", orderv1.SideSell, "26.00", "10")))
	require.NoError(t, b.CheckInvariant())

	// Force a crossed book; the engine would never rest this.
	require.NoError(t, b.Insert(testOrder("a2", orderv1.SideSell, "24.00", "10")))
	err := b.CheckInvariant()
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))
}

func TestBook_RestingOrders_ArrivalOrder(t *testing.T) {
	b := NewBook(orderv1.AssetSolar)

	o1 := testOrder("r1", orderv1.SideBuy, "25.00", "10")
	o2 := testOrder("r2", orderv1.SideSell, "26.00", "10")
	o3 := testOrder("r3", orderv1.SideBuy, "24.00", "10")
	require.NoError(t, b.Insert(o2))
	require.NoError(t, b.Insert(o3))
	require.NoError(t, b.Insert(o1))

	got := b.RestingOrders()
	require.Len(t, got, 3)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "r2", got[1].ID)
	assert.Equal(t, "r3", got[2].ID)
}
