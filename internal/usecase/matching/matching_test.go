package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
)

func testOrder(id string, side orderv1.Side, price, qty string, seq uint64) *orderv1.Order {
	req := &orderv1.PlaceOrderRequest{
		OwnerID:  "user-" + id,
		Asset:    orderv1.AssetWind,
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
	return orderv1.NewOrder(req, id, seq)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"price_time", "fifo", "pro_rata"} {
		p, err := ParsePolicy(s)
		require.NoError(t, err)
		assert.Equal(t, Policy(s), p)
	}

	_, err := ParsePolicy("lifo")
	require.Error(t, err)
}

func TestPlan_PriceTime_WalksInGivenOrder(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "26.00", "70", 10)
	candidates := []*orderv1.Order{
		testOrder("m1", orderv1.SideSell, "25.00", "30", 1),
		testOrder("m2", orderv1.SideSell, "25.00", "20", 2),
		testOrder("m3", orderv1.SideSell, "26.00", "50", 3),
	}

	plan := Plan(taker, candidates, PolicyPriceTime)
	require.Len(t, plan, 3)
	assert.Equal(t, "m1", plan[0].Order.ID)
	assert.True(t, plan[0].Quantity.Equal(dec("30")))
	assert.Equal(t, "m2", plan[1].Order.ID)
	assert.True(t, plan[1].Quantity.Equal(dec("20")))
	assert.Equal(t, "m3", plan[2].Order.ID)
	assert.True(t, plan[2].Quantity.Equal(dec("20")))
}

func TestPlan_PriceTime_StopsWhenTakerExhausted(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "26.00", "25", 10)
	candidates := []*orderv1.Order{
		testOrder("m1", orderv1.SideSell, "25.00", "30", 1),
		testOrder("m2", orderv1.SideSell, "25.00", "20", 2),
	}

	plan := Plan(taker, candidates, PolicyPriceTime)
	require.Len(t, plan, 1)
	assert.True(t, plan[0].Quantity.Equal(dec("25")))
}

func TestPlan_FIFO_ArrivalBeatsPrice(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "26.00", "40", 10)
	// m1 arrived first but at a worse price; FIFO still serves it first.
	candidates := []*orderv1.Order{
		testOrder("m2", orderv1.SideSell, "25.00", "30", 2),
		testOrder("m1", orderv1.SideSell, "26.00", "30", 1),
	}

	plan := Plan(taker, candidates, PolicyFIFO)
	require.Len(t, plan, 2)
	assert.Equal(t, "m1", plan[0].Order.ID)
	assert.True(t, plan[0].Quantity.Equal(dec("30")))
	assert.Equal(t, "m2", plan[1].Order.ID)
	assert.True(t, plan[1].Quantity.Equal(dec("10")))
}

func TestPlan_ProRata_ProportionalSplit(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "25.00", "50", 10)
	candidates := []*orderv1.Order{
		testOrder("m1", orderv1.SideSell, "25.00", "60", 1),
		testOrder("m2", orderv1.SideSell, "25.00", "40", 2),
	}

	plan := Plan(taker, candidates, PolicyProRata)
	require.Len(t, plan, 2)
	// 50 * 60/100 = 30, 50 * 40/100 = 20, no remainder.
	assert.True(t, plan[0].Quantity.Equal(dec("30")))
	assert.True(t, plan[1].Quantity.Equal(dec("20")))
}

func TestPlan_ProRata_RemainderToEarliestArrival(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "25.00", "10", 10)
	candidates := []*orderv1.Order{
		testOrder("m1", orderv1.SideSell, "25.00", "1", 1),
		testOrder("m2", orderv1.SideSell, "25.00", "1", 2),
		testOrder("m3", orderv1.SideSell, "25.00", "1", 3),
	}

	// Level total 3 < taker 10: fully consumed, no rounding involved.
	plan := Plan(taker, candidates, PolicyProRata)
	require.Len(t, plan, 3)
	total := decimal.Zero
	for _, a := range plan {
		total = total.Add(a.Quantity)
	}
	assert.True(t, total.Equal(dec("3")))
}

func TestPlan_ProRata_RoundingRemainder(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "25.00", "1", 10)
	candidates := []*orderv1.Order{
		testOrder("m1", orderv1.SideSell, "25.00", "1", 1),
		testOrder("m2", orderv1.SideSell, "25.00", "1", 2),
		testOrder("m3", orderv1.SideSell, "25.00", "1", 3),
	}

	// 1/3 truncates to 0.33 each; the 0.01 remainder goes to m1.
	plan := Plan(taker, candidates, PolicyProRata)
	require.Len(t, plan, 3)

	byID := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, a := range plan {
		byID[a.Order.ID] = a.Quantity
		total = total.Add(a.Quantity)
	}
	assert.True(t, total.Equal(dec("1")), "allocations must sum to the taker quantity exactly")
	assert.True(t, byID["m1"].Equal(dec("0.34")))
	assert.True(t, byID["m2"].Equal(dec("0.33")))
	assert.True(t, byID["m3"].Equal(dec("0.33")))
}

func TestPlan_ProRata_BetterLevelConsumedFirst(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "26.00", "50", 10)
	candidates := []*orderv1.Order{
		testOrder("m1", orderv1.SideSell, "25.00", "30", 1),
		testOrder("m2", orderv1.SideSell, "26.00", "60", 2),
		testOrder("m3", orderv1.SideSell, "26.00", "40", 3),
	}

	plan := Plan(taker, candidates, PolicyProRata)
	require.Len(t, plan, 3)
	// The 25.00 level is drained outright; the remaining 20 splits
	// 60:40 at the 26.00 level.
	assert.Equal(t, "m1", plan[0].Order.ID)
	assert.True(t, plan[0].Quantity.Equal(dec("30")))
	assert.True(t, plan[1].Quantity.Equal(dec("12")))
	assert.True(t, plan[2].Quantity.Equal(dec("8")))
}

func TestPlan_DoesNotMutateInputs(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "25.00", "50", 10)
	maker := testOrder("m1", orderv1.SideSell, "25.00", "60", 1)

	plan := Plan(taker, []*orderv1.Order{maker}, PolicyPriceTime)
	require.Len(t, plan, 1)

	assert.True(t, taker.Filled.IsZero())
	assert.True(t, maker.Filled.IsZero())
	assert.Equal(t, orderv1.StatusOpen, maker.Status)
}

func TestPlan_EmptyInputs(t *testing.T) {
	taker := testOrder("t", orderv1.SideBuy, "25.00", "50", 10)
	assert.Nil(t, Plan(taker, nil, PolicyPriceTime))

	require.NoError(t, taker.Fill(dec("50")))
	maker := testOrder("m1", orderv1.SideSell, "25.00", "60", 1)
	assert.Nil(t, Plan(taker, []*orderv1.Order{maker}, PolicyPriceTime))
}
