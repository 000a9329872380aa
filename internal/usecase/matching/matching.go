package matching

import (
	"sort"

	"github.com/shopspring/decimal"

	orderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
)

// Policy selects how a taker's quantity is allocated across eligible
// resting orders. Price eligibility is decided by the book before
// planning; policies only change the ordering and the split.
type Policy string

const (
	// PolicyPriceTime ranks candidates by best price, then earliest
	// arrival. The default, and the order BestOpposing already returns.
	PolicyPriceTime Policy = "price_time"
	// PolicyFIFO ranks candidates purely by arrival, ignoring price
	// differences among the eligible set.
	PolicyFIFO Policy = "fifo"
	// PolicyProRata splits the taker's quantity proportionally across
	// each price level's resting orders.
	PolicyProRata Policy = "pro_rata"
)

// ParsePolicy converts a configuration token into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyPriceTime, PolicyFIFO, PolicyProRata:
		return Policy(s), nil
	default:
		return "", errors.NewErrorDetails("unknown matching policy: "+s, string(errors.OrderValidationError), "policy")
	}
}

// Allocation assigns part of the taker's quantity to one resting order.
type Allocation struct {
	Order    *orderv1.Order
	Quantity decimal.Decimal
}

// Plan computes the ordered allocation of the incoming order's remaining
// quantity across the candidate resting orders under the given policy.
// Candidates must already be price-eligible and ordered by price
// priority then arrival, as produced by the book. Plan is pure: it never
// mutates the orders, and identical inputs yield identical plans.
func Plan(incoming *orderv1.Order, candidates []*orderv1.Order, policy Policy) []Allocation {
	if len(candidates) == 0 || !incoming.Remaining().IsPositive() {
		return nil
	}

	switch policy {
	case PolicyFIFO:
		return planSequential(incoming, byArrival(candidates))
	case PolicyProRata:
		return planProRata(incoming, candidates)
	default:
		return planSequential(incoming, candidates)
	}
}

// planSequential walks the candidates in order, giving each as much of
// the taker's remaining quantity as it can absorb.
func planSequential(incoming *orderv1.Order, candidates []*orderv1.Order) []Allocation {
	var plan []Allocation
	left := incoming.Remaining()

	for _, resting := range candidates {
		if !left.IsPositive() {
			break
		}
		qty := decimal.Min(left, resting.Remaining())
		if !qty.IsPositive() {
			continue
		}
		plan = append(plan, Allocation{Order: resting, Quantity: qty})
		left = left.Sub(qty)
	}
	return plan
}

// planProRata allocates level by level. Within a level each order gets
// the floor of its proportional share of the taker's remaining quantity;
// the rounding remainder goes to the earliest arrival at the level,
// cascading in arrival order if the earliest lacks headroom, so the
// level's allocations always sum exactly.
func planProRata(incoming *orderv1.Order, candidates []*orderv1.Order) []Allocation {
	var plan []Allocation
	left := incoming.Remaining()

	for _, level := range groupByPrice(candidates) {
		if !left.IsPositive() {
			break
		}

		total := decimal.Zero
		for _, o := range level {
			total = total.Add(o.Remaining())
		}
		if !total.IsPositive() {
			continue
		}

		if left.GreaterThanOrEqual(total) {
			// The level is fully consumed; shares are just remainders.
			for _, o := range level {
				qty := o.Remaining()
				if qty.IsPositive() {
					plan = append(plan, Allocation{Order: o, Quantity: qty})
					left = left.Sub(qty)
				}
			}
			continue
		}

		shares := make([]decimal.Decimal, len(level))
		allocated := decimal.Zero
		for i, o := range level {
			share := left.Mul(o.Remaining()).Div(total).Truncate(orderv1.Scale)
			shares[i] = share
			allocated = allocated.Add(share)
		}

		remainder := left.Sub(allocated)
		for _, i := range byArrivalIndex(level) {
			if !remainder.IsPositive() {
				break
			}
			headroom := level[i].Remaining().Sub(shares[i])
			grant := decimal.Min(remainder, headroom)
			if grant.IsPositive() {
				shares[i] = shares[i].Add(grant)
				remainder = remainder.Sub(grant)
			}
		}

		for i, o := range level {
			if shares[i].IsPositive() {
				plan = append(plan, Allocation{Order: o, Quantity: shares[i]})
			}
		}
		// left < total, so the whole remaining quantity lands here.
		left = decimal.Zero
	}
	return plan
}

// groupByPrice splits price-ordered candidates into their price levels,
// preserving level priority and arrival order within each level.
func groupByPrice(candidates []*orderv1.Order) [][]*orderv1.Order {
	var levels [][]*orderv1.Order
	for _, o := range candidates {
		n := len(levels)
		if n > 0 && levels[n-1][0].Price.Equal(o.Price) {
			levels[n-1] = append(levels[n-1], o)
			continue
		}
		levels = append(levels, []*orderv1.Order{o})
	}
	return levels
}

// byArrival returns a copy of the candidates stably re-sorted by arrival
// sequence alone.
func byArrival(candidates []*orderv1.Order) []*orderv1.Order {
	out := make([]*orderv1.Order, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// byArrivalIndex returns the level's indices ordered by arrival sequence.
func byArrivalIndex(level []*orderv1.Order) []int {
	idx := make([]int, len(level))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return level[idx[a]].Sequence < level[idx[b]].Sequence
	})
	return idx
}
