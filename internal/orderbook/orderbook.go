// Package orderbook implements the Orderbook of spec §4.3: two
// price-indexed ordered maps (bid side descending, ask side ascending), each
// value a FIFO queue of resting orders. Price levels are backed by
// github.com/tidwall/btree.BTreeG exactly as the teacher's
// internal/engine/orderbook.go uses it, generalized from float64 keys to
// xdecimal.Decimal keys and from a single book to bid+ask sides with a
// secondary OrderID -> location index (spec §9 design note: "a secondary
// OrderId -> (Side, Price) index... should be maintained alongside and
// updated on every insert/remove").
package orderbook

import (
	"fmt"

	"github.com/tidwall/btree"

	"lupine/internal/domain"
	"lupine/internal/xdecimal"
)

// PriceLevel is a non-empty FIFO queue of resting orders at one price.
// Invariant O3: no price level is ever present with an empty queue — Book
// deletes levels eagerly the moment their queue empties.
type PriceLevel struct {
	Price  xdecimal.Decimal
	Orders []*domain.Order
}

type location struct {
	side  domain.Side
	price xdecimal.Decimal
}

// Book holds both sides of the market for a single instrument.
type Book struct {
	bids    *btree.BTreeG[*PriceLevel]
	asks    *btree.BTreeG[*PriceLevel]
	byOrder map[domain.OrderID]location
}

func New() *Book {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price) // highest first
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price) // lowest first
	})
	return &Book{
		bids:    bids,
		asks:    asks,
		byOrder: make(map[domain.OrderID]location),
	}
}

// restingBook returns the side of the book an order of this side rests on.
func (b *Book) restingBook(side domain.Side) *btree.BTreeG[*PriceLevel] {
	if side == domain.Bid {
		return b.bids
	}
	return b.asks
}

// MakerBook returns the opposite side of the book for a taker of takerSide,
// in match-priority order when iterated from Min() forward (spec §4.3
// best_opposite).
func (b *Book) MakerBook(takerSide domain.Side) *btree.BTreeG[*PriceLevel] {
	return b.restingBook(takerSide.Opposite())
}

// Insert appends order to the tail of the queue at order.Price, creating the
// level if absent (spec §4.3 insert). order.Status must already be Open.
func (b *Book) Insert(order *domain.Order) {
	book := b.restingBook(order.Side)
	dummy := &PriceLevel{Price: order.Price}
	level, ok := book.Get(dummy)
	if !ok {
		level = &PriceLevel{Price: order.Price, Orders: []*domain.Order{order}}
		book.Set(level)
	} else {
		level.Orders = append(level.Orders, order)
	}
	b.byOrder[order.ID] = location{side: order.Side, price: order.Price}
}

// Remove deletes orderID from the book, failing with domain.ErrOrderNotFound
// if absent. Empty levels are deleted eagerly (O3).
func (b *Book) Remove(orderID domain.OrderID) (*domain.Order, error) {
	loc, ok := b.byOrder[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	book := b.restingBook(loc.side)
	dummy := &PriceLevel{Price: loc.price}
	level, ok := book.Get(dummy)
	if !ok {
		return nil, fmt.Errorf("%w: price level %s missing for indexed order %s", domain.ErrInvariantViolation, loc.price, orderID)
	}

	idx := -1
	for i, o := range level.Orders {
		if o.ID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: order %s indexed but absent from its level", domain.ErrInvariantViolation, orderID)
	}

	removed := level.Orders[idx]
	level.Orders = append(level.Orders[:idx], level.Orders[idx+1:]...)
	delete(b.byOrder, orderID)
	if len(level.Orders) == 0 {
		book.Delete(dummy)
	}
	return removed, nil
}

// Location reports the side/price of a resting order, or ok=false if the
// order is not in the book.
func (b *Book) Location(orderID domain.OrderID) (domain.Side, xdecimal.Decimal, bool) {
	loc, ok := b.byOrder[orderID]
	return loc.side, loc.price, ok
}

// CrossCallback is invoked once per matched resting order during MatchAgainst.
// It returns the quantity actually consumed against resting (which may be
// less than the offered tradeQty, e.g. clamped by a market taker's locked
// funds per spec §4.5) and whether the scan must stop entirely (the taker
// has run out of funds to continue, even though book liquidity remains).
type CrossCallback func(resting *domain.Order, tradeQty xdecimal.Decimal) (consumed xdecimal.Decimal, stop bool)

// CrossTest decides whether a price level is still reachable by the taker
// (spec §4.3 crossing test). Market orders pass a test that always returns
// true; limit orders compare against their limit price.
type CrossTest func(levelPrice xdecimal.Decimal) bool

// MatchAgainst iterates the opposite side of the book in match-priority
// order, stopping at the first level that fails crossTest, consuming resting
// orders FIFO within each level (spec §4.3 match_against). Fully filled
// resting orders are removed from the book as each level finishes scanning.
// Returns the total base quantity consumed.
func (b *Book) MatchAgainst(takerSide domain.Side, crossTest CrossTest, remaining xdecimal.Decimal, cb CrossCallback) xdecimal.Decimal {
	book := b.MakerBook(takerSide)
	consumed := xdecimal.Zero()

scan:
	for xdecimal.IsPositive(remaining) {
		level, ok := book.Min()
		if !ok || !crossTest(level.Price) {
			break
		}

		i := 0
		for i < len(level.Orders) && xdecimal.IsPositive(remaining) {
			resting := level.Orders[i]
			offer := minDecimal(resting.Remaining(), remaining)
			actual, stop := cb(resting, offer)

			consumed = consumed.Add(actual)
			remaining = remaining.Sub(actual)

			if resting.IsFullyFilled() {
				delete(b.byOrder, resting.ID)
				i++
			}
			if stop {
				level.Orders = level.Orders[i:]
				if len(level.Orders) == 0 {
					book.Delete(level)
				}
				break scan
			}
			if actual.IsZero() {
				// Taker can't afford even the smallest resting clip at this
				// level; no point scanning the rest of it.
				break
			}
		}

		level.Orders = level.Orders[i:]
		if len(level.Orders) == 0 {
			book.Delete(level)
		} else {
			// Partially consumed the head of the level but can't continue
			// (e.g. remaining exhausted without filling resting[i]).
			break
		}
	}

	return consumed
}

func minDecimal(a, b xdecimal.Decimal) xdecimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Bids exposes the bid-side levels, highest price first, for inspection
// (boot-loader round trip, tests).
func (b *Book) Bids() []*PriceLevel { return b.items(b.bids) }

// Asks exposes the ask-side levels, lowest price first.
func (b *Book) Asks() []*PriceLevel { return b.items(b.asks) }

func (b *Book) items(t *btree.BTreeG[*PriceLevel]) []*PriceLevel {
	out := make([]*PriceLevel, 0, t.Len())
	t.Scan(func(level *PriceLevel) bool {
		out = append(out, level)
		return true
	})
	return out
}

// Len reports the number of resting orders across both sides, used by tests
// and diagnostics.
func (b *Book) Len() int { return len(b.byOrder) }
