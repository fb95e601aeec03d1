package orderbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lupine/internal/domain"
	"lupine/internal/xdecimal"
)

func newRestingOrder(side domain.Side, price string, qty string, seq int64) *domain.Order {
	return &domain.Order{
		ID:             domain.NewOrderID(),
		Owner:          domain.NewUserID(),
		OrderType:      domain.Limit,
		Side:           side,
		Status:         domain.Open,
		Price:          xdecimal.MustParse(price),
		Quantity:       xdecimal.MustParse(qty),
		FilledQuantity: xdecimal.Zero(),
		CreatedAt:      time.Now(),
		Sequence:       seq,
	}
}

func TestInsertAndLocation(t *testing.T) {
	b := New()
	o := newRestingOrder(domain.Bid, "10", "5", 1)
	b.Insert(o)

	side, price, ok := b.Location(o.ID)
	require.True(t, ok)
	assert.Equal(t, domain.Bid, side)
	assert.True(t, price.Equal(xdecimal.MustParse("10")))
	assert.Equal(t, 1, b.Len())
}

func TestRemove_DeletesEmptyLevel(t *testing.T) {
	b := New()
	o := newRestingOrder(domain.Ask, "10", "5", 1)
	b.Insert(o)

	removed, err := b.Remove(o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, removed.ID)
	assert.Equal(t, 0, b.Len())
	assert.Len(t, b.Asks(), 0)
}

func TestRemove_UnknownOrder(t *testing.T) {
	b := New()
	_, err := b.Remove(domain.NewOrderID())
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestBidsDescendingAsksAscending(t *testing.T) {
	b := New()
	b.Insert(newRestingOrder(domain.Bid, "10", "1", 1))
	b.Insert(newRestingOrder(domain.Bid, "12", "1", 2))
	b.Insert(newRestingOrder(domain.Bid, "11", "1", 3))
	b.Insert(newRestingOrder(domain.Ask, "20", "1", 4))
	b.Insert(newRestingOrder(domain.Ask, "18", "1", 5))

	bids := b.Bids()
	require.Len(t, bids, 3)
	assert.True(t, bids[0].Price.Equal(xdecimal.MustParse("12")))
	assert.True(t, bids[1].Price.Equal(xdecimal.MustParse("11")))
	assert.True(t, bids[2].Price.Equal(xdecimal.MustParse("10")))

	asks := b.Asks()
	require.Len(t, asks, 2)
	assert.True(t, asks[0].Price.Equal(xdecimal.MustParse("18")))
	assert.True(t, asks[1].Price.Equal(xdecimal.MustParse("20")))
}

func TestMatchAgainst_FIFOWithinLevel(t *testing.T) {
	b := New()
	first := newRestingOrder(domain.Ask, "10", "3", 1)
	second := newRestingOrder(domain.Ask, "10", "3", 2)
	b.Insert(first)
	b.Insert(second)

	var fills []xdecimal.Decimal
	crossTest := func(xdecimal.Decimal) bool { return true }
	cb := func(resting *domain.Order, tradeQty xdecimal.Decimal) (xdecimal.Decimal, bool) {
		fills = append(fills, tradeQty)
		resting.FilledQuantity = resting.FilledQuantity.Add(tradeQty)
		return tradeQty, false
	}

	consumed := b.MatchAgainst(domain.Bid, crossTest, xdecimal.MustParse("4"), cb)

	assert.True(t, consumed.Equal(xdecimal.MustParse("4")))
	require.Len(t, fills, 2)
	assert.True(t, fills[0].Equal(xdecimal.MustParse("3")), "first resting order fully consumed first (FIFO)")
	assert.True(t, fills[1].Equal(xdecimal.MustParse("1")))
	assert.Equal(t, 1, b.Len(), "one partially filled order remains")
}

func TestMatchAgainst_StopsAtCrossTestBoundary(t *testing.T) {
	b := New()
	b.Insert(newRestingOrder(domain.Ask, "10", "5", 1))
	b.Insert(newRestingOrder(domain.Ask, "11", "5", 2))

	crossTest := func(levelPrice xdecimal.Decimal) bool {
		return levelPrice.LessThanOrEqual(xdecimal.MustParse("10"))
	}
	cb := func(resting *domain.Order, tradeQty xdecimal.Decimal) (xdecimal.Decimal, bool) {
		resting.FilledQuantity = resting.FilledQuantity.Add(tradeQty)
		return tradeQty, false
	}

	consumed := b.MatchAgainst(domain.Bid, crossTest, xdecimal.MustParse("10"), cb)

	assert.True(t, consumed.Equal(xdecimal.MustParse("5")), "only the crossable level should be consumed")
	assert.Equal(t, 1, b.Len())
}

func TestValidate_EmptyBookIsValid(t *testing.T) {
	b := New()
	assert.NoError(t, b.Validate())
}

func TestValidate_DetectsOutOfOrderSequence(t *testing.T) {
	b := New()
	o1 := newRestingOrder(domain.Bid, "10", "1", 5)
	o2 := newRestingOrder(domain.Bid, "10", "1", 3)
	b.Insert(o1)
	b.Insert(o2)

	err := b.Validate()
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
}
