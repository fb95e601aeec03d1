package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lupine/internal/domain"
	"lupine/internal/ledger"
	"lupine/internal/orderbook"
	"lupine/internal/xdecimal"
)

func newTestCore(t *testing.T) (*Core, domain.UserID, domain.UserID) {
	t.Helper()
	book := orderbook.New()
	ldgr := ledger.New()

	buyer := domain.NewUserID()
	seller := domain.NewUserID()
	ldgr.Register(buyer)
	ldgr.Register(seller)

	buyerBal, _ := ldgr.Snapshot(buyer)
	buyerBal.FreeQuote = xdecimal.MustParse("1000")
	sellerBal, _ := ldgr.Snapshot(seller)
	sellerBal.FreeBase = xdecimal.MustParse("1000")
	ldgr.Load([]domain.UserBalance{buyerBal, sellerBal})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	core := New(book, ldgr, WithClock(func() time.Time { return clock }))
	return core, buyer, seller
}

func TestCreateLimitOrder_RestsWhenNoCross(t *testing.T) {
	core, buyer, _ := newTestCore(t)

	orderID, events, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Bid,
		UserID:     buyer,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("5"),
		QuoteQty:   xdecimal.MustParse("50"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	side, price, ok := core.Book.Location(orderID)
	require.True(t, ok)
	assert.Equal(t, domain.Bid, side)
	assert.True(t, price.Equal(xdecimal.MustParse("10")))
}

func TestCreateLimitOrder_CrossesAndFills(t *testing.T) {
	core, buyer, seller := newTestCore(t)

	askID, _, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Ask,
		UserID:     seller,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("5"),
		QuoteQty:   xdecimal.Zero(),
	})
	require.NoError(t, err)

	bidID, events, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Bid,
		UserID:     buyer,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("5"),
		QuoteQty:   xdecimal.MustParse("50"),
	})
	require.NoError(t, err)

	_, ok := core.Book.Location(askID)
	assert.False(t, ok, "fully filled maker should be removed from the book")
	_, ok = core.Book.Location(bidID)
	assert.False(t, ok, "fully filled taker never rests")

	var sawTrade bool
	for _, ev := range events {
		if ev.Kind == domain.EventInsertTrade {
			sawTrade = true
			assert.True(t, ev.Trade.Price.Equal(xdecimal.MustParse("10")), "trade executes at the resting maker's price")
			assert.True(t, ev.Trade.Quantity.Equal(xdecimal.MustParse("5")))
		}
	}
	assert.True(t, sawTrade)

	buyerBal, _ := core.Ledger.Snapshot(buyer)
	assert.True(t, buyerBal.FreeBase.Equal(xdecimal.MustParse("5")))
	sellerBal, _ := core.Ledger.Snapshot(seller)
	assert.True(t, sellerBal.FreeQuote.Equal(xdecimal.MustParse("50")))
}

func TestCreateLimitOrder_UnknownUser(t *testing.T) {
	core, _, _ := newTestCore(t)
	_, _, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Bid,
		UserID:     domain.NewUserID(),
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("1"),
		QuoteQty:   xdecimal.MustParse("10"),
	})
	require.ErrorIs(t, err, domain.ErrUnknownUser)
}

func TestCreateLimitOrder_InsufficientFunds(t *testing.T) {
	core, buyer, _ := newTestCore(t)
	_, _, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Bid,
		UserID:     buyer,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("1000"),
		QuoteQty:   xdecimal.MustParse("100000"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestCreateMarketOrder_Bid_ClampsToLockedQuote(t *testing.T) {
	core, buyer, seller := newTestCore(t)

	_, _, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Ask,
		UserID:     seller,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("100"),
		QuoteQty:   xdecimal.Zero(),
	})
	require.NoError(t, err)

	_, events, err := core.CreateMarketOrder(domain.CreateOrderArgs{
		Side:     domain.Bid,
		UserID:   buyer,
		BaseQty:  xdecimal.MustParse("100"),
		QuoteQty: xdecimal.MustParse("25"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	buyerBal, _ := core.Ledger.Snapshot(buyer)
	assert.True(t, buyerBal.FreeBase.Equal(xdecimal.MustParse("2.5")), "25 quote / 10 price = 2.5 base")
	assert.True(t, buyerBal.FreeQuote.Equal(xdecimal.MustParse("975")), "unspent quote budget refunded")
	assert.True(t, buyerBal.LockedQuote.IsZero())
}

func TestCancelOrder_RefundsRemainder(t *testing.T) {
	core, buyer, _ := newTestCore(t)
	orderID, _, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Bid,
		UserID:     buyer,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("5"),
		QuoteQty:   xdecimal.MustParse("50"),
	})
	require.NoError(t, err)

	events, err := core.CancelOrder(orderID)
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	buyerBal, _ := core.Ledger.Snapshot(buyer)
	assert.True(t, buyerBal.FreeQuote.Equal(xdecimal.MustParse("1000")))
	assert.True(t, buyerBal.LockedQuote.IsZero())

	_, err = core.CancelOrder(orderID)
	require.Error(t, err)
}

func TestCancelOrder_UnknownOrder(t *testing.T) {
	core, _, _ := newTestCore(t)
	_, err := core.CancelOrder(domain.NewOrderID())
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestSelfTrade_AllowedUnfiltered(t *testing.T) {
	// SPEC_FULL.md §8/§9: a user's own resting order and incoming order
	// crossing is allowed to match normally, not rejected.
	core, trader, _ := newTestCore(t)
	ldgr := core.Ledger
	bal, _ := ldgr.Snapshot(trader)
	bal.FreeBase = xdecimal.MustParse("100")
	ldgr.Load([]domain.UserBalance{bal})

	_, _, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Ask,
		UserID:     trader,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("5"),
		QuoteQty:   xdecimal.Zero(),
	})
	require.NoError(t, err)

	_, events, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Bid,
		UserID:     trader,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("5"),
		QuoteQty:   xdecimal.MustParse("50"),
	})
	require.NoError(t, err)

	var sawTrade bool
	for _, ev := range events {
		if ev.Kind == domain.EventInsertTrade {
			sawTrade = true
		}
	}
	assert.True(t, sawTrade, "self-trade must be allowed to match like any other pair")
}
