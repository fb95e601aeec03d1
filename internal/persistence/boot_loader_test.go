package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lupine/internal/domain"
	"lupine/internal/xdecimal"
)

// fakeStore is an in-memory Store used to exercise BootLoader without a live
// Postgres connection.
type fakeStore struct {
	balances []domain.UserBalance
	orders   []domain.Order
	maxSeq   int64
}

func (f *fakeStore) LoadBalances(context.Context) ([]domain.UserBalance, error) {
	return f.balances, nil
}

func (f *fakeStore) LoadOpenOrders(context.Context) ([]domain.Order, error) {
	return f.orders, nil
}

func (f *fakeStore) MaxSequence(context.Context) (int64, error) { return f.maxSeq, nil }

func (f *fakeStore) UpsertBalance(context.Context, domain.UserBalance) error { return nil }
func (f *fakeStore) UpsertOrder(context.Context, domain.Order) error        { return nil }
func (f *fakeStore) InsertTrade(context.Context, domain.InsertTradeArgs) error {
	return nil
}

func TestBootLoader_Load_RestoresLedgerAndBookInFIFOOrder(t *testing.T) {
	buyer := domain.NewUserID()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := domain.Order{
		ID:        domain.NewOrderID(),
		Owner:     buyer,
		OrderType: domain.Limit,
		Side:      domain.Bid,
		Status:    domain.Open,
		Price:     xdecimal.MustParse("10"),
		Quantity:  xdecimal.MustParse("5"),
		CreatedAt: base,
		Sequence:  1,
	}
	second := domain.Order{
		ID:        domain.NewOrderID(),
		Owner:     buyer,
		OrderType: domain.Limit,
		Side:      domain.Bid,
		Status:    domain.Open,
		Price:     xdecimal.MustParse("10"),
		Quantity:  xdecimal.MustParse("3"),
		CreatedAt: base.Add(time.Second),
		Sequence:  2,
	}

	store := &fakeStore{
		balances: []domain.UserBalance{
			{UserID: buyer, FreeQuote: xdecimal.MustParse("1000")},
		},
		orders: []domain.Order{first, second},
		maxSeq: 2,
	}

	loader := NewBootLoader(store)
	ldgr, book, maxSeq, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), maxSeq)

	bal, ok := ldgr.Snapshot(buyer)
	require.True(t, ok)
	assert.True(t, bal.FreeQuote.Equal(xdecimal.MustParse("1000")))

	bids := book.Bids()
	require.Len(t, bids, 1)
	require.Len(t, bids[0].Orders, 2)
	assert.Equal(t, first.ID, bids[0].Orders[0].ID, "insertion order must follow created_at/sequence so FIFO priority survives a restart")
	assert.Equal(t, second.ID, bids[0].Orders[1].ID)
}

func TestBootLoader_NewCore_SeedsSequenceAboveStoredMax(t *testing.T) {
	store := &fakeStore{maxSeq: 41}
	loader := NewBootLoader(store)

	core, err := loader.NewCore(context.Background())
	require.NoError(t, err)

	buyer := domain.NewUserID()
	core.Ledger.Register(buyer)
	bal, _ := core.Ledger.Snapshot(buyer)
	bal.FreeQuote = xdecimal.MustParse("100")
	core.Ledger.Load([]domain.UserBalance{bal})

	orderID, _, err := core.CreateLimitOrder(domain.CreateOrderArgs{
		Side:       domain.Bid,
		UserID:     buyer,
		LimitPrice: xdecimal.MustParse("10"),
		BaseQty:    xdecimal.MustParse("1"),
		QuoteQty:   xdecimal.MustParse("10"),
	})
	require.NoError(t, err)

	_, _, ok := core.Book.Location(orderID)
	require.True(t, ok)

	bids := core.Book.Bids()
	require.Len(t, bids, 1)
	require.Len(t, bids[0].Orders, 1)
	assert.Equal(t, int64(42), bids[0].Orders[0].Sequence, "first sequence after boot must follow the stored max of 41")
}
