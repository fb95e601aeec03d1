package persistence

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lupine/internal/ledger"
	"lupine/internal/matching"
	"lupine/internal/orderbook"
)

// BootLoader reconstructs the in-memory ledger.Ledger and orderbook.Book
// from a Store at startup (spec §4.8), grounded on
// original_source/service/engine/orderbook.rs init_orderbook: load balances
// first, then open orders ordered by created_at/sequence, inserting each
// into the book in that order so FIFO priority survives a restart.
type BootLoader struct {
	store Store
}

func NewBootLoader(store Store) *BootLoader {
	return &BootLoader{store: store}
}

// Load returns a freshly populated Ledger and Book, plus the maximum
// persisted sequence number so the caller can seed matching.Core's counter
// above it (spec §9 Open Question 4 — sequence must stay monotonic across
// restarts).
func (l *BootLoader) Load(ctx context.Context) (*ledger.Ledger, *orderbook.Book, int64, error) {
	balances, err := l.store.LoadBalances(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("load balances: %w", err)
	}
	ldgr := ledger.New()
	ldgr.Load(balances)

	orders, err := l.store.LoadOpenOrders(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("load open orders: %w", err)
	}
	book := orderbook.New()
	for i := range orders {
		book.Insert(&orders[i])
	}

	maxSeq, err := l.store.MaxSequence(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("load max sequence: %w", err)
	}

	log.Info().
		Int("users", len(balances)).
		Int("open_orders", len(orders)).
		Int64("max_sequence", maxSeq).
		Msg("boot load complete")

	return ldgr, book, maxSeq, nil
}

// NewCore is a convenience wrapper combining Load with matching.New, the
// shape cmd/engine/main.go calls directly at startup.
func (l *BootLoader) NewCore(ctx context.Context, opts ...matching.Option) (*matching.Core, error) {
	ldgr, book, maxSeq, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	core := matching.New(book, ldgr, opts...)
	core.SeedSequence(maxSeq)
	return core, nil
}
