// Package persistence is the durable-store boundary (spec §4.8/§4.9): a
// BootLoader that reconstructs ledger.Ledger and orderbook.Book from
// Postgres at startup, and three writers (Balance/Order/Trade) that drain
// the engine loop's outbound event channels into the same schema.
//
// Grounded on original_source/src/service/db.rs (sqlx::Pool<Postgres>
// queries against users/orders/user_balance) and on
// other_examples/manangoyal18-GOLANG-ORDER-MATCHING-SYSTEM's prepared
// statement engine, using github.com/jmoiron/sqlx + github.com/lib/pq as the
// Go-side equivalent of the Rust sqlx stack.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lupine/internal/domain"
	"lupine/internal/xdecimal"
)

// Transient wraps an error that a writer should retry (connection exception,
// serialization failure, deadlock, client-side context deadline — see
// classify). Fatal is anything else reaching a writer's Run loop: schema
// mismatch, constraint violation on a
// supposedly-idempotent upsert, disk full — conditions retrying cannot fix.
type Transient struct{ Err error }

func (t *Transient) Error() string { return fmt.Sprintf("transient persistence error: %v", t.Err) }
func (t *Transient) Unwrap() error { return t.Err }

// AsFatal wraps err so errors.Is(err, domain.ErrPersistenceFatal) succeeds.
func AsFatal(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrPersistenceFatal, err)
}

// pqTransientClasses are pq.Error.Code.Class() values that are always
// retryable: "08" is the connection-exception class (everything from
// connection-does-not-exist to connection-failure).
var pqTransientClasses = map[string]bool{
	"08": true,
}

// pqTransientCodes are individual pq.Error.Code values worth retrying even
// though their class isn't wholesale transient: 40001 (serialization
// failure) and 40P01 (deadlock detected) are both conditions where retrying
// the same statement is the expected recovery, not a sign of corruption.
var pqTransientCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
}

// classify turns a raw *sql.DB/driver error into Transient or a fatal error,
// the one place in this package that inspects driver-level error details.
// Postgres connection failures and serialization errors are the only cases
// the pack's original Rust implementation retried (db.rs callers simply
// propagated via `?`; the retry policy itself is an ambient addition — see
// DESIGN.md for why no third-party retry library fit a raw SQL statement).
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) || errors.Is(err, context.DeadlineExceeded) {
		return &Transient{Err: err}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqTransientClasses[string(pqErr.Code.Class())] || pqTransientCodes[pqErr.Code] {
			return &Transient{Err: err}
		}
	}
	return AsFatal(err)
}

// Store is the minimal persistence surface the engine depends on. Production
// wiring is *sqlx.DB-backed (see Open below); tests substitute a fake.
type Store interface {
	LoadBalances(ctx context.Context) ([]domain.UserBalance, error)
	LoadOpenOrders(ctx context.Context) ([]domain.Order, error)
	MaxSequence(ctx context.Context) (int64, error)

	UpsertBalance(ctx context.Context, b domain.UserBalance) error
	UpsertOrder(ctx context.Context, o domain.Order) error
	InsertTrade(ctx context.Context, args domain.InsertTradeArgs) error
}

// SQLStore is the Store implementation backed by Postgres via sqlx+lib/pq.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to dataSourceName (a postgres:// URL, spec §4.8/config) and
// verifies connectivity with Ping, the same "fail fast at boot, not on the
// first query" shape the teacher's cmd/server/server.go uses for its
// listener setup.
func Open(ctx context.Context, dataSourceName string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

const selectBalances = `
SELECT user_id, free_base_qty, free_quote_qty, locked_base_qty, locked_quote_qty
FROM user_balance`

func (s *SQLStore) LoadBalances(ctx context.Context) ([]domain.UserBalance, error) {
	rows := []struct {
		UserID      domain.UserID     `db:"user_id"`
		FreeBase    xdecimal.Decimal  `db:"free_base_qty"`
		FreeQuote   xdecimal.Decimal  `db:"free_quote_qty"`
		LockedBase  xdecimal.Decimal  `db:"locked_base_qty"`
		LockedQuote xdecimal.Decimal  `db:"locked_quote_qty"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, selectBalances); err != nil {
		return nil, classify(err)
	}
	out := make([]domain.UserBalance, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.UserBalance{
			UserID:      r.UserID,
			FreeBase:    r.FreeBase,
			FreeQuote:   r.FreeQuote,
			LockedBase:  r.LockedBase,
			LockedQuote: r.LockedQuote,
		})
	}
	return out, nil
}

// selectOpenOrders orders by created_at then sequence, the tie-break column
// spec §9/Open Questions added so boot restores exact FIFO priority even
// when two orders share a millisecond timestamp (grounded on
// original_source/service/engine/orderbook.rs init_orderbook, which relies
// on a single-threaded insert-ordered Vec and so never needed this
// secondary key — Postgres row order is not guaranteed, so we do).
const selectOpenOrders = `
SELECT id, user_id, order_type, side, status, price, quantity, filled_quantity, created_at, sequence
FROM orders
WHERE status = 'Open'
ORDER BY created_at ASC, sequence ASC`

func (s *SQLStore) LoadOpenOrders(ctx context.Context) ([]domain.Order, error) {
	rows := []struct {
		ID             domain.OrderID   `db:"id"`
		UserID         domain.UserID    `db:"user_id"`
		OrderType      domain.OrderType `db:"order_type"`
		Side           domain.Side      `db:"side"`
		Status         domain.Status    `db:"status"`
		Price          xdecimal.Decimal `db:"price"`
		Quantity       xdecimal.Decimal `db:"quantity"`
		FilledQuantity xdecimal.Decimal `db:"filled_quantity"`
		CreatedAt      sql.NullTime     `db:"created_at"`
		Sequence       int64            `db:"sequence"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, selectOpenOrders); err != nil {
		return nil, classify(err)
	}
	out := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Order{
			ID:             r.ID,
			Owner:          r.UserID,
			OrderType:      r.OrderType,
			Side:           r.Side,
			Status:         r.Status,
			Price:          r.Price,
			Quantity:       r.Quantity,
			FilledQuantity: r.FilledQuantity,
			CreatedAt:      r.CreatedAt.Time,
			Sequence:       r.Sequence,
		})
	}
	return out, nil
}

func (s *SQLStore) MaxSequence(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := s.db.GetContext(ctx, &max, `SELECT MAX(sequence) FROM orders`); err != nil {
		return 0, classify(err)
	}
	return max.Int64, nil
}

// upsertBalance is keyed on user_id: one row per user, spec §3/§6.
const upsertBalance = `
INSERT INTO user_balance (user_id, free_base_qty, free_quote_qty, locked_base_qty, locked_quote_qty)
VALUES (:user_id, :free_base_qty, :free_quote_qty, :locked_base_qty, :locked_quote_qty)
ON CONFLICT (user_id) DO UPDATE SET
	free_base_qty = EXCLUDED.free_base_qty,
	free_quote_qty = EXCLUDED.free_quote_qty,
	locked_base_qty = EXCLUDED.locked_base_qty,
	locked_quote_qty = EXCLUDED.locked_quote_qty`

func (s *SQLStore) UpsertBalance(ctx context.Context, b domain.UserBalance) error {
	_, err := s.db.NamedExecContext(ctx, upsertBalance, map[string]any{
		"user_id":          b.UserID,
		"free_base_qty":    b.FreeBase,
		"free_quote_qty":   b.FreeQuote,
		"locked_base_qty":  b.LockedBase,
		"locked_quote_qty": b.LockedQuote,
	})
	return classify(err)
}

// upsertOrder is keyed on id (spec §4.9: "the row must already exist...
// created synchronously by the engine" — OrderID is minted in-memory by
// matching.Core, so every write here is an update-or-insert of a row the
// engine has already assigned an identity to).
const upsertOrder = `
INSERT INTO orders (id, user_id, order_type, side, status, price, quantity, filled_quantity, created_at, sequence)
VALUES (:id, :user_id, :order_type, :side, :status, :price, :quantity, :filled_quantity, :created_at, :sequence)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	filled_quantity = EXCLUDED.filled_quantity`

func (s *SQLStore) UpsertOrder(ctx context.Context, o domain.Order) error {
	_, err := s.db.NamedExecContext(ctx, upsertOrder, map[string]any{
		"id":              o.ID,
		"user_id":         o.Owner,
		"order_type":      o.OrderType,
		"side":            o.Side,
		"status":          o.Status,
		"price":           o.Price,
		"quantity":        o.Quantity,
		"filled_quantity": o.FilledQuantity,
		"created_at":      o.CreatedAt,
		"sequence":        o.Sequence,
	})
	return classify(err)
}

const insertTrade = `
INSERT INTO trades (id, buy_order_id, sell_order_id, price, quantity, created_at)
VALUES (:id, :buy_order_id, :sell_order_id, :price, :quantity, :created_at)
ON CONFLICT (id) DO NOTHING`

func (s *SQLStore) InsertTrade(ctx context.Context, args domain.InsertTradeArgs) error {
	_, err := s.db.NamedExecContext(ctx, insertTrade, map[string]any{
		"id":            domain.NewTradeID(),
		"buy_order_id":  args.BuyOrderID,
		"sell_order_id": args.SellOrderID,
		"price":         args.Price,
		"quantity":      args.Quantity,
		"created_at":    args.CreatedAt,
	})
	return classify(err)
}
