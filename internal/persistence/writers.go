package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lupine/internal/domain"
)

// backoff schedule for Transient errors (spec §4.9's distilled silence on
// retry policy — SPEC_FULL.md §4.9 documents why this is hand-rolled rather
// than a pulled-in retry library). spec.md §4.9 is explicit that workers
// retry Transient errors indefinitely; once the schedule is exhausted,
// retryWithBackoff keeps retrying at the last interval rather than promoting
// the condition to fatal. Only a genuinely Fatal error (classify's fallback)
// halts the writer.
var backoffSchedule = []time.Duration{
	10 * time.Millisecond,
	50 * time.Millisecond,
	200 * time.Millisecond,
	1 * time.Second,
	5 * time.Second,
}

func retryWithBackoff(t *tomb.Tomb, op func() error) error {
	attempt := 0
	for {
		if attempt > 0 {
			delay := backoffSchedule[len(backoffSchedule)-1]
			if attempt-1 < len(backoffSchedule) {
				delay = backoffSchedule[attempt-1]
			}
			select {
			case <-t.Dying():
				return nil
			case <-time.After(delay):
			}
		}
		err := op()
		if err == nil {
			return nil
		}
		var transient *Transient
		if !errors.As(err, &transient) {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("transient persistence error, retrying")
		attempt++
	}
}

// BalanceWriter drains BalanceEvents onto Store.UpsertBalance, one at a time,
// in the order the engine loop emitted them (spec §4.9: per-entity writers,
// no reordering). Modeled on the teacher's WorkerPool (internal/worker.go)
// collapsed to a single worker, since balance rows must be applied in strict
// arrival order — a pool of N workers racing upserts for the same user_id
// would reorder writes the engine loop produced sequentially.
type BalanceWriter struct {
	store Store
	in    <-chan domain.UserBalance
	log   zerolog.Logger
}

func NewBalanceWriter(store Store, in <-chan domain.UserBalance) *BalanceWriter {
	return &BalanceWriter{store: store, in: in, log: log.With().Str("component", "balance_writer").Logger()}
}

func (w *BalanceWriter) Run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case b, ok := <-w.in:
			if !ok {
				return nil
			}
			err := retryWithBackoff(t, func() error {
				return w.store.UpsertBalance(context.Background(), b)
			})
			if err != nil {
				w.log.Error().Err(err).Str("user_id", b.UserID.String()).Msg("fatal balance write failure")
				return err
			}
		}
	}
}

// OrderWriter drains OrderEvents onto Store.UpsertOrder (spec §4.9).
type OrderWriter struct {
	store Store
	in    <-chan domain.Order
	log   zerolog.Logger
}

func NewOrderWriter(store Store, in <-chan domain.Order) *OrderWriter {
	return &OrderWriter{store: store, in: in, log: log.With().Str("component", "order_writer").Logger()}
}

func (w *OrderWriter) Run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case o, ok := <-w.in:
			if !ok {
				return nil
			}
			err := retryWithBackoff(t, func() error {
				return w.store.UpsertOrder(context.Background(), o)
			})
			if err != nil {
				w.log.Error().Err(err).Str("order_id", o.ID.String()).Msg("fatal order write failure")
				return err
			}
		}
	}
}

// TradeWriter drains TradeEvents onto Store.InsertTrade (spec §4.9). Trades
// are append-only, so unlike BalanceWriter/OrderWriter a pool could safely
// parallelize these, but we keep the shape symmetric across all three
// writers for now — see DESIGN.md.
type TradeWriter struct {
	store Store
	in    <-chan domain.InsertTradeArgs
	log   zerolog.Logger
}

func NewTradeWriter(store Store, in <-chan domain.InsertTradeArgs) *TradeWriter {
	return &TradeWriter{store: store, in: in, log: log.With().Str("component", "trade_writer").Logger()}
}

func (w *TradeWriter) Run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case tr, ok := <-w.in:
			if !ok {
				return nil
			}
			err := retryWithBackoff(t, func() error {
				return w.store.InsertTrade(context.Background(), tr)
			})
			if err != nil {
				w.log.Error().Err(err).Str("buy_order_id", tr.BuyOrderID.String()).Msg("fatal trade write failure")
				return err
			}
		}
	}
}
