// Package engineloop implements the Engine loop of spec §4.7: the single
// consumer of the EngineCommand channel. It processes one command to
// completion — including all synchronous emits onto the three outbound
// event channels — before receiving the next, exactly as spec §5 mandates.
//
// Concurrency is built on gopkg.in/tomb.v2, the same supervision pattern the
// teacher's internal/net/server.go and internal/utils.WorkerPool use for TCP
// connection workers, generalized here to a single command-processing
// goroutine.
package engineloop

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lupine/internal/domain"
	"lupine/internal/matching"
)

// Channels bundles the inbound command channel and the three outbound event
// channels an Engine fans commands out onto (spec §2, §6).
type Channels struct {
	Commands <-chan domain.EngineCommand
	Balances chan<- domain.UserBalance
	Orders   chan<- domain.Order
	Trades   chan<- domain.InsertTradeArgs
}

type Engine struct {
	core *matching.Core
	ch   Channels
	log  zerolog.Logger
}

func New(core *matching.Core, ch Channels) *Engine {
	return &Engine{core: core, ch: ch, log: log.With().Str("component", "engine").Logger()}
}

// Run drives the command loop until the command channel is closed and
// drained, or a fatal error (PersistenceFatal bubbling from a blocked send
// is not possible here — emits never fail; an InvariantViolation raised by
// matching.Core is the only fatal condition) occurs, or ctx is cancelled.
// The returned error is nil when the command channel closes, ctx's error
// when ctx is cancelled first, and the fatal error otherwise.
func (e *Engine) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		return e.loop(t)
	})
	return t.Wait()
}

func (e *Engine) loop(t *tomb.Tomb) error {
	e.log.Info().Msg("engine loop starting")
	for {
		select {
		case <-t.Dying():
			return nil
		case cmd, ok := <-e.ch.Commands:
			if !ok {
				e.log.Info().Msg("command channel closed, draining complete, engine stopping")
				return nil
			}
			if err := e.handle(cmd); err != nil {
				e.log.Error().Err(err).Msg("fatal error processing command, halting engine")
				return err
			}
		}
	}
}

// handle applies one command to completion: it calls into matching.Core,
// which either rejects the command atomically (no events, an error is
// returned to the submitter) or produces an ordered event slice that handle
// fans out onto the three outbound channels in order before returning.
//
// Only domain.ErrInvariantViolation is treated as fatal to the loop — every
// other error (UnknownUser, InsufficientFunds, OrderNotFound) is a rejected
// command, reported back via cmd.Reply if present, and otherwise swallowed
// after logging, per spec §7.
func (e *Engine) handle(cmd domain.EngineCommand) error {
	var (
		orderID domain.OrderID
		events  []domain.Event
		err     error
	)

	switch cmd.Kind {
	case domain.KindCreateLimitOrder:
		orderID, events, err = e.core.CreateLimitOrder(cmd.Args)
	case domain.KindCreateMarketOrder:
		orderID, events, err = e.core.CreateMarketOrder(cmd.Args)
	case domain.KindCancelOrder:
		orderID = cmd.OrderID
		events, err = e.core.CancelOrder(cmd.OrderID)
	default:
		err = errors.New("unknown command kind")
	}

	if err != nil {
		e.replyErr(cmd, orderID, err)
		if errors.Is(err, domain.ErrInvariantViolation) {
			return err
		}
		e.log.Warn().Err(err).Int("kind", int(cmd.Kind)).Msg("command rejected")
		return nil
	}

	for _, ev := range events {
		e.emit(ev)
	}
	e.replyOK(cmd, orderID)
	return nil
}

func (e *Engine) emit(ev domain.Event) {
	switch ev.Kind {
	case domain.EventUpdateBalance:
		e.ch.Balances <- ev.Balance
	case domain.EventUpdateOrder:
		e.ch.Orders <- ev.Order
	case domain.EventInsertTrade:
		e.ch.Trades <- ev.Trade
	}
}

func (e *Engine) replyOK(cmd domain.EngineCommand, orderID domain.OrderID) {
	if cmd.Reply == nil {
		return
	}
	cmd.Reply <- domain.CommandResult{OrderID: orderID}
}

func (e *Engine) replyErr(cmd domain.EngineCommand, orderID domain.OrderID, err error) {
	if cmd.Reply == nil {
		return
	}
	cmd.Reply <- domain.CommandResult{OrderID: orderID, Err: err}
}
