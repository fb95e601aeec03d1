// Command engine is the process entry point: load config, connect to the
// store, boot-load the ledger/book, start the persistence writers and the
// engine loop, and serve the wire protocol until signalled to stop.
// Structurally this is the teacher's cmd/main.go, generalized from
// "engine+net.Server wired directly to each other" to "engine+wire.Server
// wired through a command channel", since the engine loop here owns no
// reference back to its front end (spec §4.7 keeps Engine channel-driven,
// not interface-driven like the teacher's internal/net.Engine).
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lupine/internal/config"
	"lupine/internal/domain"
	"lupine/internal/engineloop"
	"lupine/internal/matching"
	"lupine/internal/persistence"
	"lupine/internal/wire"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := persistence.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	loader := persistence.NewBootLoader(store)
	core, err := loader.NewCore(ctx, matching.WithStrictInvariants(cfg.StrictInvariants))
	if err != nil {
		log.Fatal().Err(err).Msg("failed boot load")
	}

	commands := make(chan domain.EngineCommand, cfg.CommandBufferSize)
	balances := make(chan domain.UserBalance, cfg.EventBufferSize)
	orders := make(chan domain.Order, cfg.EventBufferSize)
	trades := make(chan domain.InsertTradeArgs, cfg.EventBufferSize)

	balanceWriter := persistence.NewBalanceWriter(store, balances)
	orderWriter := persistence.NewOrderWriter(store, orders)
	tradeWriter := persistence.NewTradeWriter(store, trades)

	eng := engineloop.New(core, engineloop.Channels{
		Commands: commands,
		Balances: balances,
		Orders:   orders,
		Trades:   trades,
	})
	submitter := engineloop.NewSubmitter(commands)
	srv := wire.NewServer(cfg.ListenAddr, submitter)

	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error { return eng.Run(ctx) })
	t.Go(func() error { return balanceWriter.Run(t) })
	t.Go(func() error { return orderWriter.Run(t) })
	t.Go(func() error { return tradeWriter.Run(t) })
	t.Go(func() error { return srv.Run(ctx) })

	log.Info().Str("addr", cfg.ListenAddr).Msg("lupine engine running")

	<-ctx.Done()
	t.Kill(nil)

	// A signal cancels ctx, which kills the tomb with context.Canceled; that
	// is a clean shutdown, not a fatal error.
	if err := t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("process exiting due to fatal error")
		os.Exit(1)
	}
}
