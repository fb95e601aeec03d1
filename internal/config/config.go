// Package config loads process configuration from the environment, the same
// .env + os.Getenv shape vaultstring-web-kyd-payment-system-backend uses
// (its go.mod pulls in github.com/joho/godotenv for exactly this), rather
// than a flag-parsing package — nothing in the example pack uses one.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/engine/main.go needs to wire up the engine
// loop, persistence workers, and wire server.
type Config struct {
	DatabaseURL string

	// ListenAddr is the wire server's bind address (spec §1 "front door").
	ListenAddr string

	// CommandBufferSize is the EngineCommand channel capacity, spec §5
	// default 100.
	CommandBufferSize int

	// EventBufferSize is each outbound (balance/order/trade) channel
	// capacity, spec §5 default 100.
	EventBufferSize int

	// StrictInvariants gates matching.Core's post-operation invariant scan
	// (SPEC_FULL.md §9, Open Question 6).
	StrictInvariants bool
}

// Load reads a .env file if present (godotenv.Load reports a missing file as
// an error; Load ignores that not-exist error and fails on any other), then
// overlays process environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ListenAddr:        getEnv("LISTEN_ADDR", ":7878"),
		CommandBufferSize: getEnvInt("COMMAND_BUFFER_SIZE", 100),
		EventBufferSize:   getEnvInt("EVENT_BUFFER_SIZE", 100),
		StrictInvariants:  getEnvBool("STRICT_INVARIANTS", true),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
