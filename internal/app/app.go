// Package app holds the start up steps shared by the binaries.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dense-analysis/walletledger/internal/config"
	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/docstore/postgres"
	"github.com/dense-analysis/walletledger/internal/env"
	"github.com/dense-analysis/walletledger/internal/logging"
)

// Setup loads .env, the configuration and the logger.
func Setup() (config.Config, *slog.Logger, error) {
	if err := env.LoadEnvironmentVariables(); err != nil {
		return config.Config{}, nil, fmt.Errorf(".env error: %w", err)
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.Log)

	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logging error: %w", err)
	}

	slog.SetDefault(logger)

	return cfg, logger, nil
}

// SampleAccounts are written to a fresh memory store so there is something to
// work with.
func SampleAccounts() map[string]any {
	account := func(number, name, kind, balance string) map[string]any {
		return map[string]any{
			"numeroCuenta":    number,
			"nombre":          name,
			"tipo":            kind,
			"saldoDisponible": json.Number(balance),
		}
	}

	return map[string]any{
		"accounts/principal":  account("1234-5678-9012-3456", "Cuenta Principal", "corriente", "2500.75"),
		"accounts/ahorros":    account("9876-5432-1098-7654", "Cuenta de Ahorros", "ahorro", "1200.50"),
		"accounts/compartida": account("4567-8901-2345-6789", "Cuenta Compartida", "corriente", "500.25"),
	}
}

// OpenStore connects to the configured document store. Call the returned
// function to close it.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (docstore.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		store := docstore.NewMemory()

		if err := store.WriteAtomic(ctx, SampleAccounts()); err != nil {
			return nil, nil, err
		}

		logger.Warn("using the in-memory document store, nothing will be saved")

		return store, func() {}, nil
	case "postgres":
		store, err := postgres.Connect(ctx, cfg.Postgres.URL(), logger.With("component", "docstore"))

		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
