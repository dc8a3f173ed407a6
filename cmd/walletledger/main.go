// Serve the wallet ledger over a JSON HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/dense-analysis/walletledger/internal/app"
	"github.com/dense-analysis/walletledger/internal/config"
	"github.com/dense-analysis/walletledger/internal/ledger"
	"github.com/dense-analysis/walletledger/internal/route/account"
	"github.com/dense-analysis/walletledger/internal/route/crypto"
	"github.com/dense-analysis/walletledger/internal/txfeed"
	"github.com/dense-analysis/walletledger/pkg/lax"
)

const shutdownTimeout = 5 * time.Second

func newRouter(service *ledger.Service) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	account.Register(router, service)
	crypto.Register(router, service)

	return router
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, closeStore, err := app.OpenStore(ctx, cfg, logger)

	if err != nil {
		return fmt.Errorf("store error: %w", err)
	}

	defer closeStore()

	service, err := ledger.Open(ctx, store, logger)

	if err != nil {
		return err
	}

	defer service.Close()

	if cfg.Log.Level == "debug" {
		lax.EnableDebugMode()
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		publisher := txfeed.NewPublisher(txfeed.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic), logger)
		unsubscribe := service.Transactions.Subscribe(publisher.Observe)
		defer unsubscribe()

		group.Go(func() error {
			return publisher.Run(ctx)
		})
	}

	group.Go(func() error {
		logger.Info("server started", "addr", cfg.HTTPAddr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shut down failed: %w", err)
		}

		logger.Info("server shut down successfully")

		return nil
	})

	return group.Wait()
}

func main() {
	cfg, logger, err := app.Setup()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("walletledger stopped", "error", err)
		os.Exit(1)
	}
}
