// Keep catalog prices current from Binance or the ClickHouse price history
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dense-analysis/walletledger/internal/app"
	"github.com/dense-analysis/walletledger/internal/config"
	"github.com/dense-analysis/walletledger/internal/database"
	"github.com/dense-analysis/walletledger/internal/pricefeed"
)

var once = flag.Bool("once", false, "update the catalog once and exit")

func openSource(ctx context.Context, cfg config.Config) (pricefeed.Source, func(), error) {
	switch cfg.PriceSource {
	case "binance":
		return pricefeed.NewBinanceSource(), func() {}, nil
	case "clickhouse":
		conn, err := database.Connect(ctx, database.Options{
			Host:     cfg.ClickHouse.Host,
			Port:     cfg.ClickHouse.Port,
			Database: cfg.ClickHouse.Name,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})

		if err != nil {
			return nil, nil, err
		}

		return &pricefeed.ClickHouseSource{Conn: conn}, func() { _ = conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown PRICE_SOURCE %q", cfg.PriceSource)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, closeStore, err := app.OpenStore(ctx, cfg, logger)

	if err != nil {
		return fmt.Errorf("store error: %w", err)
	}

	defer closeStore()

	source, closeSource, err := openSource(ctx, cfg)

	if err != nil {
		return fmt.Errorf("price source error: %w", err)
	}

	defer closeSource()

	updater := &pricefeed.Updater{Store: store, Source: source, Logger: logger}

	if *once {
		changed, err := updater.Update(ctx)

		if err != nil {
			return err
		}

		logger.Info("catalog updated", "changed", changed)

		return nil
	}

	if err := updater.Run(ctx, cfg.PriceInterval); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

func main() {
	flag.Parse()

	cfg, logger, err := app.Setup()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pricefeed stopped", "error", err)
		os.Exit(1)
	}
}
