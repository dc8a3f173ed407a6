// Package pricefeed keeps catalog prices current from an external source.
package pricefeed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/ledger"
	"github.com/dense-analysis/walletledger/internal/model"
)

// Source returns the latest USD quotes for asset symbols. Symbols without a
// quote are left out of the result.
type Source interface {
	Quotes(ctx context.Context, symbols []string) ([]model.Quote, error)
}

// Updater writes new quotes into the catalog.
type Updater struct {
	Store  docstore.Store
	Source Source
	Logger *slog.Logger
}

// Update reads the catalog and writes every price with a different positive
// quote in one atomic write. It returns how many prices changed.
func (updater *Updater) Update(ctx context.Context) (int, error) {
	current, err := updater.Store.Read(ctx, ledger.CatalogPath)

	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}

	assets := ledger.DecodeCatalog(current.Children(), updater.Logger)

	if len(assets) == 0 {
		return 0, nil
	}

	seen := map[string]bool{}
	symbols := make([]string, 0, len(assets))

	for _, asset := range assets {
		symbol := strings.ToUpper(asset.Symbol)

		if symbol != "" && !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}

	quotes, err := updater.Source.Quotes(ctx, symbols)

	if err != nil {
		return 0, fmt.Errorf("read quotes: %w", err)
	}

	latest := make(map[string]decimal.Decimal, len(quotes))

	for _, quote := range quotes {
		latest[strings.ToUpper(quote.Symbol)] = quote.Value
	}

	updates := map[string]any{}

	for _, asset := range assets {
		price, ok := latest[strings.ToUpper(asset.Symbol)]

		if !ok || !price.IsPositive() || price.Equal(asset.Price) {
			continue
		}

		asset.Price = price
		updates[ledger.PricePath(asset.ID)] = ledger.EncodePrice(asset)
		updater.Logger.Debug("price changed", "asset", asset.ID, "price", price.String())
	}

	if len(updates) == 0 {
		return 0, nil
	}

	if err := updater.Store.WriteAtomic(ctx, updates); err != nil {
		return 0, fmt.Errorf("write prices: %w", err)
	}

	return len(updates), nil
}

// Run updates the catalog immediately and then on every interval until ctx is
// done. Failed updates are logged and retried on the next tick.
func (updater *Updater) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid price update interval %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		changed, err := updater.Update(ctx)

		if err != nil {
			updater.Logger.Error("price update failed", "error", err)
		} else {
			updater.Logger.Info("price update finished", "changed", changed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
