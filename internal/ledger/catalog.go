package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
	"github.com/dense-analysis/walletledger/internal/snapshot"
)

// Catalog is a snapshot of the tradable assets, keyed by asset ID.
type Catalog = snapshot.Collection[model.Asset]

// DefaultAssets is written to an empty catalog.
func DefaultAssets() []model.Asset {
	return []model.Asset{
		{ID: "btc", Name: "Bitcoin", Symbol: "BTC", Price: decimal.RequireFromString("61245.00")},
		{ID: "eth", Name: "Ethereum", Symbol: "ETH", Price: decimal.RequireFromString("3054.62")},
		{ID: "bnb", Name: "BNB", Symbol: "BNB", Price: decimal.RequireFromString("551.48")},
		{ID: "sol", Name: "Solana", Symbol: "SOL", Price: decimal.RequireFromString("142.10")},
	}
}

// PriceCatalog holds the tradable assets and their current prices.
type PriceCatalog struct {
	engine   *engine
	snapshot snapshot.Value[Catalog]
}

func assetKey(asset model.Asset) string {
	return asset.ID
}

func (catalog *PriceCatalog) decode(children map[string]any) Catalog {
	assets := decodeChildren(children, decodeAsset, catalog.engine.skipDocument(catalogPath))

	return snapshot.NewCollection(assets, assetKey)
}

func (catalog *PriceCatalog) push(update docstore.Snapshot) {
	catalog.snapshot.Store(catalog.decode(update.Children()))
}

// publishDefaults gives trading prices to work with when the store could not
// provide a catalog. A catalog the store has already pushed is kept.
func (catalog *PriceCatalog) publishDefaults() {
	if catalog.CurrentAssets().Len() > 0 {
		return
	}

	catalog.snapshot.Store(snapshot.NewCollection(DefaultAssets(), assetKey))
}

// CurrentAssets returns the latest catalog snapshot.
func (catalog *PriceCatalog) CurrentAssets() Catalog {
	return catalog.snapshot.Load()
}

// Subscribe calls onChange with every new snapshot of the catalog.
func (catalog *PriceCatalog) Subscribe(onChange func(Catalog)) (unsubscribe func()) {
	return catalog.snapshot.Subscribe(onChange)
}

// BootstrapIfEmpty writes the default assets when the store has no catalog.
// A populated catalog is never written. The snapshot itself is only changed
// by the store pushing the committed catalog back.
//
// If the store cannot be read or written and no catalog has been pushed, the
// defaults are published locally so trading still has prices, and the error
// is returned.
func (catalog *PriceCatalog) BootstrapIfEmpty(ctx context.Context) error {
	existing, err := catalog.engine.store.Read(ctx, catalogPath)

	if err != nil {
		catalog.engine.logger.Error("catalog read failed, using default prices", "error", err)
		catalog.publishDefaults()

		return newError(StoreReadFailed, "the catalog could not be read", err)
	}

	if existing.Exists() {
		return nil
	}

	defaults := DefaultAssets()
	updates := make(map[string]any, len(defaults))

	for _, asset := range defaults {
		updates[joinPath(catalogPath, asset.ID)] = encodeAsset(asset)
	}

	if err := catalog.engine.store.WriteAtomic(ctx, updates); err != nil {
		catalog.engine.logger.Error("catalog bootstrap write failed, using default prices", "error", err)
		catalog.publishDefaults()

		return newError(StoreWriteFailed, "the default catalog could not be saved", err)
	}

	catalog.engine.logger.Info("catalog bootstrapped with default assets", "assets", len(defaults))

	return nil
}
