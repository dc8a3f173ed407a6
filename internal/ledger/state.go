package ledger

import (
	"context"
	"log/slog"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
)

// CatalogPath is the collection holding the catalog.
const CatalogPath = catalogPath

// PricePath returns the path of the current price of a catalog asset.
func PricePath(assetID string) string {
	return joinPath(catalogPath, assetID, fieldPrice)
}

// EncodePrice converts a price to the value stored at PricePath.
func EncodePrice(asset model.Asset) any {
	return number(asset.Price)
}

// State is every collection of the ledger read once from a store.
type State struct {
	Accounts     []model.Account
	Holdings     []model.Holding
	Catalog      []model.Asset
	Transactions []model.Transaction
}

// DecodeCatalog decodes the documents of the catalog collection. Malformed
// documents are logged and left out.
func DecodeCatalog(children map[string]any, logger *slog.Logger) []model.Asset {
	e := &engine{logger: logger}

	return decodeChildren(children, decodeAsset, e.skipDocument(catalogPath))
}

// Load reads every collection with one read each. Transactions are sorted
// newest first.
func Load(ctx context.Context, store docstore.Store, logger *slog.Logger) (State, error) {
	e := &engine{logger: logger}
	read := func(path string) (map[string]any, error) {
		snapshot, err := store.Read(ctx, path)

		if err != nil {
			return nil, newError(StoreReadFailed, "could not read "+path, err)
		}

		return snapshot.Children(), nil
	}

	var state State

	accounts, err := read(accountsPath)

	if err != nil {
		return State{}, err
	}

	holdings, err := read(holdingsPath)

	if err != nil {
		return State{}, err
	}

	catalog, err := read(catalogPath)

	if err != nil {
		return State{}, err
	}

	transactions, err := read(transactionsPath)

	if err != nil {
		return State{}, err
	}

	state.Accounts = decodeChildren(accounts, decodeAccount, e.skipDocument(accountsPath))
	state.Holdings = decodeChildren(holdings, decodeHolding, e.skipDocument(holdingsPath))
	state.Catalog = decodeChildren(catalog, decodeAsset, e.skipDocument(catalogPath))
	state.Transactions = decodeChildren(transactions, decodeTransaction, e.skipDocument(transactionsPath))
	sortTransactions(state.Transactions)

	return state, nil
}
