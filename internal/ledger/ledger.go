// Package ledger applies wallet mutations to a document store.
//
// Every mutation validates against the latest pushed snapshots, then writes
// the new balances, the holding and one transaction record in a single
// atomic write. The snapshots only change when the store pushes the committed
// state back.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/dense-analysis/walletledger/internal/docstore"
)

// Service wires the ledger components to one store.
type Service struct {
	Accounts     *AccountLedger
	Assets       *AssetLedger
	Catalog      *PriceCatalog
	Transactions *TransactionLog

	engine        *engine
	subscriptions []docstore.Subscription
}

// Option configures a Service.
type Option func(*engine)

// WithClock sets the clock used to time transaction records.
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		e.now = now
	}
}

// Open subscribes the ledger components to their collections and bootstraps
// the catalog. Every snapshot has been loaded once Open returns. A catalog
// written by the bootstrap arrives with the store's push for that write.
//
// A failed catalog bootstrap is logged and does not stop the service, as
// the default prices are used instead.
func Open(ctx context.Context, store docstore.Store, logger *slog.Logger, options ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e := &engine{
		store:  store,
		logger: logger.With("component", "ledger"),
		now:    time.Now,
	}

	for _, option := range options {
		option(e)
	}

	service := &Service{engine: e}
	service.Catalog = &PriceCatalog{engine: e}
	service.Accounts = &AccountLedger{engine: e}
	service.Assets = &AssetLedger{engine: e, accounts: service.Accounts, catalog: service.Catalog}
	service.Transactions = &TransactionLog{engine: e}

	subscriptions := []struct {
		path     string
		onChange func(docstore.Snapshot)
	}{
		{catalogPath, service.Catalog.push},
		{accountsPath, service.Accounts.push},
		{holdingsPath, service.Assets.push},
		{transactionsPath, service.Transactions.push},
	}

	for _, item := range subscriptions {
		subscription, err := store.Subscribe(item.path, item.onChange)

		if err != nil {
			service.Close()

			return nil, newError(StoreReadFailed, "could not subscribe to "+item.path, err)
		}

		service.subscriptions = append(service.subscriptions, subscription)
	}

	if err := service.Catalog.BootstrapIfEmpty(ctx); err != nil {
		e.logger.Error("catalog bootstrap failed", "error", err)
	}

	return service, nil
}

// Close stops receiving pushes from the store.
func (service *Service) Close() {
	for _, subscription := range service.subscriptions {
		subscription.Unsubscribe()
	}

	service.subscriptions = nil
}
