package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
)

// balanceUpdate sets the available balance of one account.
type balanceUpdate struct {
	AccountKey string
	Balance    decimal.Decimal
}

// holdingUpdate sets the quantity of one holding.
type holdingUpdate struct {
	AssetID  string
	Quantity decimal.Decimal
	// Details refreshes the cached name, symbol and price. Buys set it,
	// sells leave the cached values alone.
	Details *model.Asset
}

// mutation is everything one ledger operation writes in a single commit.
type mutation struct {
	Balances []balanceUpdate
	Holding  *holdingUpdate
	Record   model.Transaction
}

func (m mutation) paths() map[string]any {
	updates := make(map[string]any, len(m.Balances)+5)

	for _, balance := range m.Balances {
		updates[joinPath(accountsPath, balance.AccountKey, fieldBalance)] = number(balance.Balance)
	}

	if holding := m.Holding; holding != nil {
		updates[joinPath(holdingsPath, holding.AssetID, fieldQuantity)] = number(holding.Quantity)

		if details := holding.Details; details != nil {
			updates[joinPath(holdingsPath, holding.AssetID, fieldName)] = details.Name
			updates[joinPath(holdingsPath, holding.AssetID, fieldSymbol)] = details.Symbol
			updates[joinPath(holdingsPath, holding.AssetID, fieldPrice)] = number(details.Price)
		}
	}

	updates[joinPath(transactionsPath, m.Record.ID)] = encodeTransaction(m.Record)

	return updates
}

// engine is shared by every ledger component of a Service.
type engine struct {
	store  docstore.Store
	logger *slog.Logger
	now    func() time.Time
	// mu serialises validation across every component, so two validations
	// never read the snapshots at the same time. It is not held for writes.
	mu sync.Mutex
}

// record starts a transaction record with a fresh key and the current time,
// truncated to the precision it is stored with.
func (e *engine) record(kind model.TransactionKind) model.Transaction {
	return model.Transaction{
		ID:   e.store.NewKey(),
		Time: e.now().UTC().Truncate(time.Millisecond),
		Kind: kind,
	}
}

// execute validates and composes a mutation under the lock, then writes it.
func (e *engine) execute(ctx context.Context, prepare func() (mutation, string, *Error)) Result {
	e.mu.Lock()
	m, message, failure := prepare()
	e.mu.Unlock()

	if failure != nil {
		e.logger.Debug("ledger mutation rejected", "kind", failure.Kind.String(), "message", failure.Message)

		return failed(failure)
	}

	if err := e.store.WriteAtomic(ctx, m.paths()); err != nil {
		e.logger.Error(
			"ledger write failed",
			"transaction", m.Record.ID,
			"type", string(m.Record.Kind),
			"error", err,
		)

		return failed(newError(StoreWriteFailed, "the transaction could not be saved", err))
	}

	e.logger.Info(
		"ledger write committed",
		"transaction", m.Record.ID,
		"type", string(m.Record.Kind),
		"amount", m.Record.Amount.String(),
	)

	record := m.Record

	return Result{Success: true, Message: message, Transaction: &record}
}

func (e *engine) skipDocument(collection string) func(string, error) {
	return func(key string, err error) {
		e.logger.Warn("skipping malformed document", "collection", collection, "key", key, "error", err)
	}
}
