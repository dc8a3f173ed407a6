package ledger

import (
	"sort"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
	"github.com/dense-analysis/walletledger/internal/snapshot"
)

// Transactions is a snapshot of the transaction log, most recent first.
type Transactions = snapshot.Collection[model.Transaction]

// TransactionLog is the append only record of ledger mutations.
//
// Records are only ever added as part of the atomic write of an account or
// asset mutation.
type TransactionLog struct {
	engine   *engine
	snapshot snapshot.Value[Transactions]
}

func transactionKey(transaction model.Transaction) string {
	return transaction.ID
}

// sortTransactions orders by time, newest first. Keys are time ordered, so
// records with the same time keep their insertion order, newest first.
func sortTransactions(transactions []model.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		left, right := transactions[i], transactions[j]

		if !left.Time.Equal(right.Time) {
			return left.Time.After(right.Time)
		}

		return left.ID > right.ID
	})
}

func (log *TransactionLog) push(update docstore.Snapshot) {
	transactions := decodeChildren(
		update.Children(),
		decodeTransaction,
		log.engine.skipDocument(transactionsPath),
	)
	sortTransactions(transactions)
	log.snapshot.Store(snapshot.NewCollection(transactions, transactionKey))
}

// CurrentTransactions returns the latest pushed snapshot.
func (log *TransactionLog) CurrentTransactions() Transactions {
	return log.snapshot.Load()
}

// Subscribe calls onChange with every new snapshot of the log.
func (log *TransactionLog) Subscribe(onChange func(Transactions)) (unsubscribe func()) {
	return log.snapshot.Subscribe(onChange)
}

// ForAccount returns the records where an account reference is the source
// or the destination.
func (log *TransactionLog) ForAccount(ref string) []model.Transaction {
	var matching []model.Transaction

	for _, transaction := range log.CurrentTransactions().All() {
		if transaction.Source == ref || transaction.Destination == ref {
			matching = append(matching, transaction)
		}
	}

	return matching
}
