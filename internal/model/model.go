// Package model defines the entities kept by the wallet ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a monetary account owned by the user.
type Account struct {
	// Key is the opaque key the store assigned to the account.
	Key string
	// Number is the user facing account number, unique within the user's accounts.
	Number  string
	Name    string
	Balance decimal.Decimal
	Type    string
}

// Holding is the quantity of a tradable asset the user holds.
//
// Name, Symbol and Price are cached from the catalog at the last buy.
type Holding struct {
	AssetID  string
	Quantity decimal.Decimal
	Name     string
	Symbol   string
	Price    decimal.Decimal
}

// Asset is a catalog entry for a tradable asset.
type Asset struct {
	ID     string
	Name   string
	Symbol string
	Price  decimal.Decimal
}

// TransactionKind tags what a Transaction recorded.
type TransactionKind string

const (
	Transfer   TransactionKind = "transfer"
	Deposit    TransactionKind = "deposit"
	Withdraw   TransactionKind = "withdraw"
	BuyCrypto  TransactionKind = "buy_crypto"
	SellCrypto TransactionKind = "sell_crypto"
)

// IsTrade returns true for kinds that move an asset holding.
func (kind TransactionKind) IsTrade() bool {
	return kind == BuyCrypto || kind == SellCrypto
}

// Transaction is an immutable record of one ledger mutation.
type Transaction struct {
	ID   string
	Time time.Time
	// Source and Destination hold account numbers. They are equal for
	// everything except transfers.
	Source      string
	Destination string
	Amount      decimal.Decimal
	Kind        TransactionKind
	// The following fields are only set for trades.
	AssetID       string
	AssetQuantity decimal.Decimal
	AssetPrice    decimal.Decimal
}

// Quote is the latest known USD price of an asset symbol.
type Quote struct {
	Symbol string
	Time   time.Time
	Value  decimal.Decimal
}
