package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
	"github.com/dense-analysis/walletledger/internal/snapshot"
)

// UnknownAccount is the display name for references matching no account.
const UnknownAccount = "Unknown account"

// Accounts is a snapshot of the user's accounts, keyed by store key.
type Accounts = snapshot.Collection[model.Account]

// AccountLedger owns account balances and the cash mutations on them.
type AccountLedger struct {
	engine   *engine
	snapshot snapshot.Value[Accounts]
}

func accountKey(account model.Account) string {
	return account.Key
}

// reference is how transaction records refer to an account.
func reference(account model.Account) string {
	if account.Number != "" {
		return account.Number
	}

	return account.Key
}

func (ledger *AccountLedger) push(update docstore.Snapshot) {
	accounts := decodeChildren(update.Children(), decodeAccount, ledger.engine.skipDocument(accountsPath))
	ledger.snapshot.Store(snapshot.NewCollection(accounts, accountKey))
}

// CurrentAccounts returns the latest pushed snapshot.
func (ledger *AccountLedger) CurrentAccounts() Accounts {
	return ledger.snapshot.Load()
}

// Subscribe calls onChange with every new snapshot of the accounts.
func (ledger *AccountLedger) Subscribe(onChange func(Accounts)) (unsubscribe func()) {
	return ledger.snapshot.Subscribe(onChange)
}

// Account looks up an account by its store key.
func (ledger *AccountLedger) Account(key string) (model.Account, bool) {
	return ledger.CurrentAccounts().Get(key)
}

// AccountDisplayName returns the name of the account with the given number or
// key, or UnknownAccount.
func (ledger *AccountLedger) AccountDisplayName(ref string) string {
	accounts := ledger.CurrentAccounts()

	if account, ok := accounts.Find(func(account model.Account) bool {
		return account.Number == ref
	}); ok && ref != "" {
		return account.Name
	}

	if account, ok := accounts.Get(ref); ok {
		return account.Name
	}

	return UnknownAccount
}

func checkAmount(amount decimal.Decimal) *Error {
	if !amount.IsPositive() {
		return newError(InvalidArgument, "the amount must be greater than zero", nil)
	}

	return nil
}

func findAccount(accounts Accounts, key string, message string) (model.Account, *Error) {
	account, ok := accounts.Get(key)

	if !ok {
		return model.Account{}, newError(NotFound, message, nil)
	}

	return account, nil
}

// Transfer moves amount from one account to another.
func (ledger *AccountLedger) Transfer(
	ctx context.Context,
	sourceKey string,
	destinationKey string,
	amount decimal.Decimal,
) Result {
	return ledger.engine.execute(ctx, func() (mutation, string, *Error) {
		if sourceKey == "" || destinationKey == "" {
			return mutation{}, "", newError(InvalidArgument, "both accounts must be selected", nil)
		}

		if sourceKey == destinationKey {
			return mutation{}, "", newError(InvalidArgument, "the source and destination accounts must differ", nil)
		}

		if err := checkAmount(amount); err != nil {
			return mutation{}, "", err
		}

		accounts := ledger.CurrentAccounts()
		source, err := findAccount(accounts, sourceKey, "source account not found")

		if err != nil {
			return mutation{}, "", err
		}

		destination, err := findAccount(accounts, destinationKey, "destination account not found")

		if err != nil {
			return mutation{}, "", err
		}

		if amount.GreaterThan(source.Balance) {
			return mutation{}, "", newError(InsufficientFunds, "insufficient balance for this transfer", nil)
		}

		record := ledger.engine.record(model.Transfer)
		record.Source = reference(source)
		record.Destination = reference(destination)
		record.Amount = amount

		return mutation{
			Balances: []balanceUpdate{
				{AccountKey: source.Key, Balance: source.Balance.Sub(amount)},
				{AccountKey: destination.Key, Balance: destination.Balance.Add(amount)},
			},
			Record: record,
		}, fmt.Sprintf("Transferred $%s from %s to %s", amount.StringFixed(2), source.Name, destination.Name), nil
	})
}

// Deposit adds amount to an account.
func (ledger *AccountLedger) Deposit(ctx context.Context, key string, amount decimal.Decimal) Result {
	return ledger.engine.execute(ctx, func() (mutation, string, *Error) {
		if key == "" {
			return mutation{}, "", newError(InvalidArgument, "an account must be selected", nil)
		}

		if err := checkAmount(amount); err != nil {
			return mutation{}, "", err
		}

		account, err := findAccount(ledger.CurrentAccounts(), key, "account not found")

		if err != nil {
			return mutation{}, "", err
		}

		record := ledger.engine.record(model.Deposit)
		record.Source = reference(account)
		record.Destination = record.Source
		record.Amount = amount

		return mutation{
			Balances: []balanceUpdate{{AccountKey: account.Key, Balance: account.Balance.Add(amount)}},
			Record:   record,
		}, fmt.Sprintf("Deposited $%s into %s", amount.StringFixed(2), account.Name), nil
	})
}

// Withdraw takes amount out of an account.
func (ledger *AccountLedger) Withdraw(ctx context.Context, key string, amount decimal.Decimal) Result {
	return ledger.engine.execute(ctx, func() (mutation, string, *Error) {
		if key == "" {
			return mutation{}, "", newError(InvalidArgument, "an account must be selected", nil)
		}

		if err := checkAmount(amount); err != nil {
			return mutation{}, "", err
		}

		account, err := findAccount(ledger.CurrentAccounts(), key, "account not found")

		if err != nil {
			return mutation{}, "", err
		}

		if amount.GreaterThan(account.Balance) {
			return mutation{}, "", newError(InsufficientFunds, "insufficient balance for this withdrawal", nil)
		}

		record := ledger.engine.record(model.Withdraw)
		record.Source = reference(account)
		record.Destination = record.Source
		record.Amount = amount

		return mutation{
			Balances: []balanceUpdate{{AccountKey: account.Key, Balance: account.Balance.Sub(amount)}},
			Record:   record,
		}, fmt.Sprintf("Withdrew $%s from %s", amount.StringFixed(2), account.Name), nil
	})
}
