package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
)

func seedFundedAccounts(t *testing.T, store *docstore.Memory, count int, funds string) []string {
	t.Helper()

	keys := make([]string, count)
	updates := make(map[string]any, count)

	for i := range keys {
		keys[i] = fmt.Sprintf("account%d", i)
		updates["accounts/"+keys[i]] = map[string]any{
			"numeroCuenta":    fmt.Sprintf("0000-0000-0000-000%d", i),
			"saldoDisponible": json.Number(funds),
			"nombre":          fmt.Sprintf("Cuenta %d", i),
			"tipo":            "corriente",
		}
	}

	seed(t, store, updates)

	return keys
}

// readContinuously reads every snapshot until stop is closed, failing on any
// negative balance or holding it sees.
func readContinuously(t *testing.T, service *Service, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-stop:
			return
		default:
		}

		for _, account := range service.Accounts.CurrentAccounts().All() {
			if account.Balance.IsNegative() {
				t.Errorf("%s balance went negative: %s", account.Key, account.Balance)
			}
		}

		for _, holding := range service.Assets.CurrentHoldings().All() {
			if holding.Quantity.IsNegative() {
				t.Errorf("%s quantity went negative: %s", holding.AssetID, holding.Quantity)
			}
		}

		_ = service.Transactions.CurrentTransactions().All()
	}
}

// TestConcurrentMutationsOnDisjointAccounts runs deposits and buys for
// several accounts at once while snapshots are read. Run it with -race.
func TestConcurrentMutationsOnDisjointAccounts(t *testing.T) {
	const rounds = 10

	store := docstore.NewMemory()
	keys := seedFundedAccounts(t, store, 4, "10000")
	service := openService(t, store)
	assets := DefaultAssets()
	commits := store.Commits()

	var committed atomic.Int64
	var writers, readers sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 2; i++ {
		readers.Add(1)
		go readContinuously(t, service, stop, &readers)
	}

	for i, key := range keys {
		writers.Add(1)

		go func(key string, asset model.Asset) {
			defer writers.Done()

			ctx := context.Background()

			for j := 0; j < rounds; j++ {
				for _, result := range []Result{
					service.Accounts.Deposit(ctx, key, amount("1")),
					service.Assets.Buy(ctx, key, asset.ID, amount("0.001")),
				} {
					if !result.Success {
						t.Errorf("%s: %s", key, result.Message)

						continue
					}

					committed.Add(1)
				}
			}
		}(key, assets[i])
	}

	writers.Wait()
	close(stop)
	readers.Wait()

	want := int64(len(keys) * rounds * 2)

	if got := committed.Load(); got != want {
		t.Fatalf("%d mutations committed, want %d", got, want)
	}

	if got := int64(store.Commits() - commits); got != want {
		t.Errorf("store applied %d writes, want %d", got, want)
	}

	if got := int64(service.Transactions.CurrentTransactions().Len()); got != want {
		t.Errorf("got %d transaction records, want %d", got, want)
	}

	for i, key := range keys {
		bought := amount("0.001").Mul(decimal.NewFromInt(rounds))
		cost := bought.Mul(assets[i].Price)
		expected := amount("10000").Add(decimal.NewFromInt(rounds)).Sub(cost)

		assertDecimal(t, key+" balance", balance(t, service, key), expected.String())

		holding, ok := service.Assets.Holding(assets[i].ID)

		if !ok {
			t.Errorf("%s holding missing", assets[i].ID)

			continue
		}

		assertDecimal(t, assets[i].ID+" quantity", holding.Quantity, bought.String())
	}
}

// TestConcurrentWithdrawalsNeverOverdraw races withdrawals on one account.
// Updates may be lost to the stale snapshot window, but every committed
// write has exactly one record and no balance goes below zero. Run it with
// -race.
func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	store := docstore.NewMemory()
	keys := seedFundedAccounts(t, store, 1, "1000")
	service := openService(t, store)
	commits := store.Commits()

	var committed atomic.Int64
	var writers, readers sync.WaitGroup
	stop := make(chan struct{})

	readers.Add(1)
	go readContinuously(t, service, stop, &readers)

	for i := 0; i < 25; i++ {
		writers.Add(1)

		go func() {
			defer writers.Done()

			result := service.Accounts.Withdraw(context.Background(), keys[0], amount("60"))

			switch {
			case result.Success:
				committed.Add(1)
			case result.Kind() != InsufficientFunds:
				t.Errorf("withdraw failed with %s: %s", result.Kind(), result.Message)
			}
		}()
	}

	writers.Wait()
	close(stop)
	readers.Wait()

	got := committed.Load()

	if got == 0 {
		t.Fatal("no withdrawal committed")
	}

	if applied := int64(store.Commits() - commits); applied != got {
		t.Errorf("store applied %d writes for %d committed withdrawals", applied, got)
	}

	if records := int64(service.Transactions.CurrentTransactions().Len()); records != got {
		t.Errorf("got %d transaction records for %d committed withdrawals", records, got)
	}

	if final := balance(t, service, keys[0]); final.IsNegative() {
		t.Errorf("balance = %s", final)
	}
}
