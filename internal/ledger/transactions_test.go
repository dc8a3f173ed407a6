package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
)

func TestTransactionsNewestFirst(t *testing.T) {
	store := docstore.NewMemory()
	seedAccounts(t, store)
	seed(t, store, map[string]any{
		"transactions/old": map[string]any{
			"fecha":         "2023-01-02T03:04:05.000Z",
			"cuentaOrigen":  mainNumber,
			"cuentaDestino": mainNumber,
			"monto":         json.Number("20"),
			"tipo":          "deposito",
		},
		"transactions/legacy": map[string]any{
			"fecha":          "2023-06-01T00:00:00.000Z",
			"cuentaOrigen":   mainNumber,
			"cuentaDestino":  mainNumber,
			"monto":          "612.45",
			"tipo":           "compra_cripto",
			"criptoId":       "btc",
			"cantidadCripto": json.Number("0.01"),
			"precioCripto":   json.Number("61245"),
		},
		"transactions/broken": map[string]any{
			"monto": json.Number("1"),
			"tipo":  "deposit",
		},
	})
	service := openService(t, store)
	ctx := context.Background()

	first := service.Accounts.Deposit(ctx, "main", amount("1"))
	second := service.Accounts.Deposit(ctx, "savings", amount("2"))
	assertSuccess(t, first)
	assertSuccess(t, second)

	transactions := service.Transactions.CurrentTransactions().All()
	var ids []string

	for _, transaction := range transactions {
		ids = append(ids, transaction.ID)
	}

	want := []string{second.Transaction.ID, first.Transaction.ID, "legacy", "old"}

	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}

	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	legacy, _ := service.Transactions.CurrentTransactions().Get("legacy")

	if legacy.Kind != model.BuyCrypto || legacy.AssetID != "btc" {
		t.Errorf("legacy = %+v", legacy)
	}

	assertDecimal(t, "legacy monto", legacy.Amount, "612.45")
	assertDecimal(t, "legacy cantidadCripto", legacy.AssetQuantity, "0.01")

	old, _ := service.Transactions.CurrentTransactions().Get("old")

	if old.Kind != model.Deposit {
		t.Errorf("old kind = %q", old.Kind)
	}

	if !old.Time.Equal(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("old time = %v", old.Time)
	}
}

func TestForAccount(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	assertSuccess(t, service.Accounts.Deposit(ctx, "main", amount("1")))
	assertSuccess(t, service.Accounts.Transfer(ctx, "savings", "main", amount("2")))
	assertSuccess(t, service.Accounts.Withdraw(ctx, "savings", amount("3")))

	if got := len(service.Transactions.ForAccount(mainNumber)); got != 2 {
		t.Errorf("main has %d transactions, want 2", got)
	}

	if got := len(service.Transactions.ForAccount(savingsNumber)); got != 2 {
		t.Errorf("savings has %d transactions, want 2", got)
	}
}

func TestEveryMutationWritesOneRecord(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	operations := []func() Result{
		func() Result { return service.Accounts.Deposit(ctx, "main", amount("5")) },
		func() Result { return service.Accounts.Withdraw(ctx, "main", amount("10000")) },
		func() Result { return service.Accounts.Transfer(ctx, "main", "savings", amount("5")) },
		func() Result { return service.Assets.Buy(ctx, "savings", "eth", amount("0.1")) },
		func() Result { return service.Assets.Sell(ctx, "savings", "eth", amount("0.2")) },
		func() Result { return service.Assets.Sell(ctx, "savings", "eth", amount("0.05")) },
	}

	for i, operation := range operations {
		before := service.Transactions.CurrentTransactions().Len()
		commits := store.Commits()
		result := operation()
		added := service.Transactions.CurrentTransactions().Len() - before

		if result.Success {
			if added != 1 || store.Commits() != commits+1 {
				t.Errorf("operation %d added %d records in %d commits", i, added, store.Commits()-commits)
			}

			record, ok := service.Transactions.CurrentTransactions().Get(result.Transaction.ID)

			if !ok || record.Kind != result.Transaction.Kind || !record.Amount.Equal(result.Transaction.Amount) {
				t.Errorf("operation %d record = %+v, result = %+v", i, record, result.Transaction)
			}
		} else if added != 0 {
			t.Errorf("failed operation %d added %d records", i, added)
		}
	}
}
