package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
)

func TestBuy(t *testing.T) {
	service, store := newTestService(t)

	result := service.Assets.Buy(context.Background(), "main", "btc", amount("0.01"))
	assertSuccess(t, result)

	if result.Message != "Bought 0.01 BTC for $612.45" {
		t.Errorf("message = %q", result.Message)
	}

	assertDecimal(t, "main balance", balance(t, service, "main"), "1888.30")

	holding, ok := service.Assets.Holding("btc")

	if !ok {
		t.Fatal("no BTC holding after a buy")
	}

	assertDecimal(t, "quantity", holding.Quantity, "0.01")
	assertDecimal(t, "cached price", holding.Price, "61245.00")

	if holding.Name != "Bitcoin" || holding.Symbol != "BTC" {
		t.Errorf("holding details = %q %q", holding.Name, holding.Symbol)
	}

	transactions := service.Transactions.CurrentTransactions().All()

	if len(transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(transactions))
	}

	transaction := transactions[0]

	if transaction.Kind != model.BuyCrypto || transaction.AssetID != "btc" {
		t.Errorf("transaction = %+v", transaction)
	}

	assertDecimal(t, "monto", transaction.Amount, "612.45")
	assertDecimal(t, "cantidadCripto", transaction.AssetQuantity, "0.01")
	assertDecimal(t, "precioCripto", transaction.AssetPrice, "61245.00")

	stored, err := store.Read(context.Background(), "holdings/btc")

	if err != nil {
		t.Fatal(err)
	}

	if document := stored.Children(); document["monto"] != json.Number("0.01") {
		t.Errorf("stored holding = %v", document)
	}
}

func TestBuyAddsToExistingHolding(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	assertSuccess(t, service.Assets.Buy(ctx, "main", "sol", amount("1")))
	assertSuccess(t, service.Assets.Buy(ctx, "savings", "sol", amount("2.5")))

	holding, _ := service.Assets.Holding("sol")
	assertDecimal(t, "quantity", holding.Quantity, "3.5")
	assertDecimal(t, "main balance", balance(t, service, "main"), "2358.65")
	assertDecimal(t, "savings balance", balance(t, service, "savings"), "845.25")
}

func TestBuyValidation(t *testing.T) {
	tests := []struct {
		name     string
		account  string
		asset    string
		quantity string
		kind     ErrorKind
	}{
		{"missing account", "", "btc", "1", InvalidArgument},
		{"missing asset", "main", "", "1", InvalidArgument},
		{"zero quantity", "main", "btc", "0", InvalidArgument},
		{"negative quantity", "main", "btc", "-1", InvalidArgument},
		{"unknown account", "nope", "btc", "0.01", NotFound},
		{"unknown asset", "main", "doge", "1", NotFound},
		{"insufficient funds", "main", "btc", "0.05", InsufficientFunds},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			service, store := newTestService(t)
			attempts := store.Attempts()

			result := service.Assets.Buy(context.Background(), test.account, test.asset, amount(test.quantity))
			assertFailure(t, result, test.kind)

			if store.Attempts() != attempts {
				t.Error("a write was attempted for an invalid purchase")
			}

			if service.Assets.CurrentHoldings().Len() != 0 {
				t.Error("a holding was created")
			}
		})
	}
}

func TestSellWholeHoldingKeepsRecord(t *testing.T) {
	store := docstore.NewMemory()
	seedAccounts(t, store)
	seed(t, store, map[string]any{
		"holdings/btc": map[string]any{
			"monto":  json.Number("0.01"),
			"name":   "Bitcoin",
			"symbol": "BTC",
			"price":  json.Number("61245.00"),
		},
	})
	service := openService(t, store)

	result := service.Assets.Sell(context.Background(), "main", "btc", amount("0.01"))
	assertSuccess(t, result)

	if result.Message != "Sold 0.01 BTC for $612.45" {
		t.Errorf("message = %q", result.Message)
	}

	assertDecimal(t, "main balance", balance(t, service, "main"), "3113.20")

	holding, ok := service.Assets.Holding("btc")

	if !ok {
		t.Fatal("holding was removed")
	}

	assertDecimal(t, "quantity", holding.Quantity, "0")

	if owned := service.Assets.OwnedHoldings(); len(owned) != 0 {
		t.Errorf("owned holdings = %v", owned)
	}

	transaction := service.Transactions.CurrentTransactions().All()[0]

	if transaction.Kind != model.SellCrypto {
		t.Errorf("kind = %q", transaction.Kind)
	}

	assertDecimal(t, "monto", transaction.Amount, "612.45")
	assertDecimal(t, "precioCripto", transaction.AssetPrice, "61245")
}

func TestSellUsesCachedHoldingPrice(t *testing.T) {
	store := docstore.NewMemory()
	seedAccounts(t, store)
	seed(t, store, map[string]any{
		"holdings/eth": map[string]any{"monto": json.Number("2"), "price": json.Number("3000")},
		"holdings/sol": map[string]any{"monto": json.Number("2")},
	})
	service := openService(t, store)
	ctx := context.Background()

	assertSuccess(t, service.Assets.Sell(ctx, "savings", "eth", amount("1")))
	assertDecimal(t, "after eth", balance(t, service, "savings"), "4200.50")

	// No cached price, so the catalog price applies.
	result := service.Assets.Sell(ctx, "savings", "sol", amount("1"))
	assertSuccess(t, result)
	assertDecimal(t, "after sol", balance(t, service, "savings"), "4342.60")

	if result.Message != "Sold 1 SOL for $142.10" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestSellValidation(t *testing.T) {
	tests := []struct {
		name     string
		account  string
		asset    string
		quantity string
		kind     ErrorKind
	}{
		{"missing asset", "main", "", "1", InvalidArgument},
		{"zero quantity", "main", "btc", "0", InvalidArgument},
		{"unknown account", "nope", "btc", "0.01", NotFound},
		{"not held", "main", "eth", "1", NotFound},
		{"more than held", "main", "btc", "0.02", InsufficientHoldings},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := docstore.NewMemory()
			seedAccounts(t, store)
			seed(t, store, map[string]any{
				"holdings/btc": map[string]any{"monto": json.Number("0.01"), "price": json.Number("61245")},
			})
			service := openService(t, store)
			attempts := store.Attempts()

			result := service.Assets.Sell(context.Background(), test.account, test.asset, amount(test.quantity))
			assertFailure(t, result, test.kind)

			if store.Attempts() != attempts {
				t.Error("a write was attempted for an invalid sale")
			}

			holding, _ := service.Assets.Holding("btc")
			assertDecimal(t, "quantity", holding.Quantity, "0.01")
		})
	}
}

func TestBuyThenSellRestoresBalance(t *testing.T) {
	quantities := []string{"0.01", "0.00012345", "0.5"}

	for _, quantity := range quantities {
		t.Run(quantity, func(t *testing.T) {
			service, _ := newTestService(t)
			ctx := context.Background()

			assertSuccess(t, service.Assets.Buy(ctx, "main", "eth", amount(quantity)))
			assertSuccess(t, service.Assets.Sell(ctx, "main", "eth", amount(quantity)))

			assertDecimal(t, "main balance", balance(t, service, "main"), "2500.75")

			holding, _ := service.Assets.Holding("eth")
			assertDecimal(t, "quantity", holding.Quantity, "0")

			if got := service.Transactions.CurrentTransactions().Len(); got != 2 {
				t.Errorf("got %d transactions, want 2", got)
			}
		})
	}
}

func TestTradeBalanceMatchesQuantityTimesPrice(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	before := balance(t, service, "main")

	result := service.Assets.Buy(ctx, "main", "bnb", amount("1.5"))
	assertSuccess(t, result)

	delta := balance(t, service, "main").Sub(before)
	want := result.Transaction.AssetQuantity.Mul(result.Transaction.AssetPrice).Neg()

	if !delta.Equal(want) {
		t.Errorf("balance changed by %s, want %s", delta, want)
	}
}

func TestMaxPurchasable(t *testing.T) {
	service, _ := newTestService(t)

	quantity, ok := service.Assets.MaxPurchasable("main", "btc")

	if !ok {
		t.Fatal("MaxPurchasable failed")
	}

	assertDecimal(t, "max", quantity, "0.0408319")

	if _, ok := service.Assets.MaxPurchasable("main", "doge"); ok {
		t.Error("MaxPurchasable succeeded for an unknown asset")
	}

	assertSuccess(t, service.Assets.Buy(context.Background(), "main", "btc", quantity))
}
