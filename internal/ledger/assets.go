package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/model"
	"github.com/dense-analysis/walletledger/internal/snapshot"
)

// QuantityPlaces is the precision MaxPurchasable rounds down to.
const QuantityPlaces = 8

// Holdings is a snapshot of the user's holdings, keyed by asset ID.
type Holdings = snapshot.Collection[model.Holding]

// AssetLedger owns holdings and the buy and sell trades against accounts.
type AssetLedger struct {
	engine   *engine
	accounts *AccountLedger
	catalog  *PriceCatalog
	snapshot snapshot.Value[Holdings]
}

func holdingKey(holding model.Holding) string {
	return holding.AssetID
}

func (ledger *AssetLedger) push(update docstore.Snapshot) {
	holdings := decodeChildren(update.Children(), decodeHolding, ledger.engine.skipDocument(holdingsPath))
	ledger.snapshot.Store(snapshot.NewCollection(holdings, holdingKey))
}

// CurrentHoldings returns the latest pushed snapshot, including holdings
// sold down to zero.
func (ledger *AssetLedger) CurrentHoldings() Holdings {
	return ledger.snapshot.Load()
}

// CurrentCatalog returns the latest catalog snapshot.
func (ledger *AssetLedger) CurrentCatalog() Catalog {
	return ledger.catalog.CurrentAssets()
}

// Subscribe calls onChange with every new snapshot of the holdings.
func (ledger *AssetLedger) Subscribe(onChange func(Holdings)) (unsubscribe func()) {
	return ledger.snapshot.Subscribe(onChange)
}

// Holding looks up the holding for an asset.
func (ledger *AssetLedger) Holding(assetID string) (model.Holding, bool) {
	return ledger.CurrentHoldings().Get(assetID)
}

// OwnedHoldings returns the holdings with a positive quantity.
func (ledger *AssetLedger) OwnedHoldings() []model.Holding {
	var owned []model.Holding

	for _, holding := range ledger.CurrentHoldings().All() {
		if holding.Quantity.IsPositive() {
			owned = append(owned, holding)
		}
	}

	return owned
}

// MaxPurchasable returns the largest quantity of an asset the balance of an
// account can pay for at the current price.
func (ledger *AssetLedger) MaxPurchasable(accountKey string, assetID string) (decimal.Decimal, bool) {
	account, ok := ledger.accounts.Account(accountKey)

	if !ok {
		return decimal.Zero, false
	}

	asset, ok := ledger.CurrentCatalog().Get(assetID)

	if !ok {
		return decimal.Zero, false
	}

	return account.Balance.Div(asset.Price).Truncate(QuantityPlaces), true
}

// Buy pays for quantity of an asset from an account at the catalog price.
func (ledger *AssetLedger) Buy(
	ctx context.Context,
	accountKey string,
	assetID string,
	quantity decimal.Decimal,
) Result {
	return ledger.engine.execute(ctx, func() (mutation, string, *Error) {
		if accountKey == "" || assetID == "" || !quantity.IsPositive() {
			return mutation{}, "", newError(InvalidArgument, "invalid parameters for the purchase", nil)
		}

		account, err := findAccount(ledger.accounts.CurrentAccounts(), accountKey, "account not found")

		if err != nil {
			return mutation{}, "", err
		}

		asset, ok := ledger.CurrentCatalog().Get(assetID)

		if !ok {
			return mutation{}, "", newError(NotFound, "asset not found in the catalog", nil)
		}

		cost := quantity.Mul(asset.Price)

		if cost.GreaterThan(account.Balance) {
			return mutation{}, "", newError(InsufficientFunds, "insufficient balance for this purchase", nil)
		}

		held := decimal.Zero

		if holding, ok := ledger.Holding(assetID); ok {
			held = holding.Quantity
		}

		record := ledger.engine.record(model.BuyCrypto)
		record.Source = reference(account)
		record.Destination = record.Source
		record.Amount = cost
		record.AssetID = asset.ID
		record.AssetQuantity = quantity
		record.AssetPrice = asset.Price

		return mutation{
			Balances: []balanceUpdate{{AccountKey: account.Key, Balance: account.Balance.Sub(cost)}},
			Holding: &holdingUpdate{
				AssetID:  asset.ID,
				Quantity: held.Add(quantity),
				Details:  &asset,
			},
			Record: record,
		}, fmt.Sprintf("Bought %s %s for $%s", quantity.String(), asset.Symbol, cost.StringFixed(2)), nil
	})
}

// Sell sells quantity of a held asset into an account at the price cached
// on the holding.
func (ledger *AssetLedger) Sell(
	ctx context.Context,
	accountKey string,
	assetID string,
	quantity decimal.Decimal,
) Result {
	return ledger.engine.execute(ctx, func() (mutation, string, *Error) {
		if accountKey == "" || assetID == "" || !quantity.IsPositive() {
			return mutation{}, "", newError(InvalidArgument, "invalid parameters for the sale", nil)
		}

		account, err := findAccount(ledger.accounts.CurrentAccounts(), accountKey, "account not found")

		if err != nil {
			return mutation{}, "", err
		}

		holding, ok := ledger.Holding(assetID)

		if !ok {
			return mutation{}, "", newError(NotFound, "you do not hold this asset", nil)
		}

		if quantity.GreaterThan(holding.Quantity) {
			return mutation{}, "", newError(InsufficientHoldings, "insufficient quantity of this asset to sell", nil)
		}

		price := holding.Price
		symbol := holding.Symbol

		// Holdings written without a cached price sell at the catalog price.
		if !price.IsPositive() {
			asset, ok := ledger.CurrentCatalog().Get(assetID)

			if !ok {
				return mutation{}, "", newError(NotFound, "asset not found in the catalog", nil)
			}

			price = asset.Price

			if symbol == "" {
				symbol = asset.Symbol
			}
		}

		proceeds := quantity.Mul(price)

		record := ledger.engine.record(model.SellCrypto)
		record.Source = reference(account)
		record.Destination = record.Source
		record.Amount = proceeds
		record.AssetID = assetID
		record.AssetQuantity = quantity
		record.AssetPrice = price

		return mutation{
			Balances: []balanceUpdate{{AccountKey: account.Key, Balance: account.Balance.Add(proceeds)}},
			Holding: &holdingUpdate{
				AssetID:  assetID,
				Quantity: holding.Quantity.Sub(quantity),
			},
			Record: record,
		}, fmt.Sprintf("Sold %s %s for $%s", quantity.String(), symbol, proceeds.StringFixed(2)), nil
	})
}
