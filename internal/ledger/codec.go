package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/model"
)

// Collections and document fields as they are laid out in the store.
const (
	accountsPath     = "accounts"
	holdingsPath     = "holdings"
	catalogPath      = "catalog"
	transactionsPath = "transactions"

	fieldAccountNumber = "numeroCuenta"
	fieldBalance       = "saldoDisponible"
	fieldAccountName   = "nombre"
	fieldAccountType   = "tipo"

	fieldQuantity = "monto"
	fieldName     = "name"
	fieldSymbol   = "symbol"
	fieldPrice    = "price"

	fieldTime          = "fecha"
	fieldSource        = "cuentaOrigen"
	fieldDestination   = "cuentaDestino"
	fieldAmount        = "monto"
	fieldKind          = "tipo"
	fieldAssetID       = "criptoId"
	fieldAssetQuantity = "cantidadCripto"
	fieldAssetPrice    = "precioCripto"
)

// TimeFormat is how transaction times are written.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Transaction kinds written by older versions of the wallet.
var legacyKinds = map[string]model.TransactionKind{
	"transferencia": model.Transfer,
	"deposito":      model.Deposit,
	"retiro":        model.Withdraw,
	"compra_cripto": model.BuyCrypto,
	"venta_cripto":  model.SellCrypto,
}

func joinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

func number(value decimal.Decimal) json.Number {
	return json.Number(value.String())
}

func decodeDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case decimal.Decimal:
		return v, nil
	default:
		return decimal.Zero, fmt.Errorf("%T is not a number", value)
	}
}

func decodeString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func decodeKind(value string) model.TransactionKind {
	if kind, ok := legacyKinds[value]; ok {
		return kind
	}

	return model.TransactionKind(value)
}

func decodeTime(value any) (time.Time, error) {
	text := decodeString(value)

	if text == "" {
		return time.Time{}, fmt.Errorf("missing time")
	}

	return time.Parse(time.RFC3339Nano, text)
}

type fields map[string]any

func asFields(value any) (fields, error) {
	document, ok := value.(map[string]any)

	if !ok {
		return nil, fmt.Errorf("%T is not a document", value)
	}

	return document, nil
}

func (document fields) decimal(name string) (decimal.Decimal, error) {
	value, err := decodeDecimal(document[name])

	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}

	return value, nil
}

func (document fields) string(name string) string {
	return decodeString(document[name])
}

func decodeAccount(key string, value any) (model.Account, error) {
	document, err := asFields(value)

	if err != nil {
		return model.Account{}, err
	}

	balance, err := document.decimal(fieldBalance)

	if err != nil {
		return model.Account{}, err
	}

	return model.Account{
		Key:     key,
		Number:  document.string(fieldAccountNumber),
		Name:    document.string(fieldAccountName),
		Balance: balance,
		Type:    document.string(fieldAccountType),
	}, nil
}

func decodeHolding(assetID string, value any) (model.Holding, error) {
	document, err := asFields(value)

	if err != nil {
		return model.Holding{}, err
	}

	quantity, err := document.decimal(fieldQuantity)

	if err != nil {
		return model.Holding{}, err
	}

	price, err := document.decimal(fieldPrice)

	if err != nil {
		return model.Holding{}, err
	}

	return model.Holding{
		AssetID:  assetID,
		Quantity: quantity,
		Name:     document.string(fieldName),
		Symbol:   document.string(fieldSymbol),
		Price:    price,
	}, nil
}

func decodeAsset(id string, value any) (model.Asset, error) {
	document, err := asFields(value)

	if err != nil {
		return model.Asset{}, err
	}

	price, err := document.decimal(fieldPrice)

	if err != nil {
		return model.Asset{}, err
	}

	if !price.IsPositive() {
		return model.Asset{}, fmt.Errorf("price %s is not positive", price)
	}

	return model.Asset{
		ID:     id,
		Name:   document.string(fieldName),
		Symbol: document.string(fieldSymbol),
		Price:  price,
	}, nil
}

func decodeTransaction(id string, value any) (model.Transaction, error) {
	document, err := asFields(value)

	if err != nil {
		return model.Transaction{}, err
	}

	recorded, err := decodeTime(document[fieldTime])

	if err != nil {
		return model.Transaction{}, fmt.Errorf("%s: %w", fieldTime, err)
	}

	amount, err := document.decimal(fieldAmount)

	if err != nil {
		return model.Transaction{}, err
	}

	transaction := model.Transaction{
		ID:          id,
		Time:        recorded,
		Source:      document.string(fieldSource),
		Destination: document.string(fieldDestination),
		Amount:      amount,
		Kind:        decodeKind(document.string(fieldKind)),
	}

	if transaction.Kind.IsTrade() {
		transaction.AssetID = document.string(fieldAssetID)

		if transaction.AssetQuantity, err = document.decimal(fieldAssetQuantity); err != nil {
			return model.Transaction{}, err
		}

		if transaction.AssetPrice, err = document.decimal(fieldAssetPrice); err != nil {
			return model.Transaction{}, err
		}
	}

	return transaction, nil
}

func encodeTransaction(transaction model.Transaction) map[string]any {
	document := map[string]any{
		fieldTime:        transaction.Time.UTC().Format(TimeFormat),
		fieldSource:      transaction.Source,
		fieldDestination: transaction.Destination,
		fieldAmount:      number(transaction.Amount),
		fieldKind:        string(transaction.Kind),
	}

	if transaction.Kind.IsTrade() {
		document[fieldAssetID] = transaction.AssetID
		document[fieldAssetQuantity] = number(transaction.AssetQuantity)
		document[fieldAssetPrice] = number(transaction.AssetPrice)
	}

	return document
}

func encodeAsset(asset model.Asset) map[string]any {
	return map[string]any{
		fieldName:   asset.Name,
		fieldSymbol: asset.Symbol,
		fieldPrice:  number(asset.Price),
	}
}

// decodeChildren decodes every child document of a collection in key order.
// Documents that cannot be decoded are passed to skip and left out.
func decodeChildren[T any](
	children map[string]any,
	decode func(string, any) (T, error),
	skip func(string, error),
) []T {
	keys := make([]string, 0, len(children))

	for key := range children {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	items := make([]T, 0, len(keys))

	for _, key := range keys {
		item, err := decode(key, children[key])

		if err != nil {
			skip(key, err)

			continue
		}

		items = append(items, item)
	}

	return items
}
