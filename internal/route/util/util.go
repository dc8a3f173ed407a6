// Package util holds the response helpers shared by the API routes.
package util

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/ledger"
	"github.com/dense-analysis/walletledger/internal/model"
	"github.com/dense-analysis/walletledger/pkg/lax"
)

// StatusForKind returns the HTTP status for a ledger failure.
func StatusForKind(kind ledger.ErrorKind) int {
	switch kind {
	case ledger.InvalidArgument:
		return http.StatusBadRequest
	case ledger.NotFound:
		return http.StatusNotFound
	case ledger.InsufficientFunds, ledger.InsufficientHoldings:
		return http.StatusConflict
	case ledger.StoreWriteFailed, ledger.StoreReadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Transaction is the JSON form of a transaction record.
type Transaction struct {
	ID              string           `json:"id"`
	Time            time.Time        `json:"time"`
	Kind            string           `json:"kind"`
	Source          string           `json:"source"`
	SourceName      string           `json:"sourceName,omitempty"`
	Destination     string           `json:"destination"`
	DestinationName string           `json:"destinationName,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	AssetID         string           `json:"assetId,omitempty"`
	AssetQuantity   *decimal.Decimal `json:"assetQuantity,omitempty"`
	AssetPrice      *decimal.Decimal `json:"assetPrice,omitempty"`
}

// MakeTransaction converts a record, naming its accounts with names when it
// is not nil.
func MakeTransaction(transaction model.Transaction, names func(string) string) Transaction {
	out := Transaction{
		ID:          transaction.ID,
		Time:        transaction.Time,
		Kind:        string(transaction.Kind),
		Source:      transaction.Source,
		Destination: transaction.Destination,
		Amount:      transaction.Amount,
	}

	if names != nil {
		out.SourceName = names(transaction.Source)
		out.DestinationName = names(transaction.Destination)
	}

	if transaction.Kind.IsTrade() {
		out.AssetID = transaction.AssetID
		out.AssetQuantity = &transaction.AssetQuantity
		out.AssetPrice = &transaction.AssetPrice
	}

	return out
}

// Result is the JSON body returned for every mutation.
type Result struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Error       string       `json:"error,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// RespondResult converts a mutation result to a response. Successes use the
// default status of the method.
func RespondResult(result ledger.Result) any {
	body := Result{Success: result.Success, Message: result.Message}

	if result.Transaction != nil {
		transaction := MakeTransaction(*result.Transaction, nil)
		body.Transaction = &transaction
	}

	if result.Success {
		return body
	}

	body.Error = result.Kind().String()

	return lax.MakeResponse(StatusForKind(result.Kind()), body)
}

// RespondValidationError responds to a request body that could not be read.
func RespondValidationError(message string) *lax.Response {
	return lax.MakeResponse(http.StatusBadRequest, Result{
		Message: message,
		Error:   ledger.InvalidArgument.String(),
	})
}
