// Package account defines routes for accounts and their transactions.
package account

import (
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/ledger"
	"github.com/dense-analysis/walletledger/internal/model"
	"github.com/dense-analysis/walletledger/internal/route/util"
	"github.com/dense-analysis/walletledger/pkg/lax"
)

type accountData struct {
	Key     string          `json:"key"`
	Number  string          `json:"number"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Type    string          `json:"type,omitempty"`
}

func makeAccount(account model.Account) accountData {
	return accountData{
		Key:     account.Key,
		Number:  account.Number,
		Name:    account.Name,
		Balance: account.Balance,
		Type:    account.Type,
	}
}

type amountData struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferData struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Register adds the account routes to a router.
func Register(router *mux.Router, service *ledger.Service) {
	router.HandleFunc("/accounts", lax.Wrap(lax.View{
		Get: func(request *lax.Request) any {
			accounts := service.Accounts.CurrentAccounts().All()
			data := make([]accountData, 0, len(accounts))

			for _, account := range accounts {
				data = append(data, makeAccount(account))
			}

			return data
		},
	}))

	router.HandleFunc("/accounts/{id}/deposit", lax.Wrap(lax.View{
		Post: func(request *lax.Request) any {
			var body amountData

			if err := request.JSON(&body); err != nil {
				return util.RespondValidationError("invalid deposit: " + err.Error())
			}

			return util.RespondResult(
				service.Accounts.Deposit(request.Context(), mux.Vars(request.Request)["id"], body.Amount),
			)
		},
	}))

	router.HandleFunc("/accounts/{id}/withdraw", lax.Wrap(lax.View{
		Post: func(request *lax.Request) any {
			var body amountData

			if err := request.JSON(&body); err != nil {
				return util.RespondValidationError("invalid withdrawal: " + err.Error())
			}

			return util.RespondResult(
				service.Accounts.Withdraw(request.Context(), mux.Vars(request.Request)["id"], body.Amount),
			)
		},
	}))

	router.HandleFunc("/transfers", lax.Wrap(lax.View{
		Post: func(request *lax.Request) any {
			var body transferData

			if err := request.JSON(&body); err != nil {
				return util.RespondValidationError("invalid transfer: " + err.Error())
			}

			return util.RespondResult(
				service.Accounts.Transfer(request.Context(), body.From, body.To, body.Amount),
			)
		},
	}))

	router.HandleFunc("/transactions", lax.Wrap(lax.View{
		Get: func(request *lax.Request) any {
			var transactions []model.Transaction

			if ref := request.URL.Query().Get("account"); ref != "" {
				transactions = service.Transactions.ForAccount(ref)
			} else {
				transactions = service.Transactions.CurrentTransactions().All()
			}

			data := make([]util.Transaction, 0, len(transactions))

			for _, transaction := range transactions {
				data = append(data, util.MakeTransaction(transaction, service.Accounts.AccountDisplayName))
			}

			return data
		},
	}))
}
