package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/dense-analysis/walletledger/internal/docstore"
	"github.com/dense-analysis/walletledger/internal/ledger"
	"github.com/dense-analysis/walletledger/internal/logging"
	"github.com/dense-analysis/walletledger/internal/route/util"
)

func newRouter(t *testing.T) (*mux.Router, *ledger.Service) {
	t.Helper()

	store := docstore.NewMemory()
	err := store.WriteAtomic(context.Background(), map[string]any{
		"accounts/main": map[string]any{
			"numeroCuenta":    "1234-5678-9012-3456",
			"saldoDisponible": json.Number("2500.75"),
			"nombre":          "Cuenta Principal",
		},
		"accounts/savings": map[string]any{
			"numeroCuenta":    "9876-5432-1098-7654",
			"saldoDisponible": json.Number("1200.50"),
			"nombre":          "Cuenta de Ahorros",
		},
	})

	if err != nil {
		t.Fatal(err)
	}

	service, err := ledger.Open(context.Background(), store, logging.Discard())

	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(service.Close)

	router := mux.NewRouter()
	Register(router, service)

	return router, service
}

func request(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(method, path, strings.NewReader(body)))

	return recorder
}

func decodeResult(t *testing.T, recorder *httptest.ResponseRecorder) util.Result {
	t.Helper()

	var result util.Result

	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode %q: %v", recorder.Body.String(), err)
	}

	return result
}

func TestTransferRoute(t *testing.T) {
	router, service := newRouter(t)

	recorder := request(router, http.MethodPost, "/transfers", `{"from": "main", "to": "savings", "amount": "500"}`)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}

	result := decodeResult(t, recorder)

	if !result.Success || result.Transaction == nil || result.Transaction.Kind != "transfer" {
		t.Errorf("result = %+v", result)
	}

	account, _ := service.Accounts.Account("savings")

	if account.Balance.String() != "1700.5" {
		t.Errorf("savings balance = %s", account.Balance)
	}
}

func TestMutationFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
	}{
		{"withdraw too much", "/accounts/main/withdraw", `{"amount": 3000}`, http.StatusConflict, "insufficient_funds"},
		{"deposit zero", "/accounts/main/deposit", `{"amount": 0}`, http.StatusBadRequest, "invalid_argument"},
		{"unknown account", "/accounts/nope/deposit", `{"amount": 5}`, http.StatusNotFound, "not_found"},
		{"bad body", "/accounts/main/deposit", `{"amount": "lots"}`, http.StatusBadRequest, "invalid_argument"},
		{"same account", "/transfers", `{"from": "main", "to": "main", "amount": 1}`, http.StatusBadRequest, "invalid_argument"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			router, _ := newRouter(t)
			recorder := request(router, http.MethodPost, test.path, test.body)

			if recorder.Code != test.status {
				t.Fatalf("status = %d, want %d: %s", recorder.Code, test.status, recorder.Body.String())
			}

			result := decodeResult(t, recorder)

			if result.Success || result.Error != test.kind || result.Message == "" {
				t.Errorf("result = %+v", result)
			}
		})
	}
}

func TestListRoutes(t *testing.T) {
	router, _ := newRouter(t)

	request(router, http.MethodPost, "/accounts/main/deposit", `{"amount": "10"}`)
	request(router, http.MethodPost, "/accounts/savings/withdraw", `{"amount": "10"}`)

	var accounts []accountData
	recorder := request(router, http.MethodGet, "/accounts", "")

	if err := json.Unmarshal(recorder.Body.Bytes(), &accounts); err != nil {
		t.Fatal(err)
	}

	if len(accounts) != 2 || accounts[0].Key != "main" || accounts[0].Balance.String() != "2510.75" {
		t.Errorf("accounts = %+v", accounts)
	}

	var transactions []util.Transaction
	recorder = request(router, http.MethodGet, "/transactions?account=1234-5678-9012-3456", "")

	if err := json.Unmarshal(recorder.Body.Bytes(), &transactions); err != nil {
		t.Fatal(err)
	}

	if len(transactions) != 1 || transactions[0].Kind != "deposit" || transactions[0].SourceName != "Cuenta Principal" {
		t.Errorf("transactions = %+v", transactions)
	}

	recorder = request(router, http.MethodDelete, "/accounts", "")

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /accounts status = %d", recorder.Code)
	}
}
