package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func binanceServer(t *testing.T, body string) *BinanceSource {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	source := NewBinanceSource()
	source.URL = server.URL

	return source
}

func TestBinanceQuotes(t *testing.T) {
	source := binanceServer(t, `[
		{"symbol": "BTCUSD", "price": "61000.00"},
		{"symbol": "BTCUSDT", "price": "61245.10"},
		{"symbol": "ETHBTC", "price": "0.05"},
		{"symbol": "SOLUSD", "price": "142.10"},
		{"symbol": "BNBUSDT", "price": "not a number"},
		{"symbol": "BNBUSD", "price": "551.48"}
	]`)

	quotes, err := source.Quotes(context.Background(), []string{"BTC", "ETH", "SOL", "BNB"})

	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"BTC": "61245.1", "SOL": "142.1", "BNB": "551.48"}

	if len(quotes) != len(want) {
		t.Fatalf("quotes = %v", quotes)
	}

	for _, quote := range quotes {
		if quote.Value.String() != want[quote.Symbol] {
			t.Errorf("%s = %s, want %s", quote.Symbol, quote.Value, want[quote.Symbol])
		}
	}
}

func TestBinanceErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"api error", `{"code": -1003, "msg": "Too many requests"}`, "binance api error: -1003 Too many requests"},
		{"unexpected object", `{"status": "down"}`, "unexpected payload"},
		{"not json", `<html>`, "unexpected response"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			source := binanceServer(t, test.body)
			_, err := source.Quotes(context.Background(), []string{"BTC"})

			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want it to contain %q", err, test.want)
			}
		})
	}
}
