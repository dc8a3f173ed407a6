package pricefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/model"
)

// BinanceTickerURL is the public endpoint listing the latest price of every pair.
const BinanceTickerURL = "https://api.binance.com/api/v3/ticker/price"

// Quote currencies in order of preference.
var usdSuffixes = []string{"USDT", "USD"}

type binanceTickerResult struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// BinanceSource reads quotes from the Binance ticker.
type BinanceSource struct {
	Client *http.Client
	URL    string
}

// NewBinanceSource creates a source for the public Binance API.
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{
		Client: &http.Client{Timeout: 10 * time.Second},
		URL:    BinanceTickerURL,
	}
}

func (source *BinanceSource) readTickerResults(ctx context.Context) ([]binanceTickerResult, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)

	if err != nil {
		return nil, err
	}

	response, err := source.Client.Do(request)

	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	content, err := io.ReadAll(response.Body)

	if err != nil {
		return nil, err
	}

	var results []binanceTickerResult

	if err := json.Unmarshal(content, &results); err == nil {
		return results, nil
	}

	var apiError struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}

	if err := json.Unmarshal(content, &apiError); err == nil && apiError.Msg != "" {
		return nil, fmt.Errorf("binance api error: %d %s", apiError.Code, apiError.Msg)
	}

	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()
	var payload map[string]any

	if err := decoder.Decode(&payload); err == nil {
		return nil, fmt.Errorf("binance api returned unexpected payload: %v", payload)
	}

	return nil, fmt.Errorf("binance api returned unexpected response: %s", string(content))
}

// readQuotes picks the USD pair for each wanted symbol, preferring USDT.
func readQuotes(results []binanceTickerResult, symbols []string, now time.Time) []model.Quote {
	pairs := make(map[string]string, len(results))

	for _, result := range results {
		pairs[result.Symbol] = result.Price
	}

	var quotes []model.Quote

	for _, symbol := range symbols {
		for _, suffix := range usdSuffixes {
			text, ok := pairs[symbol+suffix]

			if !ok {
				continue
			}

			value, err := decimal.NewFromString(text)

			if err != nil || !value.IsPositive() {
				continue
			}

			quotes = append(quotes, model.Quote{Symbol: symbol, Time: now, Value: value})

			break
		}
	}

	return quotes
}

// Quotes implements Source.
func (source *BinanceSource) Quotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	results, err := source.readTickerResults(ctx)

	if err != nil {
		return nil, err
	}

	return readQuotes(results, symbols, time.Now()), nil
}
