package pricefeed

import (
	"context"
	"strings"

	"github.com/dense-analysis/walletledger/internal/database"
	"github.com/dense-analysis/walletledger/internal/model"
)

// ClickHouseSource reads the latest quotes from the crypto_currency_prices
// history table.
type ClickHouseSource struct {
	Conn database.Queryable
}

func scanQuote(row database.Row, quote *model.Quote) error {
	return row.Scan(&quote.Symbol, &quote.Time, &quote.Value)
}

func makePlaceholders(count int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

// Quotes implements Source.
func (source *ClickHouseSource) Quotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(symbols))

	for _, symbol := range symbols {
		args = append(args, symbol)
	}

	var quotes []model.Quote

	err := model.LoadList(
		ctx,
		source.Conn,
		&quotes,
		len(symbols),
		scanQuote,
		`
			SELECT
				from_currency_ticker,
				max(time) AS latest_time,
				argMax(value, time) AS value
			FROM crypto_currency_prices
			-- Prices older than a week are too stale to trade on.
			WHERE time >= now() - INTERVAL 7 DAY
			AND from_currency_ticker in (`+makePlaceholders(len(symbols))+`)
			AND to_currency_ticker = 'USD'
			GROUP BY from_currency_ticker
		`,
		args...,
	)

	return quotes, err
}
