// Export the ledger collections into CSV files.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dense-analysis/walletledger/internal/app"
	"github.com/dense-analysis/walletledger/internal/ledger"
)

type table struct {
	name   string
	header []string
	rows   [][]string
}

func tables(state ledger.State) []table {
	accounts := table{
		name:   "accounts.csv",
		header: []string{"key", "number", "name", "type", "balance"},
	}

	for _, account := range state.Accounts {
		accounts.rows = append(accounts.rows, []string{
			account.Key,
			account.Number,
			account.Name,
			account.Type,
			account.Balance.String(),
		})
	}

	holdings := table{
		name:   "holdings.csv",
		header: []string{"asset_id", "name", "symbol", "quantity", "price"},
	}

	for _, holding := range state.Holdings {
		holdings.rows = append(holdings.rows, []string{
			holding.AssetID,
			holding.Name,
			holding.Symbol,
			holding.Quantity.String(),
			holding.Price.String(),
		})
	}

	catalog := table{
		name:   "catalog.csv",
		header: []string{"asset_id", "name", "symbol", "price"},
	}

	for _, asset := range state.Catalog {
		catalog.rows = append(catalog.rows, []string{asset.ID, asset.Name, asset.Symbol, asset.Price.String()})
	}

	transactions := table{
		name: "transactions.csv",
		header: []string{
			"id",
			"time",
			"type",
			"source",
			"destination",
			"amount",
			"asset_id",
			"asset_quantity",
			"asset_price",
		},
	}

	for _, transaction := range state.Transactions {
		row := []string{
			transaction.ID,
			formatTime(transaction.Time),
			string(transaction.Kind),
			transaction.Source,
			transaction.Destination,
			transaction.Amount.String(),
			"",
			"",
			"",
		}

		if transaction.Kind.IsTrade() {
			row[6] = transaction.AssetID
			row[7] = transaction.AssetQuantity.String()
			row[8] = transaction.AssetPrice.String()
		}

		transactions.rows = append(transactions.rows, row)
	}

	return []table{accounts, holdings, catalog, transactions}
}

func writeTable(out io.Writer, t table) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(t.header); err != nil {
		return err
	}

	if err := writer.WriteAll(t.rows); err != nil {
		return err
	}

	return writer.Error()
}

func exportTable(outputDir string, t table) error {
	file, err := os.Create(filepath.Join(outputDir, t.name))

	if err != nil {
		return err
	}

	if err := writeTable(file, t); err != nil {
		file.Close()

		return err
	}

	return file.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(ledger.TimeFormat)
}

func argOrDefault(position int, fallback string) string {
	if len(os.Args) > position {
		return os.Args[position]
	}

	return fallback
}

func exitWithError(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s error: %s\n", action, err)
	os.Exit(1)
}

func main() {
	cfg, logger, err := app.Setup()

	if err != nil {
		exitWithError("Setup", err)
	}

	outputDir := argOrDefault(1, "export")
	ctx := context.Background()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)

	if err != nil {
		exitWithError("Connection", err)
	}

	defer closeStore()

	state, err := ledger.Load(ctx, store, logger)

	if err != nil {
		exitWithError("Read", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		exitWithError("Create output directory", err)
	}

	for _, t := range tables(state) {
		if err := exportTable(outputDir, t); err != nil {
			exitWithError("Export "+t.name, err)
		}

		logger.Info("exported", "file", t.name, "rows", len(t.rows))
	}
}
