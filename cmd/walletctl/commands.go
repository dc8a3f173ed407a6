package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/app"
	"github.com/dense-analysis/walletledger/internal/ledger"
)

var commands = []subcommands.Command{
	&accountsCmd{},
	&holdingsCmd{},
	&catalogCmd{},
	&transactionsCmd{},
	&transferCmd{},
	&cashCmd{name: "deposit", synopsis: "add money to an account", apply: deposit},
	&cashCmd{name: "withdraw", synopsis: "take money out of an account", apply: withdraw},
	&tradeCmd{name: "buy", synopsis: "buy an asset at the catalog price", apply: buy},
	&tradeCmd{name: "sell", synopsis: "sell a held asset", apply: sell},
}

// formatUSD renders an amount with the dollar formatting of go-money.
func formatUSD(amount decimal.Decimal) string {
	cents := amount.Shift(2).Round(0).IntPart()

	return money.New(cents, money.USD).Display()
}

// withLedger opens the configured store and ledger for one command.
func withLedger(ctx context.Context, run func(*ledger.Service) subcommands.ExitStatus) subcommands.ExitStatus {
	cfg, logger, err := app.Setup()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		return subcommands.ExitFailure
	}

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening the store:", err)

		return subcommands.ExitFailure
	}

	defer closeStore()

	service, err := ledger.Open(ctx, store, logger)

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening the ledger:", err)

		return subcommands.ExitFailure
	}

	defer service.Close()

	return run(service)
}

func report(out io.Writer, result ledger.Result) subcommands.ExitStatus {
	if !result.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Message)

		return subcommands.ExitFailure
	}

	fmt.Fprintln(out, result.Message)

	return subcommands.ExitSuccess
}

func parseAmount(name, value string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(value)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid %s %q\n", name, value)

		return decimal.Zero, false
	}

	return amount, true
}

type accountsCmd struct{}

func (*accountsCmd) Name() string             { return "accounts" }
func (*accountsCmd) Synopsis() string         { return "list accounts and balances" }
func (*accountsCmd) Usage() string            { return "accounts\n" }
func (*accountsCmd) SetFlags(f *flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return withLedger(ctx, func(service *ledger.Service) subcommands.ExitStatus {
		printAccounts(os.Stdout, service.Accounts.CurrentAccounts())

		return subcommands.ExitSuccess
	})
}

func printAccounts(out io.Writer, accounts ledger.Accounts) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "KEY\tNUMBER\tNAME\tBALANCE\t")

	for _, account := range accounts.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", account.Key, account.Number, account.Name, formatUSD(account.Balance))
	}

	w.Flush()
}

type holdingsCmd struct {
	all bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "list asset holdings" }
func (*holdingsCmd) Usage() string    { return "holdings [-all]\n" }

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "include holdings sold down to zero")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return withLedger(ctx, func(service *ledger.Service) subcommands.ExitStatus {
		holdings := service.Assets.OwnedHoldings()

		if c.all {
			holdings = service.Assets.CurrentHoldings().All()
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "ASSET\tSYMBOL\tQUANTITY\tPRICE\tVALUE\t")

		for _, holding := range holdings {
			fmt.Fprintf(
				w,
				"%s\t%s\t%s\t%s\t%s\t\n",
				holding.AssetID,
				holding.Symbol,
				holding.Quantity,
				formatUSD(holding.Price),
				formatUSD(holding.Quantity.Mul(holding.Price)),
			)
		}

		w.Flush()

		return subcommands.ExitSuccess
	})
}

type catalogCmd struct{}

func (*catalogCmd) Name() string             { return "catalog" }
func (*catalogCmd) Synopsis() string         { return "list tradable assets and prices" }
func (*catalogCmd) Usage() string            { return "catalog\n" }
func (*catalogCmd) SetFlags(f *flag.FlagSet) {}

func (*catalogCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return withLedger(ctx, func(service *ledger.Service) subcommands.ExitStatus {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "ASSET\tNAME\tSYMBOL\tPRICE\t")

		for _, asset := range service.Catalog.CurrentAssets().All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", asset.ID, asset.Name, asset.Symbol, formatUSD(asset.Price))
		}

		w.Flush()

		return subcommands.ExitSuccess
	})
}

type transactionsCmd struct {
	account string
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list transactions, most recent first" }
func (*transactionsCmd) Usage() string    { return "transactions [-account <number>]\n" }

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "only show transactions of this account number")
}

func (c *transactionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return withLedger(ctx, func(service *ledger.Service) subcommands.ExitStatus {
		transactions := service.Transactions.CurrentTransactions().All()

		if c.account != "" {
			transactions = service.Transactions.ForAccount(c.account)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTYPE\tFROM\tTO\tAMOUNT\tASSET\t")

		for _, transaction := range transactions {
			asset := ""

			if transaction.Kind.IsTrade() {
				asset = fmt.Sprintf("%s %s @ %s", transaction.AssetQuantity, transaction.AssetID, formatUSD(transaction.AssetPrice))
			}

			fmt.Fprintf(
				w,
				"%s\t%s\t%s\t%s\t%s\t%s\t\n",
				transaction.Time.Local().Format("2006-01-02 15:04"),
				transaction.Kind,
				service.Accounts.AccountDisplayName(transaction.Source),
				service.Accounts.AccountDisplayName(transaction.Destination),
				formatUSD(transaction.Amount),
				asset,
			)
		}

		w.Flush()

		return subcommands.ExitSuccess
	})
}

type transferCmd struct {
	from, to, amount string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts" }
func (*transferCmd) Usage() string {
	return "transfer -from <account key> -to <account key> -amount <amount>\n"
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "source account key (required)")
	f.StringVar(&c.to, "to", "", "destination account key (required)")
	f.StringVar(&c.amount, "amount", "", "amount to move (required)")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	amount, ok := parseAmount("amount", c.amount)

	if !ok {
		return subcommands.ExitUsageError
	}

	return withLedger(ctx, func(service *ledger.Service) subcommands.ExitStatus {
		return report(os.Stdout, service.Accounts.Transfer(ctx, c.from, c.to, amount))
	})
}

// cashCmd is shared by deposit and withdraw.
type cashCmd struct {
	name     string
	synopsis string
	apply    func(context.Context, *ledger.Service, string, decimal.Decimal) ledger.Result
	account  string
	amount   string
}

func (c *cashCmd) Name() string     { return c.name }
func (c *cashCmd) Synopsis() string { return c.synopsis }
func (c *cashCmd) Usage() string {
	return c.name + " -account <account key> -amount <amount>\n"
}

func (c *cashCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account key (required)")
	f.StringVar(&c.amount, "amount", "", "amount (required)")
}

func (c *cashCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	amount, ok := parseAmount("amount", c.amount)

	if !ok {
		return subcommands.ExitUsageError
	}

	return withLedger(ctx, func(service *ledger.Service) subcommands.ExitStatus {
		return report(os.Stdout, c.apply(ctx, service, c.account, amount))
	})
}

func deposit(ctx context.Context, service *ledger.Service, key string, amount decimal.Decimal) ledger.Result {
	return service.Accounts.Deposit(ctx, key, amount)
}

func withdraw(ctx context.Context, service *ledger.Service, key string, amount decimal.Decimal) ledger.Result {
	return service.Accounts.Withdraw(ctx, key, amount)
}

// tradeCmd is shared by buy and sell.
type tradeCmd struct {
	name     string
	synopsis string
	apply    func(context.Context, *ledger.Service, string, string, decimal.Decimal) ledger.Result
	account  string
	asset    string
	quantity string
}

func (c *tradeCmd) Name() string     { return c.name }
func (c *tradeCmd) Synopsis() string { return c.synopsis }
func (c *tradeCmd) Usage() string {
	return c.name + " -account <account key> -asset <asset id> -quantity <quantity>\n"
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account key paying or receiving the money (required)")
	f.StringVar(&c.asset, "asset", "", "catalog asset id, such as btc (required)")
	f.StringVar(&c.quantity, "quantity", "", "quantity of the asset (required)")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	quantity, ok := parseAmount("quantity", c.quantity)

	if !ok {
		return subcommands.ExitUsageError
	}

	return withLedger(ctx, func(service *ledger.Service) subcommands.ExitStatus {
		return report(os.Stdout, c.apply(ctx, service, c.account, c.asset, quantity))
	})
}

func buy(ctx context.Context, service *ledger.Service, account, asset string, quantity decimal.Decimal) ledger.Result {
	return service.Assets.Buy(ctx, account, asset, quantity)
}

func sell(ctx context.Context, service *ledger.Service, account, asset string, quantity decimal.Decimal) ledger.Result {
	return service.Assets.Sell(ctx, account, asset, quantity)
}
