package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/aristath/storable/internal/modules/portfolio"
	"github.com/aristath/storable/internal/modules/universe"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type addStockCmd struct{}

func (*addStockCmd) Name() string     { return "add-stock" }
func (*addStockCmd) Synopsis() string { return "add an instrument to the universe" }
func (*addStockCmd) Usage() string {
	return `add-stock SYMBOL NAME

  Adds an instrument priced by the market data source:
  - SYMBOL: the source ticker (e.g. "AAPL", "7203.T"). Must be unique.
  - NAME: the display name used in report lines (quote it if it has spaces).
`
}

func (*addStockCmd) SetFlags(*flag.FlagSet) {}

func (c *addStockCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(stderr, "Error: SYMBOL and NAME are required.")
		return subcommands.ExitUsageError
	}
	symbol := strings.TrimSpace(f.Arg(0))
	name := strings.TrimSpace(f.Arg(1))
	if symbol == "" || name == "" {
		fmt.Fprintln(stderr, "Error: SYMBOL and NAME must not be empty.")
		return subcommands.ExitUsageError
	}

	db, log, err := openDatabase()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	repo := universe.NewRepository(db.Conn(), log)
	existing, err := repo.GetBySymbol(ctx, symbol)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if existing != nil {
		fmt.Fprintf(stderr, "Error: symbol '%s' already exists (id %d).\n", symbol, existing.ID)
		return subcommands.ExitFailure
	}

	inst, err := repo.Add(ctx, symbol, name)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "added %s (%s) with id %d\n", inst.Symbol, inst.Name, inst.ID)
	return subcommands.ExitSuccess
}

type recordCmd struct{}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record a change in quantity held" }
func (*recordCmd) Usage() string {
	return `record SYMBOL QUANTITY

  Appends a position change to the ledger. Use a negative QUANTITY for sales or
  withdrawals and the symbol CASH for cash (whole cents only). Recorded changes
  are never edited; correct a mistake with an opposite change.
`
}

func (*recordCmd) SetFlags(*flag.FlagSet) {}

func (c *recordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(stderr, "Error: SYMBOL and QUANTITY are required.")
		return subcommands.ExitUsageError
	}
	symbol := strings.TrimSpace(f.Arg(0))
	quantity, err := decimal.NewFromString(f.Arg(1))
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid quantity %q: %v\n", f.Arg(1), err)
		return subcommands.ExitUsageError
	}

	db, log, err := openDatabase()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	inst, err := universe.NewRepository(db.Conn(), log).GetBySymbol(ctx, symbol)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if inst == nil {
		fmt.Fprintf(stderr, "Error: unknown symbol '%s', add it with add-stock first.\n", symbol)
		return subcommands.ExitFailure
	}

	ledger := portfolio.NewRepository(db.Conn(), log)
	if _, err := ledger.Record(ctx, domain.PositionDelta{InstrumentID: inst.ID, Quantity: quantity}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, domain.ErrZeroDelta) || errors.Is(err, domain.ErrCashPrecision) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}

	deltas, err := ledger.Deltas(ctx, inst.ID)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	net := decimal.Zero
	for _, d := range deltas {
		net = net.Add(d.Quantity)
	}

	fmt.Fprintf(stdout, "%s: recorded %s, now holding %s\n", inst.Symbol, quantity, net)
	return subcommands.ExitSuccess
}

type stocksCmd struct{}

func (*stocksCmd) Name() string     { return "stocks" }
func (*stocksCmd) Synopsis() string { return "list instruments and current holdings" }
func (*stocksCmd) Usage() string {
	return `stocks

  Lists every instrument, cash included, with the net quantity currently held.
`
}

func (*stocksCmd) SetFlags(*flag.FlagSet) {}

func (c *stocksCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, log, err := openDatabase()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	if err := printStocks(ctx, db, log); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printStocks(ctx context.Context, db *database.DB, log zerolog.Logger) error {
	instruments, err := universe.NewRepository(db.Conn(), log).ListAll(ctx)
	if err != nil {
		return err
	}
	holdings, err := portfolio.NewRepository(db.Conn(), log).Holdings(ctx)
	if err != nil {
		return err
	}

	held := make(map[int64]decimal.Decimal, len(holdings))
	for _, h := range holdings {
		held[h.Instrument.ID] = h.Quantity
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tNAME\tHELD")
	for _, inst := range instruments {
		qty, ok := held[inst.ID]
		if !ok {
			qty = decimal.Zero
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", inst.ID, inst.Symbol, inst.Name, qty)
	}
	return w.Flush()
}
