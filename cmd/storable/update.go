package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/aristath/storable/internal/domain"
	"github.com/google/subcommands"
)

type updateCmd struct{}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "fetch quotes for a date and update the reports" }
func (*updateCmd) Usage() string {
	return `update YYYY-MM-DD

  Fetches the day's open/high/low/close for every instrument, stores new quotes,
  and when at least one quote is new derives the valuation lines and the summary.
`
}

func (*updateCmd) SetFlags(*flag.FlagSet) {}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	raw, status := dateArg(f)
	if status != subcommands.ExitSuccess {
		return status
	}

	container, log, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	run, err := container.Runner.Run(ctx, raw)
	if err != nil {
		log.Error().Err(err).Str("date", raw).Msg("Update failed")
		fmt.Fprintf(stderr, "Error: update %s failed: %v\n", raw, err)
		return subcommands.ExitFailure
	}

	printRun(stdout, run)
	return subcommands.ExitSuccess
}

// dateArg returns the single positional date argument after validating its format
func dateArg(f *flag.FlagSet) (string, subcommands.ExitStatus) {
	if f.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one date argument (YYYY-MM-DD) is required.")
		return "", subcommands.ExitUsageError
	}

	raw := f.Arg(0)
	if _, err := domain.ParseTradingDate(raw); err != nil {
		fmt.Fprintf(stderr, "Error: %q: %v\n", raw, err)
		return "", subcommands.ExitUsageError
	}
	return raw, subcommands.ExitSuccess
}
