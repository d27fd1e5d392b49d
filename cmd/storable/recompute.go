package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type recomputeCmd struct{}

func (*recomputeCmd) Name() string { return "recompute" }
func (*recomputeCmd) Synopsis() string {
	return "derive lines and summary for a date from stored quotes"
}
func (*recomputeCmd) Usage() string {
	return `recompute YYYY-MM-DD

  Derives valuation lines and the summary for the date from quotes already stored,
  without fetching. Lines and summaries that already exist are left unchanged.
`
}

func (*recomputeCmd) SetFlags(*flag.FlagSet) {}

func (c *recomputeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	run, err := container.Runner.Recompute(ctx, raw)
	if err != nil {
		log.Error().Err(err).Str("date", raw).Msg("Recompute failed")
		fmt.Fprintf(stderr, "Error: recompute %s failed: %v\n", raw, err)
		return subcommands.ExitFailure
	}

	printRun(stdout, run)
	return subcommands.ExitSuccess
}
