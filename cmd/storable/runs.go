package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
)

type runsCmd struct {
	limit int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "show recent pipeline runs" }
func (*runsCmd) Usage() string {
	return `runs [-n <count>]

  Prints the most recent pipeline runs from the run journal, newest first.
`
}

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 10, "Number of runs to show")
}

func (c *runsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.limit <= 0 {
		fmt.Fprintln(stderr, "Error: -n must be positive.")
		return subcommands.ExitUsageError
	}

	container, _, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	records, err := container.Journal.Recent(ctx, c.limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tDATE\tSTARTED\tSTAGE\tFETCHED\tSKIPPED\tFAILED\tINSERTED\tLINES\tSUMMARY")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%t\n",
			r.RunID, r.Date, r.StartedAt.Local().Format(time.DateTime), r.FinalStage,
			r.QuotesFetched, r.QuotesSkipped, r.FetchFailures, r.QuotesInserted,
			r.LinesInserted, r.SummaryInserted)
	}
	w.Flush()

	return subcommands.ExitSuccess
}
