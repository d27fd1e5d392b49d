// Package main is the entry point for storable, the daily portfolio valuation tool.
//
// Each invocation fetches one day's prices for every instrument in the universe,
// stores them, and derives per-instrument valuation lines and a portfolio summary.
// Subcommands:
//   - update DATE     run the daily pipeline for DATE (YYYY-MM-DD)
//   - recompute DATE  rebuild lines and summary for DATE from stored quotes
//   - schedule        run the pipeline on a cron schedule until interrupted
//   - add-stock       add an instrument to the universe
//   - record          record a change in quantity held
//   - stocks          list instruments and current holdings
//   - migrate         create or upgrade the database schema
//   - backup          upload, list or rotate database backups
//   - runs            show recent pipeline runs
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(commander *subcommands.Commander) {
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&updateCmd{}, "pipeline")
	commander.Register(&recomputeCmd{}, "pipeline")
	commander.Register(&scheduleCmd{}, "pipeline")
	commander.Register(&runsCmd{}, "pipeline")

	commander.Register(&addStockCmd{}, "ledger")
	commander.Register(&recordCmd{}, "ledger")
	commander.Register(&stocksCmd{}, "ledger")

	commander.Register(&migrateCmd{}, "maintenance")
	commander.Register(&backupCmd{}, "maintenance")
	commander.Register(&versionCmd{}, "")
}
