package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"
)

type backupCmd struct {
	list   bool
	rotate bool
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "upload, list or rotate database backups" }
func (*backupCmd) Usage() string {
	return `backup [-list | -rotate]

  Without flags, snapshots the database and uploads it to BACKUP_BUCKET.
  - list: show the backups stored in the bucket, newest first.
  - rotate: delete backups older than BACKUP_RETENTION_DAYS, keeping the newest few.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "List stored backups")
	f.BoolVar(&c.rotate, "rotate", false, "Delete expired backups")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list && c.rotate {
		fmt.Fprintln(stderr, "Error: -list and -rotate are mutually exclusive.")
		return subcommands.ExitUsageError
	}

	container, _, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	if container.Backup == nil {
		fmt.Fprintln(stderr, "Error: backups are not configured (set BACKUP_BUCKET).")
		return subcommands.ExitFailure
	}

	switch {
	case c.list:
		backups, err := container.Backup.ListBackups(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILENAME\tTIMESTAMP\tSIZE\tAGE (h)")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", b.Filename, b.Timestamp.Format("2006-01-02 15:04:05"), b.SizeBytes, b.AgeHours)
		}
		w.Flush()

	case c.rotate:
		deleted, err := container.Backup.RotateOldBackups(ctx, container.Config.Backup.RetentionDays)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "deleted %d backup(s)\n", deleted)

	default:
		if err := container.Backup.CreateAndUpload(ctx); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(stdout, "backup uploaded")
	}

	return subcommands.ExitSuccess
}
