package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/farmbooks/farmbooks/cmd/farmbooks/cli"
	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/app"
)

const usage = `usage:
  farmbooks                               start the HTTP API
  farmbooks jobs trigger [-job name] [-json]
  farmbooks jobs stats [-json]
  farmbooks integrity [-json]`

func runCommand(ctx context.Context, cfg *app.Config, args []string) int {
	switch args[0] {
	case "jobs":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, usage)
			return 2
		}
		fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
		job := fs.String("job", "", "task type to enqueue")
		by := fs.String("by", "", "requester recorded in the task payload")
		asJSON := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer func() { _ = jobsCLI.Close() }()
		return jobsCLI.JobsCommand(ctx, cli.JobsOptions{
			Action:      args[1],
			Job:         *job,
			RequestedBy: *by,
			JSONOutput:  *asJSON,
		})
	case "integrity":
		fs := flag.NewFlagSet("integrity", flag.ContinueOnError)
		asJSON := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		ledger, err := app.OpenLedger(ctx, cfg, accounting.Options{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "integrity: open ledger: %v\n", err)
			return 1
		}
		defer ledger.Close()
		return cli.IntegrityCommand(ctx, ledger.Service, cli.IntegrityOptions{JSONOutput: *asJSON})
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
}
