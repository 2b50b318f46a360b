package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/farmbooks/farmbooks/jobs"
)

// IntegrityOptions defines the flags of the integrity command.
type IntegrityOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// IntegritySummary is the JSON output of the integrity command.
type IntegritySummary struct {
	OK         bool               `json:"ok"`
	Accounts   int                `json:"accounts"`
	Leaves     int                `json:"leaves"`
	Mismatches []IntegrityProblem `json:"mismatches"`
}

// IntegrityProblem is one mismatch in the JSON output.
type IntegrityProblem struct {
	Check    string `json:"check"`
	Account  string `json:"account"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// IntegrityCommand runs the ledger integrity check in-process. It exits 10
// when mismatches are found.
func IntegrityCommand(ctx context.Context, source jobs.SnapshotSource, opts IntegrityOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	report, err := jobs.NewLedgerIntegrityJob(source, nil, nil).Run(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "integrity: %v\n", err)
		return 1
	}
	summary := IntegritySummary{
		OK:         report.Clean(),
		Accounts:   report.Accounts,
		Leaves:     report.Leaves,
		Mismatches: make([]IntegrityProblem, 0, len(report.Mismatches)),
	}
	for _, m := range report.Mismatches {
		summary.Mismatches = append(summary.Mismatches, IntegrityProblem{
			Check:    m.Check,
			Account:  m.Code,
			Expected: m.Expected.StringFixed(2),
			Actual:   m.Actual.StringFixed(2),
		})
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "integrity: encode json: %v\n", err)
			return 1
		}
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "checked %d accounts (%d leaves)\n", summary.Accounts, summary.Leaves)
		for _, p := range summary.Mismatches {
			_, _ = fmt.Fprintf(opts.Stdout, "  %-14s %-10s expected=%s actual=%s\n", p.Check, p.Account, p.Expected, p.Actual)
		}
	}
	if !summary.OK {
		return 10
	}
	return 0
}
