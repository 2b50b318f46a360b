package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	jobmetrics "github.com/farmbooks/farmbooks/internal/jobs"
)

// Integrity checks reported in metrics and logs.
const (
	CheckParentSum    = "parent_sum"
	CheckLedgerReplay = "ledger_replay"
)

// LedgerReader is the read side of the ledger replayed by the integrity check.
type LedgerReader = accounting.LedgerView

// SnapshotSource hands out a LedgerReader bound to one read transaction so
// concurrent postings cannot produce false mismatches.
type SnapshotSource interface {
	ReadSnapshot(ctx context.Context, fn func(context.Context, LedgerReader) error) error
}

// IntegrityPayload is carried by TaskLedgerIntegrity.
type IntegrityPayload struct {
	RequestedBy string `json:"requestedBy"`
}

// Mismatch is one account whose stored balance disagrees with its derivation.
type Mismatch struct {
	Check     string
	AccountID uuid.UUID
	Code      string
	Expected  decimal.Decimal
	Actual    decimal.Decimal
}

// IntegrityReport summarises one integrity run.
type IntegrityReport struct {
	Accounts   int
	Leaves     int
	Mismatches []Mismatch
}

// Clean reports whether every check passed.
func (r IntegrityReport) Clean() bool {
	return len(r.Mismatches) == 0
}

// NewLedgerIntegrityTask constructs the asynq task for a manual or scheduled run.
func NewLedgerIntegrityTask(requestedBy string) (*asynq.Task, error) {
	if requestedBy == "" {
		requestedBy = "scheduler"
	}
	data, err := json.Marshal(IntegrityPayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data, asynq.Queue(QueueDefault)), nil
}

// LedgerIntegrityJob verifies that every parent equals the sum of its
// children and every leaf equals its opening balance plus its ledger deltas.
type LedgerIntegrityJob struct {
	Source  SnapshotSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob initialises the integrity handler.
func NewLedgerIntegrityJob(source SnapshotSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Source: source, Logger: logger, Metrics: metrics}
}

// Handle executes the integrity check for an asynq task.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	start := time.Now()
	logger := j.logger().With(slog.String("requested_by", payload.RequestedBy))
	logger.Info("starting ledger integrity check")

	report, err := j.Run(ctx)
	if err != nil {
		logger.Error("ledger integrity check failed", slog.Any("error", err))
		return tracker.End(err)
	}

	counts := map[string]int{}
	for _, m := range report.Mismatches {
		counts[m.Check]++
		logger.Warn("ledger integrity mismatch",
			slog.String("check", m.Check),
			slog.String("account_id", m.AccountID.String()),
			slog.String("code", m.Code),
			slog.String("expected", m.Expected.StringFixed(2)),
			slog.String("actual", m.Actual.StringFixed(2)),
		)
	}
	for check, n := range counts {
		j.Metrics.AddIntegrityMismatches(check, n)
	}

	logger.Info("completed ledger integrity check",
		slog.Int("accounts", report.Accounts),
		slog.Int("mismatches", len(report.Mismatches)),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

// Run reads the chart and every leaf statement from one snapshot and
// returns the mismatches found. The parent sums are checked while the
// leaves replay.
func (j *LedgerIntegrityJob) Run(ctx context.Context) (IntegrityReport, error) {
	var report IntegrityReport
	err := j.Source.ReadSnapshot(ctx, func(ctx context.Context, view LedgerReader) error {
		var err error
		report, err = checkSnapshot(ctx, view)
		return err
	})
	if err != nil {
		return IntegrityReport{}, err
	}
	return report, nil
}

func checkSnapshot(ctx context.Context, view LedgerReader) (IntegrityReport, error) {
	all, err := view.ListAccounts(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}
	children := map[uuid.UUID][]accounts.Account{}
	for _, acc := range all {
		if acc.ParentID != nil {
			children[*acc.ParentID] = append(children[*acc.ParentID], acc)
		}
	}

	var (
		mu     sync.Mutex
		report = IntegrityReport{Accounts: len(all)}
	)
	record := func(m Mismatch) {
		mu.Lock()
		report.Mismatches = append(report.Mismatches, m)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, acc := range all {
			kids, ok := children[acc.ID]
			if !ok {
				continue
			}
			sum := decimal.Zero
			for _, child := range kids {
				sum = sum.Add(child.CurrentBalance)
			}
			if !sum.Equal(acc.CurrentBalance) {
				record(Mismatch{Check: CheckParentSum, AccountID: acc.ID, Code: acc.Code, Expected: sum, Actual: acc.CurrentBalance})
			}
		}
		return nil
	})

	var leaves []accounts.Account
	for _, acc := range all {
		if _, parent := children[acc.ID]; !parent {
			leaves = append(leaves, acc)
		}
	}
	report.Leaves = len(leaves)
	// One transaction serves one query at a time, so leaves replay in order.
	g.Go(func() error {
		for _, acc := range leaves {
			if err := gctx.Err(); err != nil {
				return err
			}
			st, err := view.Statement(gctx, acc.ID, ledger.Range{})
			if err != nil {
				return err
			}
			if !st.Closing.Equal(acc.CurrentBalance) {
				record(Mismatch{Check: CheckLedgerReplay, AccountID: acc.ID, Code: acc.Code, Expected: st.Closing, Actual: acc.CurrentBalance})
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return IntegrityReport{}, err
	}
	return report, nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
