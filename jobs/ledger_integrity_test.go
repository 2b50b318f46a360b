package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/mappings"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	jobmetrics "github.com/farmbooks/farmbooks/internal/jobs"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type stubReader struct {
	accounts  []accounts.Account
	closing   map[uuid.UUID]decimal.Decimal
	err       error
	open      bool
	snapshots int
	stray     int
}

func (s *stubReader) ReadSnapshot(ctx context.Context, fn func(context.Context, LedgerReader) error) error {
	s.snapshots++
	s.open = true
	defer func() { s.open = false }()
	return fn(ctx, s)
}

func (s *stubReader) ListAccounts(context.Context) ([]accounts.Account, error) {
	if !s.open {
		s.stray++
	}
	return s.accounts, nil
}

func (s *stubReader) Statement(_ context.Context, id uuid.UUID, _ ledger.Range) (ledger.Statement, error) {
	if !s.open {
		s.stray++
	}
	if s.err != nil {
		return ledger.Statement{}, s.err
	}
	return ledger.Statement{Closing: s.closing[id]}, nil
}

func TestIntegrityCleanAfterRealPostings(t *testing.T) {
	ctx := context.Background()
	svc, err := accounting.NewService(ctx, accounting.NewMemoryRepository(), mappings.Config{
		RetainedEarningsCode: mappings.DefaultRetainedEarningsCode,
		Bootstrap:            true,
	}, accounting.Options{})
	require.NoError(t, err)

	create := func(in accounts.CreateInput) accounts.Account {
		acc, err := svc.CreateAccount(ctx, in)
		require.NoError(t, err)
		return acc
	}
	cash := create(accounts.CreateInput{Name: "Cash", Group: accounts.GroupAssets, Category: "Current Assets", OpeningBalance: d("1000")})
	sales := create(accounts.CreateInput{Name: "Sales", Group: accounts.GroupIncome, Category: "Sales"})
	milk := create(accounts.CreateInput{Name: "Milk", ParentID: &sales.ID})

	_, err = svc.CreateVoucher(ctx, vouchers.TransactionDraft{Settled: vouchers.Settled{
		Type:                vouchers.TypeReceipt,
		Date:                time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		Method:              vouchers.MethodCash,
		SettlementAccountID: cash.ID,
		Total:               d("250"),
		Lines:               []vouchers.AmountLine{{AccountID: milk.ID, Amount: d("250")}},
	}}, vouchers.StatusPosted)
	require.NoError(t, err)

	report, err := NewLedgerIntegrityJob(svc, discard(), nil).Run(ctx)
	require.NoError(t, err)
	require.True(t, report.Clean(), "%+v", report.Mismatches)
	require.Equal(t, 4, report.Accounts)
	require.Equal(t, 3, report.Leaves)
}

func TestIntegrityReportsBothChecks(t *testing.T) {
	parent := accounts.Account{ID: uuid.New(), Code: "4001", CurrentBalance: d("500")}
	childA := accounts.Account{ID: uuid.New(), Code: "4001-01", ParentID: &parent.ID, CurrentBalance: d("300")}
	childB := accounts.Account{ID: uuid.New(), Code: "4001-02", ParentID: &parent.ID, CurrentBalance: d("150")}
	reader := &stubReader{
		accounts: []accounts.Account{parent, childA, childB},
		closing: map[uuid.UUID]decimal.Decimal{
			childA.ID: d("300"),
			childB.ID: d("120"),
		},
	}

	report, err := NewLedgerIntegrityJob(reader, discard(), nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 2)

	byCheck := map[string]Mismatch{}
	for _, m := range report.Mismatches {
		byCheck[m.Check] = m
	}
	require.Equal(t, parent.ID, byCheck[CheckParentSum].AccountID)
	require.True(t, byCheck[CheckParentSum].Expected.Equal(d("450")))
	require.Equal(t, childB.ID, byCheck[CheckLedgerReplay].AccountID)
	require.True(t, byCheck[CheckLedgerReplay].Expected.Equal(d("120")))
	require.True(t, byCheck[CheckLedgerReplay].Actual.Equal(d("150")))
}

func TestIntegrityReadsOneSnapshot(t *testing.T) {
	a := accounts.Account{ID: uuid.New(), Code: "1001", CurrentBalance: d("10")}
	b := accounts.Account{ID: uuid.New(), Code: "1002", CurrentBalance: d("20")}
	reader := &stubReader{
		accounts: []accounts.Account{a, b},
		closing:  map[uuid.UUID]decimal.Decimal{a.ID: d("10"), b.ID: d("20")},
	}

	report, err := NewLedgerIntegrityJob(reader, discard(), nil).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Clean())
	require.Equal(t, 1, reader.snapshots)
	require.Zero(t, reader.stray)
}

func TestIntegrityPropagatesReaderErrors(t *testing.T) {
	boom := errors.New("db down")
	reader := &stubReader{accounts: []accounts.Account{{ID: uuid.New(), Code: "1001"}}, err: boom}
	_, err := NewLedgerIntegrityJob(reader, discard(), nil).Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestHandleCountsMismatches(t *testing.T) {
	leaf := accounts.Account{ID: uuid.New(), Code: "1001", CurrentBalance: d("10")}
	reader := &stubReader{accounts: []accounts.Account{leaf}, closing: map[uuid.UUID]decimal.Decimal{leaf.ID: d("12")}}
	registry := prometheus.NewRegistry()
	job := NewLedgerIntegrityJob(reader, discard(), jobmetrics.NewMetrics(registry))

	task, err := NewLedgerIntegrityTask("cli")
	require.NoError(t, err)
	require.Equal(t, TaskLedgerIntegrity, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))

	count, err := testutil.GatherAndCount(registry, "farmbooks_ledger_integrity_mismatches_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestHandleSkipsMalformedPayload(t *testing.T) {
	job := NewLedgerIntegrityJob(&stubReader{}, discard(), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
