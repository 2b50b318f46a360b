package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/jobs"
)

type stubEnqueuer struct {
	requestedBy string
}

func (s *stubEnqueuer) EnqueueLedgerIntegrity(_ context.Context, requestedBy string) (*asynq.TaskInfo, error) {
	s.requestedBy = requestedBy
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault, Type: jobs.TaskLedgerIntegrity}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestTriggerDefaultsToIntegrity(t *testing.T) {
	enq := &stubEnqueuer{}
	c := NewJobsCLIWith(enq, nil)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := c.JobsCommand(context.Background(), JobsOptions{Action: "trigger", JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Zero(t, code, stderr.String())
	require.Equal(t, "cli", enq.requestedBy)

	var out map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Equal(t, "task-1", out["id"])
	require.Equal(t, jobs.TaskLedgerIntegrity, out["type"])
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c := NewJobsCLIWith(&stubEnqueuer{}, nil)
	stderr := new(bytes.Buffer)
	code := c.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Job: "mail:send", Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "unsupported job mail:send")
}

func TestStatsPrintsQueue(t *testing.T) {
	c := NewJobsCLIWith(nil, stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}})
	stdout := new(bytes.Buffer)
	code := c.JobsCommand(context.Background(), JobsOptions{Action: "stats", Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	require.Contains(t, stdout.String(), "pending=3")
	require.Contains(t, stdout.String(), "retry=1")

	c = NewJobsCLIWith(nil, stubInspector{err: errors.New("redis down")})
	stderr := new(bytes.Buffer)
	require.Equal(t, 1, c.JobsCommand(context.Background(), JobsOptions{Action: "stats", Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "redis down")
}

func TestUnknownActionAndMissingCollaborators(t *testing.T) {
	c := NewJobsCLIWith(nil, nil)
	require.Equal(t, 2, c.JobsCommand(context.Background(), JobsOptions{Action: "purge", Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
	require.Equal(t, 1, c.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
	require.NoError(t, c.Close())
}

type fixedReader struct {
	accounts []accounts.Account
	closing  map[uuid.UUID]decimal.Decimal
}

func (r fixedReader) ReadSnapshot(ctx context.Context, fn func(context.Context, jobs.LedgerReader) error) error {
	return fn(ctx, r)
}

func (r fixedReader) ListAccounts(context.Context) ([]accounts.Account, error) { return r.accounts, nil }

func (r fixedReader) Statement(_ context.Context, id uuid.UUID, _ ledger.Range) (ledger.Statement, error) {
	return ledger.Statement{Closing: r.closing[id]}, nil
}

func TestIntegrityCommandExitCodes(t *testing.T) {
	cash := accounts.Account{ID: uuid.New(), Code: "1001", CurrentBalance: decimal.NewFromInt(100)}
	reader := fixedReader{accounts: []accounts.Account{cash}, closing: map[uuid.UUID]decimal.Decimal{cash.ID: decimal.NewFromInt(100)}}

	stdout := new(bytes.Buffer)
	require.Zero(t, IntegrityCommand(context.Background(), reader, IntegrityOptions{Stdout: stdout, Stderr: new(bytes.Buffer)}))
	require.Contains(t, stdout.String(), "checked 1 accounts")

	reader.closing[cash.ID] = decimal.NewFromInt(90)
	stdout.Reset()
	code := IntegrityCommand(context.Background(), reader, IntegrityOptions{JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 10, code)

	var summary IntegritySummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.False(t, summary.OK)
	require.Len(t, summary.Mismatches, 1)
	require.Equal(t, jobs.CheckLedgerReplay, summary.Mismatches[0].Check)
	require.Equal(t, "1001", summary.Mismatches[0].Account)
	require.Equal(t, "90.00", summary.Mismatches[0].Expected)
}
