package accounting

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	internalShared "github.com/farmbooks/farmbooks/internal/shared"
)

// MemoryRepository keeps the ledger in process. Transactions are serialised
// and run against a private copy that replaces the live state only on commit.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: newMemoryState()}
}

type memoryState struct {
	accounts map[uuid.UUID]accounts.Account
	entries  []ledger.Entry
	parties  map[uuid.UUID]parties.Party
	history  []parties.HistoryRow
	periods  map[time.Time]periods.Period
	vouchers map[uuid.UUID]vouchers.Voucher
	counters map[string]int64
	audit    []internalShared.AuditLog
}

func newMemoryState() *memoryState {
	return &memoryState{
		accounts: make(map[uuid.UUID]accounts.Account),
		parties:  make(map[uuid.UUID]parties.Party),
		periods:  make(map[time.Time]periods.Period),
		vouchers: make(map[uuid.UUID]vouchers.Voucher),
		counters: make(map[string]int64),
	}
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		accounts: maps.Clone(s.accounts),
		entries:  slices.Clone(s.entries),
		parties:  maps.Clone(s.parties),
		history:  slices.Clone(s.history),
		periods:  maps.Clone(s.periods),
		vouchers: maps.Clone(s.vouchers),
		counters: maps.Clone(s.counters),
		audit:    slices.Clone(s.audit),
	}
}

// WithTx executes fn against a snapshot and commits it when fn succeeds.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{state: work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

// AuditLogs returns the committed audit records.
func (r *MemoryRepository) AuditLogs() []internalShared.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.state.audit)
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetAccount(_ context.Context, id uuid.UUID) (accounts.Account, error) {
	acc, ok := t.state.accounts[id]
	if !ok {
		return accounts.Account{}, shared.NotFound("account", id)
	}
	return acc, nil
}

func (t *memoryTx) GetAccountByCode(_ context.Context, code string) (accounts.Account, error) {
	for _, acc := range t.state.accounts {
		if acc.Code == code {
			return acc, nil
		}
	}
	return accounts.Account{}, shared.NotFound("account", code)
}

func (t *memoryTx) ListAccounts(context.Context) ([]accounts.Account, error) {
	out := slices.Collect(maps.Values(t.state.accounts))
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (t *memoryTx) ListChildren(_ context.Context, parentID uuid.UUID) ([]accounts.Account, error) {
	var out []accounts.Account
	for _, acc := range t.state.accounts {
		if acc.ParentID != nil && *acc.ParentID == parentID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (t *memoryTx) ListRootCodes(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, acc := range t.state.accounts {
		if acc.ParentID == nil && strings.HasPrefix(acc.Code, prefix) {
			out = append(out, acc.Code)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *memoryTx) InsertAccount(_ context.Context, acc accounts.Account) error {
	for _, existing := range t.state.accounts {
		if existing.Code == acc.Code {
			return shared.Wrap(shared.ErrDuplicate, "account code %s", acc.Code)
		}
	}
	t.state.accounts[acc.ID] = acc
	return nil
}

func (t *memoryTx) UpdateAccountBalances(_ context.Context, id uuid.UUID, opening, current decimal.Decimal) error {
	acc, ok := t.state.accounts[id]
	if !ok {
		return shared.NotFound("account", id)
	}
	acc.OpeningBalance = opening
	acc.CurrentBalance = current
	acc.UpdatedAt = time.Now()
	t.state.accounts[id] = acc
	return nil
}

func (t *memoryTx) DeleteAccount(_ context.Context, id uuid.UUID) error {
	if _, ok := t.state.accounts[id]; !ok {
		return shared.NotFound("account", id)
	}
	for vid, v := range t.state.vouchers {
		if v.Status != vouchers.StatusVoid {
			continue
		}
		v.Lines = slices.DeleteFunc(slices.Clone(v.Lines), func(l vouchers.Line) bool { return l.AccountID == id })
		if v.SettlementAccountID != nil && *v.SettlementAccountID == id {
			v.SettlementAccountID = nil
		}
		t.state.vouchers[vid] = v
	}
	delete(t.state.accounts, id)
	return nil
}

func (t *memoryTx) AccountInUse(_ context.Context, id uuid.UUID) (bool, error) {
	for _, v := range t.state.vouchers {
		if v.Status == vouchers.StatusVoid {
			continue
		}
		if slices.Contains(v.AccountIDs(), id) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) AccountHasEntries(_ context.Context, id uuid.UUID) (bool, error) {
	for _, e := range t.state.entries {
		if e.AccountID == id {
			return true, nil
		}
	}
	return false, nil
}

// LockAccounts is a no-op: transactions are already serialised.
func (t *memoryTx) LockAccounts(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := t.state.accounts[id]; !ok {
			return shared.NotFound("account", id)
		}
	}
	return nil
}

func (t *memoryTx) InsertEntry(_ context.Context, entry ledger.Entry) error {
	t.state.entries = append(t.state.entries, entry)
	return nil
}

func (t *memoryTx) ListEntries(_ context.Context, accountIDs []uuid.UUID, to time.Time) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range t.state.entries {
		if !slices.Contains(accountIDs, e.AccountID) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (t *memoryTx) GetParty(_ context.Context, id uuid.UUID) (parties.Party, error) {
	p, ok := t.state.parties[id]
	if !ok {
		return parties.Party{}, shared.NotFound("party", id)
	}
	return p, nil
}

func (t *memoryTx) ListParties(_ context.Context, kind parties.Kind) ([]parties.Party, error) {
	var out []parties.Party
	for _, p := range t.state.parties {
		if kind == "" || p.Kind == kind {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *memoryTx) InsertParty(_ context.Context, p parties.Party) error {
	t.state.parties[p.ID] = p
	return nil
}

func (t *memoryTx) UpdatePartyBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal, at time.Time) error {
	p, ok := t.state.parties[id]
	if !ok {
		return shared.NotFound("party", id)
	}
	p.CurrentBalance = balance
	p.UpdatedAt = at
	t.state.parties[id] = p
	return nil
}

func (t *memoryTx) InsertPartyHistory(_ context.Context, row parties.HistoryRow) error {
	t.state.history = append(t.state.history, row)
	return nil
}

func (t *memoryTx) ListPartyHistory(_ context.Context, id uuid.UUID) ([]parties.HistoryRow, error) {
	var out []parties.HistoryRow
	for _, row := range t.state.history {
		if row.PartyID == id {
			out = append(out, row)
		}
	}
	return out, nil
}

// HoldCloseGuard is a no-op: transactions are already serialised.
func (t *memoryTx) HoldCloseGuard(context.Context) error { return nil }

// AdvanceCloseGuard is a no-op: transactions are already serialised.
func (t *memoryTx) AdvanceCloseGuard(context.Context) error { return nil }

func (t *memoryTx) LatestClosedEnd(context.Context) (time.Time, bool, error) {
	var (
		latest time.Time
		found  bool
	)
	for _, p := range t.state.periods {
		if p.Closed() && (!found || p.EndDate.After(latest)) {
			latest = p.EndDate
			found = true
		}
	}
	return latest, found, nil
}

func (t *memoryTx) GetPeriodByEnd(_ context.Context, end time.Time) (periods.Period, error) {
	p, ok := t.state.periods[periods.Day(end)]
	if !ok {
		return periods.Period{}, shared.NotFound("period", end.Format("2006-01-02"))
	}
	return p, nil
}

func (t *memoryTx) UpsertPeriod(_ context.Context, p periods.Period) error {
	t.state.periods[periods.Day(p.EndDate)] = p
	return nil
}

func (t *memoryTx) ListPeriods(context.Context) ([]periods.Period, error) {
	out := slices.Collect(maps.Values(t.state.periods))
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (t *memoryTx) NextSequence(_ context.Context, prefix string, fiscalYear int) (int64, error) {
	key := fmt.Sprintf("%s/%d", prefix, fiscalYear)
	t.state.counters[key]++
	return t.state.counters[key], nil
}

func (t *memoryTx) InsertVoucher(_ context.Context, v vouchers.Voucher) error {
	for _, existing := range t.state.vouchers {
		if existing.Number == v.Number {
			return shared.Wrap(shared.ErrDuplicate, "voucher number %s", v.Number)
		}
	}
	v.Lines = slices.Clone(v.Lines)
	t.state.vouchers[v.ID] = v
	return nil
}

func (t *memoryTx) UpdateVoucher(_ context.Context, v vouchers.Voucher) error {
	if _, ok := t.state.vouchers[v.ID]; !ok {
		return shared.NotFound("voucher", v.ID)
	}
	v.Lines = slices.Clone(v.Lines)
	t.state.vouchers[v.ID] = v
	return nil
}

func (t *memoryTx) GetVoucher(_ context.Context, id uuid.UUID) (vouchers.Voucher, error) {
	v, ok := t.state.vouchers[id]
	if !ok {
		return vouchers.Voucher{}, shared.NotFound("voucher", id)
	}
	v.Lines = slices.Clone(v.Lines)
	return v, nil
}

func (t *memoryTx) LockVoucher(ctx context.Context, id uuid.UUID) (vouchers.Voucher, error) {
	return t.GetVoucher(ctx, id)
}

func (t *memoryTx) DeleteVoucher(_ context.Context, id uuid.UUID) error {
	if _, ok := t.state.vouchers[id]; !ok {
		return shared.NotFound("voucher", id)
	}
	delete(t.state.vouchers, id)
	return nil
}

func (t *memoryTx) ListVouchers(_ context.Context, f vouchers.Filter) ([]vouchers.Voucher, error) {
	var out []vouchers.Voucher
	for _, v := range t.state.vouchers {
		if f.Kind != "" && v.Kind != f.Kind {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if !(ledger.Range{From: f.From, To: f.To}).Contains(v.Date) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number > out[j].Number
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memoryTx) RecordAudit(_ context.Context, log internalShared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return shared.Internal("record audit", err)
	}
	t.state.audit = append(t.state.audit, log)
	return nil
}
