// Package posting applies a voucher's balance effects atomically.
package posting

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
)

// Tx is the transaction-scoped view the engine writes through.
type Tx interface {
	accounts.Store
	ledger.Store
	parties.Store
	periods.Store
}

// Engine validates and applies postings.
type Engine struct {
	tree             *accounts.Tree
	retainedEarnings uuid.UUID
	now              func() time.Time
}

// NewEngine builds an engine rolling nominal activity into retainedEarnings.
func NewEngine(tree *accounts.Tree, retainedEarnings uuid.UUID) *Engine {
	return &Engine{tree: tree, retainedEarnings: retainedEarnings, now: time.Now}
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// RetainedEarnings returns the configured retained earnings account.
func (e *Engine) RetainedEarnings() uuid.UUID {
	return e.retainedEarnings
}

// Result summarises an applied posting.
type Result struct {
	Entries       []ledger.Entry
	Touched       []uuid.UUID
	RetainedShift decimal.Decimal
	PartyHistory  *parties.HistoryRow
}

type leg struct {
	debit       decimal.Decimal
	credit      decimal.Decimal
	description string
}

// Post validates v completely, then applies balances, ledger entries, the
// retained earnings rollup, parent rebalances and the party update. Any
// error leaves the caller's transaction to roll back.
func (e *Engine) Post(ctx context.Context, tx Tx, v vouchers.Voucher) (Result, error) {
	if err := periods.EnsureOpen(ctx, tx, v.Date); err != nil {
		return Result{}, err
	}
	if len(v.Lines) == 0 {
		return Result{}, shared.ErrNoLines
	}
	if err := tx.LockAccounts(ctx, sortedIDs(v.AccountIDs())); err != nil {
		return Result{}, err
	}

	lineAccounts, err := e.checkLines(ctx, tx, v)
	if err != nil {
		return Result{}, err
	}
	if err := checkTotals(v); err != nil {
		return Result{}, err
	}
	var settlement accounts.Account
	if v.Settled() {
		settlement, err = e.checkSettlement(ctx, tx, v)
		if err != nil {
			return Result{}, err
		}
	}
	if v.Settled() && v.Party.Kind.Tracked() {
		if err := checkParty(ctx, tx, v.Party); err != nil {
			return Result{}, err
		}
	}
	legs := e.stage(v, lineAccounts, settlement)
	ids := make([]uuid.UUID, 0, len(legs))
	for id := range legs {
		ids = append(ids, id)
	}
	ids = sortedIDs(ids)

	// Retained earnings is only locked when a nominal leg was mirrored onto it.
	var extra []uuid.UUID
	if _, mirrored := legs[e.retainedEarnings]; mirrored {
		if _, err := tx.GetAccount(ctx, e.retainedEarnings); err != nil {
			return Result{}, shared.Internal("load retained earnings", err)
		}
		extra = append(extra, e.retainedEarnings)
	}
	parents, err := e.lockAncestors(ctx, tx, ids, extra)
	if err != nil {
		return Result{}, err
	}

	now := e.now()
	src := ledger.Source{Type: string(v.Kind), ID: v.ID, Reference: v.Number, Date: v.Date}
	res := Result{Touched: ids}
	for _, id := range ids {
		acc, err := tx.GetAccount(ctx, id)
		if err != nil {
			return Result{}, err
		}
		l := legs[id]
		entry, err := ledger.Append(ctx, tx, acc, src, l.debit, l.credit, l.description, now)
		if err != nil {
			return Result{}, err
		}
		if err := tx.UpdateAccountBalances(ctx, id, acc.OpeningBalance, entry.BalanceAfter); err != nil {
			return Result{}, err
		}
		if id == e.retainedEarnings {
			res.RetainedShift = entry.BalanceAfter.Sub(acc.CurrentBalance)
		}
		res.Entries = append(res.Entries, entry)
	}
	for _, parentID := range parents {
		if err := e.tree.RebalanceParent(ctx, tx, parentID); err != nil {
			return Result{}, err
		}
	}

	if v.Settled() && v.Party.Kind.Tracked() {
		row, err := parties.Apply(ctx, tx, parties.Settlement{
			PartyID:       *v.Party.ID,
			Kind:          v.Party.Kind,
			Flow:          parties.Flow(v.Type),
			Amount:        v.Total,
			VoucherID:     v.ID,
			VoucherNumber: v.Number,
			Date:          v.Date,
		}, now)
		if err != nil {
			return Result{}, err
		}
		res.PartyHistory = &row
	}
	return res, nil
}

func (e *Engine) checkLines(ctx context.Context, tx Tx, v vouchers.Voucher) (map[uuid.UUID]accounts.Account, error) {
	out := make(map[uuid.UUID]accounts.Account, len(v.Lines))
	for i, line := range v.Lines {
		if _, dup := out[line.AccountID]; dup {
			return nil, shared.Wrap(shared.ErrDuplicateAccount, "line %d", i+1)
		}
		acc, err := e.leaf(ctx, tx, line.AccountID)
		if err != nil {
			return nil, err
		}
		out[line.AccountID] = acc
	}
	if v.SettlementAccountID != nil {
		if _, dup := out[*v.SettlementAccountID]; dup {
			return nil, shared.Wrap(shared.ErrDuplicateAccount, "settlement account also used on a line")
		}
	}
	return out, nil
}

func (e *Engine) leaf(ctx context.Context, tx Tx, id uuid.UUID) (accounts.Account, error) {
	acc, err := tx.GetAccount(ctx, id)
	if err != nil {
		return accounts.Account{}, err
	}
	leaf, err := accounts.IsLeaf(ctx, tx, id)
	if err != nil {
		return accounts.Account{}, err
	}
	if !leaf {
		return accounts.Account{}, shared.Wrap(shared.ErrPostToParent, "%s", acc.Code)
	}
	return acc, nil
}

func checkTotals(v vouchers.Voucher) error {
	if v.Kind == vouchers.KindJournal {
		debit, credit := decimal.Zero, decimal.Zero
		for _, l := range v.Lines {
			debit = debit.Add(l.Debit)
			credit = credit.Add(l.Credit)
		}
		if !debit.Equal(credit) {
			return shared.Wrap(shared.ErrUnbalanced, "debit %s, credit %s", debit.StringFixed(2), credit.StringFixed(2))
		}
		if !debit.Equal(v.Total) {
			return shared.Wrap(shared.ErrTotalMismatch, "lines %s, total %s", debit.StringFixed(2), v.Total.StringFixed(2))
		}
		return nil
	}
	sum := decimal.Zero
	for _, l := range v.Lines {
		sum = sum.Add(l.Amount)
	}
	if !sum.Equal(v.Total) {
		return shared.Wrap(shared.ErrTotalMismatch, "lines %s, total %s", sum.StringFixed(2), v.Total.StringFixed(2))
	}
	return nil
}

func (e *Engine) checkSettlement(ctx context.Context, tx Tx, v vouchers.Voucher) (accounts.Account, error) {
	if v.SettlementAccountID == nil {
		return accounts.Account{}, shared.Validation("missingField", "settlement account required")
	}
	acc, err := e.leaf(ctx, tx, *v.SettlementAccountID)
	if err != nil {
		return accounts.Account{}, err
	}
	if acc.Group != accounts.GroupAssets {
		return accounts.Account{}, shared.Validation("invalidSettlement", "settlement account %s must be a cash or bank asset", acc.Code)
	}
	if v.Type == vouchers.TypePayment && acc.CurrentBalance.LessThan(v.Total) {
		return accounts.Account{}, shared.Wrap(shared.ErrInsufficientBalance, "%s holds %s, payment %s", acc.Code, acc.CurrentBalance.StringFixed(2), v.Total.StringFixed(2))
	}
	return acc, nil
}

func checkParty(ctx context.Context, tx Tx, ref vouchers.PartyRef) error {
	if ref.ID == nil {
		return shared.Validation("missingField", "party id required")
	}
	p, err := tx.GetParty(ctx, *ref.ID)
	if err != nil {
		return err
	}
	if p.Kind != ref.Kind {
		return shared.Validation("partyKindMismatch", "party %s is a %s", p.Name, p.Kind)
	}
	return nil
}

// stage aggregates every debit and credit per account so each account gets
// exactly one ledger entry. Nominal legs are mirrored onto retained earnings:
// an income credit raises it, an expense debit lowers it.
func (e *Engine) stage(v vouchers.Voucher, lines map[uuid.UUID]accounts.Account, settlement accounts.Account) map[uuid.UUID]*leg {
	legs := make(map[uuid.UUID]*leg)
	add := func(acc accounts.Account, debit, credit decimal.Decimal, desc string) {
		l, ok := legs[acc.ID]
		if !ok {
			l = &leg{description: desc}
			legs[acc.ID] = l
		}
		l.debit = l.debit.Add(debit)
		l.credit = l.credit.Add(credit)
		if acc.Group.Nominal() {
			r, ok := legs[e.retainedEarnings]
			if !ok {
				r = &leg{description: "retained earnings rollup " + v.Number}
				legs[e.retainedEarnings] = r
			}
			r.debit = r.debit.Add(debit)
			r.credit = r.credit.Add(credit)
		}
	}

	for _, line := range v.Lines {
		acc := lines[line.AccountID]
		desc := line.Description
		if desc == "" {
			desc = v.Description
		}
		switch {
		case v.Kind == vouchers.KindJournal:
			add(acc, line.Debit, line.Credit, desc)
		case v.Type == vouchers.TypeReceipt:
			add(acc, decimal.Zero, line.Amount, desc)
		default:
			add(acc, line.Amount, decimal.Zero, desc)
		}
	}
	if v.Settled() {
		if v.Type == vouchers.TypeReceipt {
			add(settlement, v.Total, decimal.Zero, v.Description)
		} else {
			add(settlement, decimal.Zero, v.Total, v.Description)
		}
	}
	return legs
}

// lockAncestors locks extra plus every ancestor of ids and returns the
// distinct direct parents whose chains need rebalancing.
func (e *Engine) lockAncestors(ctx context.Context, tx Tx, ids, extra []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var direct []uuid.UUID
	all := append([]uuid.UUID(nil), extra...)
	for _, id := range ids {
		chain, err := e.tree.Ancestors(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		for i, a := range chain {
			if i == 0 {
				direct = appendUnique(direct, a)
			}
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			all = append(all, a)
		}
	}
	if len(all) > 0 {
		if err := tx.LockAccounts(ctx, sortedIDs(all)); err != nil {
			return nil, err
		}
	}
	return sortedIDs(direct), nil
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
