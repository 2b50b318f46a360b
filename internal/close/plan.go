// Package close sweeps income and expense activity into retained earnings and
// marks accounting periods closed.
package close

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
)

// Store is the read surface a close plan needs.
type Store interface {
	accounts.Store
	ledger.Store
}

// Plan is the closing journal for one period window.
type Plan struct {
	Start        time.Time
	End          time.Time
	Lines        []vouchers.Line
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetIncome    decimal.Decimal
	Total        decimal.Decimal
}

// Empty reports whether the window had no nominal activity.
func (p Plan) Empty() bool {
	return len(p.Lines) == 0
}

// BuildPlan reconstructs the activity of every income and expense leaf dated
// in [start, end] from the ledger and stages the lines that transfer it to
// retained. A zero start means the window is unbounded below.
func BuildPlan(ctx context.Context, st Store, retained accounts.Account, start, end time.Time) (Plan, error) {
	plan := Plan{Start: start, End: end}
	all, err := st.ListAccounts(ctx)
	if err != nil {
		return Plan{}, err
	}
	parents := make(map[uuid.UUID]struct{})
	for _, a := range all {
		if a.ParentID != nil {
			parents[*a.ParentID] = struct{}{}
		}
	}
	var nominal []accounts.Account
	for _, a := range all {
		if _, isParent := parents[a.ID]; isParent || !a.Group.Nominal() {
			continue
		}
		nominal = append(nominal, a)
	}
	sort.Slice(nominal, func(i, j int) bool { return nominal[i].Code < nominal[j].Code })
	if len(nominal) == 0 {
		return plan, nil
	}

	ids := make([]uuid.UUID, 0, len(nominal))
	for _, a := range nominal {
		ids = append(ids, a.ID)
	}
	entries, err := st.ListEntries(ctx, ids, end)
	if err != nil {
		return Plan{}, err
	}
	byAccount := make(map[uuid.UUID][]ledger.Entry, len(nominal))
	for _, e := range entries {
		byAccount[e.AccountID] = append(byAccount[e.AccountID], e)
	}

	window := ledger.Range{From: start, To: end}
	for _, acc := range nominal {
		debit, credit := ledger.Activity(byAccount[acc.ID], window)
		if debit.Equal(credit) {
			continue
		}
		// net credit the account contributed to retained earnings
		net := credit.Sub(debit)
		switch acc.Group {
		case accounts.GroupIncome:
			plan.TotalIncome = plan.TotalIncome.Add(net)
		case accounts.GroupExpense:
			plan.TotalExpense = plan.TotalExpense.Sub(net)
		}
		line := vouchers.Line{AccountID: acc.ID, Description: "close " + acc.Code}
		if net.IsPositive() {
			line.Debit = net
		} else {
			line.Credit = net.Neg()
		}
		plan.Total = plan.Total.Add(line.Debit)
		plan.Lines = append(plan.Lines, line)
	}
	plan.NetIncome = plan.TotalIncome.Sub(plan.TotalExpense)
	if plan.NetIncome.IsZero() {
		return plan, nil
	}
	re := vouchers.Line{AccountID: retained.ID, Description: "net income to " + retained.Code}
	if plan.NetIncome.IsPositive() {
		re.Credit = plan.NetIncome
	} else {
		re.Debit = plan.NetIncome.Neg()
		plan.Total = plan.Total.Add(re.Debit)
	}
	plan.Lines = append(plan.Lines, re)
	return plan, nil
}
