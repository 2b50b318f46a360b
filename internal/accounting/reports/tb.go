package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
)

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Opening decimal.Decimal `json:"opening"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// TrialBalanceGroup aggregates accounts of one group.
type TrialBalanceGroup struct {
	Key      accounts.Group        `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
}

// TrialBalance lists closing balances in debit and credit columns. Income and
// expense balances are already mirrored in retained earnings, so the credit
// column exceeds the debit column by NetIncome.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
	NetIncome   decimal.Decimal     `json:"netIncome"`
}

// Balanced reports whether the columns agree once the rollup is accounted for.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Add(tb.NetIncome).Equal(tb.TotalCredit)
}

var groupOrder = map[accounts.Group]int{
	accounts.GroupAssets:      1,
	accounts.GroupLiabilities: 2,
	accounts.GroupEquity:      3,
	accounts.GroupIncome:      4,
	accounts.GroupExpense:     5,
}

// BuildTrialBalance converts leaf balances into grouped trial balance data.
func BuildTrialBalance(balances []AccountBalance) TrialBalance {
	groups := make(map[accounts.Group]*TrialBalanceGroup)
	keys := make([]accounts.Group, 0)
	result := TrialBalance{}
	for _, acc := range balances {
		grp, ok := groups[acc.Group]
		if !ok {
			grp = &TrialBalanceGroup{Key: acc.Group}
			groups[acc.Group] = grp
			keys = append(keys, acc.Group)
		}
		row := TrialBalanceAccount{Code: acc.Code, Name: acc.Name, Opening: acc.Opening}
		if acc.DebitSide() {
			row.Debit = acc.Balance.Abs()
		} else {
			row.Credit = acc.Balance.Abs()
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		switch acc.Group {
		case accounts.GroupIncome:
			result.NetIncome = result.NetIncome.Add(acc.Balance)
		case accounts.GroupExpense:
			result.NetIncome = result.NetIncome.Sub(acc.Balance)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return groupOrder[keys[i]] < groupOrder[keys[j]] })
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	return result
}
