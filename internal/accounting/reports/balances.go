package reports

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
)

// AccountBalance is the report view of one leaf account.
type AccountBalance struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Group   accounts.Group  `json:"group"`
	Nature  accounts.Nature `json:"nature"`
	Opening decimal.Decimal `json:"opening"`
	Balance decimal.Decimal `json:"balance"`
}

// DebitSide reports whether the balance sits in the debit column.
func (a AccountBalance) DebitSide() bool {
	if a.Nature == accounts.NatureDebit {
		return !a.Balance.IsNegative()
	}
	return a.Balance.IsNegative()
}

// LeafBalances keeps accounts without children. Parent balances are sums of
// their leaves and would double count.
func LeafBalances(all []accounts.Account) []AccountBalance {
	parents := make(map[uuid.UUID]struct{})
	for _, acc := range all {
		if acc.ParentID != nil {
			parents[*acc.ParentID] = struct{}{}
		}
	}
	out := make([]AccountBalance, 0, len(all))
	for _, acc := range all {
		if _, isParent := parents[acc.ID]; isParent {
			continue
		}
		out = append(out, AccountBalance{
			Code:    acc.Code,
			Name:    acc.Name,
			Group:   acc.Group,
			Nature:  acc.Nature,
			Opening: acc.OpeningBalance,
			Balance: acc.CurrentBalance,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
