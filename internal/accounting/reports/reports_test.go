package reports

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	_ "github.com/farmbooks/farmbooks/testing"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func farmBalances() []AccountBalance {
	return []AccountBalance{
		{Code: "1001", Name: "Cash", Group: accounts.GroupAssets, Nature: accounts.NatureDebit, Balance: d("1500")},
		{Code: "1002", Name: "Bank", Group: accounts.GroupAssets, Nature: accounts.NatureDebit, Balance: d("800")},
		{Code: "2001", Name: "Payables", Group: accounts.GroupLiabilities, Nature: accounts.NatureCredit, Balance: d("300")},
		{Code: "3001", Name: "Capital", Group: accounts.GroupEquity, Nature: accounts.NatureCredit, Balance: d("1600")},
		{Code: "3002", Name: "Retained Earnings", Group: accounts.GroupEquity, Nature: accounts.NatureCredit, Balance: d("400")},
		{Code: "4001", Name: "Milk Sales", Group: accounts.GroupIncome, Nature: accounts.NatureCredit, Balance: d("500")},
		{Code: "5001", Name: "Feed", Group: accounts.GroupExpense, Nature: accounts.NatureDebit, Balance: d("100")},
	}
}

func TestBuildTrialBalance(t *testing.T) {
	tb := BuildTrialBalance(farmBalances())
	require.Len(t, tb.Groups, 5)
	require.Equal(t, accounts.GroupAssets, tb.Groups[0].Key)
	require.True(t, tb.TotalDebit.Equal(d("2400")), tb.TotalDebit.String())
	require.True(t, tb.TotalCredit.Equal(d("2800")), tb.TotalCredit.String())
	require.True(t, tb.NetIncome.Equal(d("400")))
	require.True(t, tb.Balanced())
}

func TestTrialBalanceOverdrawnAccountMovesColumn(t *testing.T) {
	tb := BuildTrialBalance([]AccountBalance{
		{Code: "1001", Name: "Bank", Group: accounts.GroupAssets, Nature: accounts.NatureDebit, Balance: d("-50")},
	})
	row := tb.Groups[0].Accounts[0]
	require.True(t, row.Debit.IsZero())
	require.True(t, row.Credit.Equal(d("50")))
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss(farmBalances())
	require.True(t, pl.Income.Total.Equal(d("500")))
	require.True(t, pl.Expense.Total.Equal(d("100")))
	require.True(t, pl.NetIncome.Equal(d("400")))
}

func TestBuildBalanceSheet(t *testing.T) {
	bs := BuildBalanceSheet(farmBalances())
	require.True(t, bs.Assets.Total.Equal(d("2300")))
	require.True(t, bs.TotalLiabilitiesAndEquity.Equal(d("2300")))
	require.True(t, bs.Balanced())
	require.Len(t, bs.Equity.Accounts, 2)
}

func TestLeafBalancesSkipsParents(t *testing.T) {
	parent := accounts.Account{ID: uuid.New(), Code: "1001", Group: accounts.GroupAssets, CurrentBalance: d("70")}
	child := accounts.Account{ID: uuid.New(), Code: "1001-01", Group: accounts.GroupAssets, ParentID: &parent.ID, CurrentBalance: d("70")}
	out := LeafBalances([]accounts.Account{parent, child})
	require.Len(t, out, 1)
	require.Equal(t, "1001-01", out[0].Code)
}

type countingLister struct {
	calls atomic.Int32
	accs  []accounts.Account
}

func (c *countingLister) ListAccounts(context.Context) ([]accounts.Account, error) {
	c.calls.Add(1)
	return c.accs, nil
}

func TestServiceCachesUntilBump(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lister := &countingLister{accs: []accounts.Account{
		{ID: uuid.New(), Code: "1001", Name: "Cash", Group: accounts.GroupAssets, Nature: accounts.NatureDebit, CurrentBalance: d("10")},
	}}
	svc := NewService(lister, NewCache(client, 0))

	tb, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.True(t, tb.TotalDebit.Equal(d("10")))
	_, err = svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, lister.calls.Load())

	lister.accs[0].CurrentBalance = d("25")
	require.NoError(t, svc.Invalidate(ctx))
	tb, err = svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.True(t, tb.TotalDebit.Equal(d("25")))
	require.EqualValues(t, 2, lister.calls.Load())
}

func TestServiceWithoutCache(t *testing.T) {
	lister := &countingLister{}
	svc := NewService(lister, nil)
	_, err := svc.BalanceSheet(context.Background())
	require.NoError(t, err)
	_, err = svc.BalanceSheet(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, lister.calls.Load())
	require.NoError(t, svc.Invalidate(context.Background()))
}
