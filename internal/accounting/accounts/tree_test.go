package accounts

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

type memoryStore struct {
	accounts map[uuid.UUID]Account
	inUse    map[uuid.UUID]bool
	entries  map[uuid.UUID]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: make(map[uuid.UUID]Account),
		inUse:    make(map[uuid.UUID]bool),
		entries:  make(map[uuid.UUID]bool),
	}
}

func (s *memoryStore) GetAccount(_ context.Context, id uuid.UUID) (Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, shared.NotFound("account", id)
	}
	return acc, nil
}

func (s *memoryStore) GetAccountByCode(_ context.Context, code string) (Account, error) {
	for _, acc := range s.accounts {
		if acc.Code == code {
			return acc, nil
		}
	}
	return Account{}, shared.NotFound("account", code)
}

func (s *memoryStore) ListAccounts(context.Context) ([]Account, error) {
	out := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *memoryStore) ListChildren(_ context.Context, parentID uuid.UUID) ([]Account, error) {
	var out []Account
	for _, acc := range s.accounts {
		if acc.ParentID != nil && *acc.ParentID == parentID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (s *memoryStore) ListRootCodes(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, acc := range s.accounts {
		if acc.ParentID == nil && acc.Group.Prefix() == prefix {
			out = append(out, acc.Code)
		}
	}
	return out, nil
}

func (s *memoryStore) InsertAccount(_ context.Context, account Account) error {
	s.accounts[account.ID] = account
	return nil
}

func (s *memoryStore) UpdateAccountBalances(_ context.Context, id uuid.UUID, opening, current decimal.Decimal) error {
	acc := s.accounts[id]
	acc.OpeningBalance = opening
	acc.CurrentBalance = current
	s.accounts[id] = acc
	return nil
}

func (s *memoryStore) DeleteAccount(_ context.Context, id uuid.UUID) error {
	delete(s.accounts, id)
	return nil
}

func (s *memoryStore) AccountInUse(_ context.Context, id uuid.UUID) (bool, error) {
	return s.inUse[id], nil
}

func (s *memoryStore) AccountHasEntries(_ context.Context, id uuid.UUID) (bool, error) {
	return s.entries[id], nil
}

func (s *memoryStore) LockAccounts(context.Context, []uuid.UUID) error { return nil }

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCreateRootAssignsGroupPrefixedCodes(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStore()
	tree := NewTree()

	cash, err := tree.Create(ctx, st, CreateInput{Name: "Cash", Group: GroupAssets, Category: "Current Assets"})
	require.NoError(t, err)
	require.Equal(t, "1001", cash.Code)
	require.Equal(t, NatureDebit, cash.Nature)

	bank, err := tree.Create(ctx, st, CreateInput{Name: "Bank", Group: GroupAssets, Category: "Current Assets"})
	require.NoError(t, err)
	require.Equal(t, "1002", bank.Code)

	sales, err := tree.Create(ctx, st, CreateInput{Name: "Milk Sales", Group: GroupIncome, Category: "Sales"})
	require.NoError(t, err)
	require.Equal(t, "4001", sales.Code)
	require.Equal(t, NatureCredit, sales.Nature)
}

func TestCreateRootRequiresCategory(t *testing.T) {
	_, err := NewTree().Create(context.Background(), newMemoryStore(), CreateInput{Name: "Cash", Group: GroupAssets})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
	require.Equal(t, "categoryRequired", shared.CodeOf(err))
}

func TestCreateChildInheritsAndRebalancesParent(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStore()
	tree := NewTree()

	parent, err := tree.Create(ctx, st, CreateInput{Name: "Livestock", Group: GroupAssets, Category: "Fixed Assets", OpeningBalance: amount("75")})
	require.NoError(t, err)

	child, err := tree.Create(ctx, st, CreateInput{Name: "Cattle", ParentID: &parent.ID, OpeningBalance: amount("200")})
	require.NoError(t, err)
	require.Equal(t, parent.Code+"-01", child.Code)
	require.Equal(t, GroupAssets, child.Group)
	require.Equal(t, "Fixed Assets", child.Category)
	require.Equal(t, NatureDebit, child.Nature)

	got, err := st.GetAccount(ctx, parent.ID)
	require.NoError(t, err)
	require.True(t, got.CurrentBalance.Equal(amount("200")))
	require.True(t, got.OpeningBalance.IsZero())

	second, err := tree.Create(ctx, st, CreateInput{Name: "Goats", ParentID: &parent.ID, OpeningBalance: amount("50.25")})
	require.NoError(t, err)
	require.Equal(t, parent.Code+"-02", second.Code)

	got, _ = st.GetAccount(ctx, parent.ID)
	require.True(t, got.CurrentBalance.Equal(amount("250.25")))
}

func TestCreateChildPropagatesToRoot(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStore()
	tree := NewTree()

	root, err := tree.Create(ctx, st, CreateInput{Name: "Expenses", Group: GroupExpense, Category: "Operating"})
	require.NoError(t, err)
	mid, err := tree.Create(ctx, st, CreateInput{Name: "Feed", ParentID: &root.ID})
	require.NoError(t, err)
	_, err = tree.Create(ctx, st, CreateInput{Name: "Hay", ParentID: &mid.ID, OpeningBalance: amount("30")})
	require.NoError(t, err)
	_, err = tree.Create(ctx, st, CreateInput{Name: "Silage", ParentID: &mid.ID, OpeningBalance: amount("12.5")})
	require.NoError(t, err)

	gotMid, _ := st.GetAccount(ctx, mid.ID)
	gotRoot, _ := st.GetAccount(ctx, root.ID)
	require.True(t, gotMid.CurrentBalance.Equal(amount("42.5")))
	require.True(t, gotRoot.CurrentBalance.Equal(amount("42.5")))
}

func TestCreateChildRejectsPostedOrProtectedParent(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStore()
	tree := NewTree()

	cash, err := tree.Create(ctx, st, CreateInput{Name: "Cash", Group: GroupAssets, Category: "Current"})
	require.NoError(t, err)
	st.entries[cash.ID] = true
	_, err = tree.Create(ctx, st, CreateInput{Name: "Petty", ParentID: &cash.ID})
	require.ErrorIs(t, err, shared.ErrHasPostings)

	re, err := tree.Create(ctx, st, CreateInput{Name: "Retained Earnings", Group: GroupEquity, Category: "Equity"})
	require.NoError(t, err)
	tree.Protect(re.ID)
	_, err = tree.Create(ctx, st, CreateInput{Name: "Sub", ParentID: &re.ID})
	require.ErrorIs(t, err, shared.ErrSystemAccount)

	missing := uuid.New()
	_, err = tree.Create(ctx, st, CreateInput{Name: "Orphan", ParentID: &missing})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStore()
	tree := NewTree()

	parent, err := tree.Create(ctx, st, CreateInput{Name: "Bank", Group: GroupAssets, Category: "Current"})
	require.NoError(t, err)
	a, err := tree.Create(ctx, st, CreateInput{Name: "Checking", ParentID: &parent.ID, OpeningBalance: amount("100")})
	require.NoError(t, err)
	b, err := tree.Create(ctx, st, CreateInput{Name: "Savings", ParentID: &parent.ID, OpeningBalance: amount("40")})
	require.NoError(t, err)

	_, err = tree.Delete(ctx, st, parent.ID)
	require.ErrorIs(t, err, shared.ErrHasChildren)

	st.inUse[a.ID] = true
	_, err = tree.Delete(ctx, st, a.ID)
	require.ErrorIs(t, err, shared.ErrInUse)

	_, err = tree.Delete(ctx, st, b.ID)
	require.NoError(t, err)
	got, _ := st.GetAccount(ctx, parent.ID)
	require.True(t, got.CurrentBalance.Equal(amount("100")))
}

func TestRebalanceDetectsCycle(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStore()
	a := uuid.New()
	b := uuid.New()
	st.accounts[a] = Account{ID: a, Code: "1001", Group: GroupAssets, ParentID: &b}
	st.accounts[b] = Account{ID: b, Code: "1002", Group: GroupAssets, ParentID: &a}

	err := NewTree().RebalanceParent(ctx, st, a)
	require.ErrorIs(t, err, shared.ErrTreeIntegrity)
	require.Equal(t, shared.KindInternal, shared.KindOf(err))
}

func TestLeavesAndAncestors(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStore()
	tree := NewTree()

	root, _ := tree.Create(ctx, st, CreateInput{Name: "Sales", Group: GroupIncome, Category: "Sales"})
	dairy, _ := tree.Create(ctx, st, CreateInput{Name: "Dairy", ParentID: &root.ID})
	milk, _ := tree.Create(ctx, st, CreateInput{Name: "Milk", ParentID: &dairy.ID})
	crops, _ := tree.Create(ctx, st, CreateInput{Name: "Crops", ParentID: &root.ID})

	leaves, err := tree.Leaves(ctx, st, root.ID)
	require.NoError(t, err)
	require.Len(t, leaves, 2)
	require.Equal(t, milk.ID, leaves[0].ID)
	require.Equal(t, crops.ID, leaves[1].ID)

	up, err := tree.Ancestors(ctx, st, milk.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{dairy.ID, root.ID}, up)
}

func TestParseGroupAndNature(t *testing.T) {
	g, ok := ParseGroup("  expense ")
	require.True(t, ok)
	require.Equal(t, GroupExpense, g)
	_, ok = ParseGroup("revenue")
	require.False(t, ok)

	n, ok := ParseNature("CREDIT")
	require.True(t, ok)
	require.Equal(t, NatureCredit, n)
	require.True(t, NatureCredit.Delta(amount("10"), amount("25")).Equal(amount("15")))
	require.True(t, NatureDebit.Delta(amount("10"), amount("25")).Equal(amount("-15")))
}

func TestHierarchy(t *testing.T) {
	root := Account{ID: uuid.New(), Code: "1001"}
	b := Account{ID: uuid.New(), Code: "1001-02", ParentID: &root.ID}
	a := Account{ID: uuid.New(), Code: "1001-01", ParentID: &root.ID}
	other := Account{ID: uuid.New(), Code: "4001"}

	roots := Hierarchy([]Account{other, b, root, a})
	require.Len(t, roots, 2)
	require.Equal(t, "1001", roots[0].Code)
	require.Len(t, roots[0].Children, 2)
	require.Equal(t, "1001-01", roots[0].Children[0].Code)
	require.Empty(t, roots[1].Children)
}
