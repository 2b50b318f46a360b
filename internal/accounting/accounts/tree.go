package accounts

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

// DefaultMaxDepth caps upward and downward walks of the tree.
const DefaultMaxDepth = 32

// Tree applies chart-of-accounts rules on top of a Store.
type Tree struct {
	maxDepth  int
	protected map[uuid.UUID]struct{}
	now       func() time.Time
}

// NewTree builds a Tree. Protected accounts can neither be deleted nor parent children.
func NewTree(protected ...uuid.UUID) *Tree {
	t := &Tree{maxDepth: DefaultMaxDepth, protected: make(map[uuid.UUID]struct{}), now: time.Now}
	for _, id := range protected {
		t.protected[id] = struct{}{}
	}
	return t
}

// WithNow overrides the clock for testing.
func (t *Tree) WithNow(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

// Protect marks an account as a system account.
func (t *Tree) Protect(id uuid.UUID) {
	t.protected[id] = struct{}{}
}

// IsProtected reports whether id is a system account.
func (t *Tree) IsProtected(id uuid.UUID) bool {
	_, ok := t.protected[id]
	return ok
}

// Create inserts a new account. Children inherit group, category and nature
// from their parent and receive a sub-code; roots get a group-prefixed code.
func (t *Tree) Create(ctx context.Context, st Store, in CreateInput) (Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Account{}, shared.Validation("nameRequired", "account name required")
	}
	now := t.now()
	acc := Account{
		ID:             uuid.New(),
		Name:           name,
		OpeningBalance: in.OpeningBalance.Round(2),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ParentID != nil {
		parent, err := st.GetAccount(ctx, *in.ParentID)
		if err != nil {
			return Account{}, err
		}
		if t.IsProtected(parent.ID) {
			return Account{}, shared.ErrSystemAccount
		}
		posted, err := st.AccountHasEntries(ctx, parent.ID)
		if err != nil {
			return Account{}, err
		}
		if posted {
			return Account{}, shared.Wrap(shared.ErrHasPostings, "%s cannot take child accounts", parent.Code)
		}
		siblings, err := st.ListChildren(ctx, parent.ID)
		if err != nil {
			return Account{}, err
		}
		code, err := childCode(parent.Code, siblings)
		if err != nil {
			return Account{}, err
		}
		parentID := parent.ID
		acc.ParentID = &parentID
		acc.Code = code
		acc.Group = parent.Group
		acc.Category = parent.Category
		acc.Nature = parent.Nature
	} else {
		if !in.Group.Valid() {
			return Account{}, shared.Validation("invalidGroup", "unknown account group %q", in.Group)
		}
		category := strings.TrimSpace(in.Category)
		if category == "" {
			return Account{}, shared.Validation("categoryRequired", "category required for root accounts")
		}
		codes, err := st.ListRootCodes(ctx, in.Group.Prefix())
		if err != nil {
			return Account{}, err
		}
		code, err := rootCode(in.Group.Prefix(), codes)
		if err != nil {
			return Account{}, err
		}
		acc.Code = code
		acc.Group = in.Group
		acc.Category = category
		acc.Nature = NatureFor(in.Group)
		if in.Nature == NatureDebit || in.Nature == NatureCredit {
			acc.Nature = in.Nature
		}
	}
	acc.CurrentBalance = acc.OpeningBalance
	if err := st.InsertAccount(ctx, acc); err != nil {
		return Account{}, err
	}
	if acc.ParentID != nil {
		if err := t.RebalanceParent(ctx, st, *acc.ParentID); err != nil {
			return Account{}, err
		}
	}
	return acc, nil
}

// Delete removes a leaf account that no live voucher references.
func (t *Tree) Delete(ctx context.Context, st Store, id uuid.UUID) (Account, error) {
	acc, err := st.GetAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if t.IsProtected(id) {
		return Account{}, shared.ErrSystemAccount
	}
	children, err := st.ListChildren(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if len(children) > 0 {
		return Account{}, shared.Wrap(shared.ErrHasChildren, "%s has %d children", acc.Code, len(children))
	}
	inUse, err := st.AccountInUse(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if inUse {
		return Account{}, shared.Wrap(shared.ErrInUse, "%s", acc.Code)
	}
	if err := st.DeleteAccount(ctx, id); err != nil {
		return Account{}, err
	}
	if acc.ParentID != nil {
		if err := t.RebalanceParent(ctx, st, *acc.ParentID); err != nil {
			return Account{}, err
		}
	}
	return acc, nil
}

// RebalanceParent recomputes parentID as the sum of its direct children,
// zeroes its opening balance and walks up to the root.
func (t *Tree) RebalanceParent(ctx context.Context, st Store, parentID uuid.UUID) error {
	visited := make(map[uuid.UUID]struct{})
	current := parentID
	for depth := 0; ; depth++ {
		if depth >= t.maxDepth {
			return shared.Wrap(shared.ErrTreeIntegrity, "depth exceeded at %s", current)
		}
		if _, seen := visited[current]; seen {
			return shared.Wrap(shared.ErrTreeIntegrity, "cycle at %s", current)
		}
		visited[current] = struct{}{}

		parent, err := st.GetAccount(ctx, current)
		if err != nil {
			return err
		}
		children, err := st.ListChildren(ctx, current)
		if err != nil {
			return err
		}
		sum := decimal.Zero
		for _, child := range children {
			sum = sum.Add(child.CurrentBalance)
		}
		if !parent.OpeningBalance.IsZero() || !parent.CurrentBalance.Equal(sum) {
			if err := st.UpdateAccountBalances(ctx, current, decimal.Zero, sum); err != nil {
				return err
			}
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
}

// Ancestors lists the parent chain of id, nearest first.
func (t *Tree) Ancestors(ctx context.Context, st Store, id uuid.UUID) ([]uuid.UUID, error) {
	acc, err := st.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []uuid.UUID
	seen := map[uuid.UUID]struct{}{id: {}}
	for acc.ParentID != nil {
		if len(out) >= t.maxDepth {
			return nil, shared.Wrap(shared.ErrTreeIntegrity, "depth exceeded above %s", id)
		}
		next := *acc.ParentID
		if _, ok := seen[next]; ok {
			return nil, shared.Wrap(shared.ErrTreeIntegrity, "cycle above %s", id)
		}
		seen[next] = struct{}{}
		out = append(out, next)
		acc, err = st.GetAccount(ctx, next)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Leaves returns the descendant leaf accounts of id, or id itself when it is a leaf.
func (t *Tree) Leaves(ctx context.Context, st Store, id uuid.UUID) ([]Account, error) {
	root, err := st.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	type item struct {
		acc   Account
		depth int
	}
	var leaves []Account
	seen := map[uuid.UUID]struct{}{root.ID: {}}
	queue := []item{{acc: root}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > t.maxDepth {
			return nil, shared.Wrap(shared.ErrTreeIntegrity, "depth exceeded below %s", id)
		}
		children, err := st.ListChildren(ctx, cur.acc.ID)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			leaves = append(leaves, cur.acc)
			continue
		}
		for _, child := range children {
			if _, ok := seen[child.ID]; ok {
				return nil, shared.Wrap(shared.ErrTreeIntegrity, "cycle below %s", id)
			}
			seen[child.ID] = struct{}{}
			queue = append(queue, item{acc: child, depth: cur.depth + 1})
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Code < leaves[j].Code })
	return leaves, nil
}

// IsLeaf reports whether id has no children.
func IsLeaf(ctx context.Context, st Store, id uuid.UUID) (bool, error) {
	children, err := st.ListChildren(ctx, id)
	if err != nil {
		return false, err
	}
	return len(children) == 0, nil
}

func rootCode(prefix string, existing []string) (string, error) {
	base, _ := strconv.Atoi(prefix)
	lowest := base*1000 + 1
	highest := base*1000 + 999
	next := lowest
	for _, code := range existing {
		if !strings.HasPrefix(code, prefix) || len(code) != 4 {
			continue
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	if next > highest {
		return "", shared.Validation("codeExhausted", "no codes left for prefix %s", prefix)
	}
	return strconv.Itoa(next), nil
}

func childCode(parentCode string, siblings []Account) (string, error) {
	stem := parentCode + "-"
	next := 1
	for _, s := range siblings {
		if !strings.HasPrefix(s.Code, stem) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(s.Code, stem))
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	if next > 99 {
		return "", shared.Validation("codeExhausted", "no sub-codes left under %s", parentCode)
	}
	return fmt.Sprintf("%s%02d", stem, next), nil
}
