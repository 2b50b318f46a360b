package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
)

// Line is an entry with the running balance of the statement.
type Line struct {
	Entry
	Running decimal.Decimal
}

// Statement is the ledger view of one account over a date range.
type Statement struct {
	Account     accounts.Account
	Leaves      []uuid.UUID
	Range       Range
	Opening     decimal.Decimal
	Lines       []Line
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Closing     decimal.Decimal
}

// QueryByAccount builds the statement for id. Parents carry no entries of
// their own, so their statement merges the ledgers of every descendant leaf.
func QueryByAccount(ctx context.Context, tree *accounts.Tree, acc accounts.Store, st Store, id uuid.UUID, rng Range) (Statement, error) {
	account, err := acc.GetAccount(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	leaves, err := tree.Leaves(ctx, acc, id)
	if err != nil {
		return Statement{}, err
	}
	ids := make([]uuid.UUID, 0, len(leaves))
	opening := decimal.Zero
	for _, leaf := range leaves {
		ids = append(ids, leaf.ID)
		opening = opening.Add(leaf.OpeningBalance)
	}
	entries, err := st.ListEntries(ctx, ids, rng.To)
	if err != nil {
		return Statement{}, err
	}
	sortEntries(entries)

	out := Statement{Account: account, Leaves: ids, Range: rng}
	running := opening
	for _, e := range entries {
		if !rng.From.IsZero() && e.Date.Before(rng.From) {
			running = running.Add(account.Nature.Delta(e.Debit, e.Credit))
			continue
		}
		if len(out.Lines) == 0 {
			out.Opening = running
		}
		running = running.Add(account.Nature.Delta(e.Debit, e.Credit))
		out.TotalDebit = out.TotalDebit.Add(e.Debit)
		out.TotalCredit = out.TotalCredit.Add(e.Credit)
		out.Lines = append(out.Lines, Line{Entry: e, Running: running})
	}
	if len(out.Lines) == 0 {
		out.Opening = running
	}
	out.Closing = running
	return out, nil
}
