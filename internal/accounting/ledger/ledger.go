// Package ledger keeps the append-only per-account entry log.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
)

// Entry records one balance-affecting event on a leaf account.
type Entry struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Date         time.Time
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	BalanceAfter decimal.Decimal
	Reference    string
	SourceType   string
	SourceID     uuid.UUID
	Description  string
	CreatedAt    time.Time
}

// Source identifies the voucher an entry was posted from.
type Source struct {
	Type      string
	ID        uuid.UUID
	Reference string
	Date      time.Time
}

// Range bounds a query by date. Zero values are open ends; both ends are inclusive.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d lies inside the range.
func (r Range) Contains(d time.Time) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// Store persists entries. Entries are never updated or deleted.
type Store interface {
	InsertEntry(ctx context.Context, entry Entry) error
	// ListEntries returns entries of the given accounts dated on or before to
	// (unbounded when zero), ordered by date then creation.
	ListEntries(ctx context.Context, accountIDs []uuid.UUID, to time.Time) ([]Entry, error)
}

// Append writes the entry for a posting. account must be the snapshot taken
// before the delta is applied; BalanceAfter follows the account nature.
func Append(ctx context.Context, st Store, account accounts.Account, src Source, debit, credit decimal.Decimal, description string, now time.Time) (Entry, error) {
	entry := Entry{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Date:         src.Date,
		Debit:        debit,
		Credit:       credit,
		BalanceAfter: account.CurrentBalance.Add(account.Nature.Delta(debit, credit)),
		Reference:    src.Reference,
		SourceType:   src.Type,
		SourceID:     src.ID,
		Description:  description,
		CreatedAt:    now,
	}
	if err := st.InsertEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Reconstruct replays entries on top of an opening balance.
func Reconstruct(opening decimal.Decimal, nature accounts.Nature, entries []Entry) decimal.Decimal {
	balance := opening
	for _, e := range entries {
		balance = balance.Add(nature.Delta(e.Debit, e.Credit))
	}
	return balance
}

// Activity sums debits and credits of entries inside the range.
func Activity(entries []Entry, rng Range) (debit, credit decimal.Decimal) {
	for _, e := range entries {
		if !rng.Contains(e.Date) {
			continue
		}
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
