package periods

import (
	"context"
	"time"

	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

// Store reads and writes period records.
type Store interface {
	// LatestClosedEnd returns the greatest end date among closed periods.
	LatestClosedEnd(ctx context.Context) (time.Time, bool, error)
	GetPeriodByEnd(ctx context.Context, end time.Time) (Period, error)
	UpsertPeriod(ctx context.Context, period Period) error
	ListPeriods(ctx context.Context) ([]Period, error)
	// HoldCloseGuard share-locks the close guard for the rest of the
	// transaction. A close that commits first forces the holder to retry.
	HoldCloseGuard(ctx context.Context) error
	// AdvanceCloseGuard write-locks the guard and bumps its generation, waiting
	// for current holders and invalidating older snapshots.
	AdvanceCloseGuard(ctx context.Context) error
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsDateClosed reports whether a closed period ends on or after date.
func IsDateClosed(ctx context.Context, st Store, date time.Time) (bool, error) {
	end, ok, err := st.LatestClosedEnd(ctx)
	if err != nil || !ok {
		return false, err
	}
	return !Day(date).After(Day(end)), nil
}

// EnsureOpen holds the close guard, then fails with a closed-period error
// when date is locked.
func EnsureOpen(ctx context.Context, st Store, date time.Time) error {
	if err := st.HoldCloseGuard(ctx); err != nil {
		return err
	}
	end, ok, err := st.LatestClosedEnd(ctx)
	if err != nil {
		return err
	}
	if ok && !Day(date).After(Day(end)) {
		return shared.Wrap(shared.ErrClosedPeriod, "%s is on or before %s", Day(date).Format(time.DateOnly), Day(end).Format(time.DateOnly))
	}
	return nil
}
