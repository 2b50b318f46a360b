package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

type fixedStore struct {
	end   time.Time
	ok    bool
	holds *int
}

func (s fixedStore) LatestClosedEnd(context.Context) (time.Time, bool, error) {
	return s.end, s.ok, nil
}

func (fixedStore) GetPeriodByEnd(context.Context, time.Time) (Period, error) {
	return Period{}, shared.NotFound("period", "")
}

func (fixedStore) UpsertPeriod(context.Context, Period) error { return nil }

func (fixedStore) ListPeriods(context.Context) ([]Period, error) { return nil, nil }

func (s fixedStore) HoldCloseGuard(context.Context) error {
	if s.holds != nil {
		*s.holds++
	}
	return nil
}

func (fixedStore) AdvanceCloseGuard(context.Context) error { return nil }

func TestIsDateClosed(t *testing.T) {
	ctx := context.Background()
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	st := fixedStore{end: end, ok: true}

	closed, err := IsDateClosed(ctx, st, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, closed)

	closed, err = IsDateClosed(ctx, st, time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, closed)

	closed, err = IsDateClosed(ctx, st, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.False(t, closed)

	closed, err = IsDateClosed(ctx, fixedStore{}, end)
	require.NoError(t, err)
	require.False(t, closed)
}

func TestEnsureOpen(t *testing.T) {
	st := fixedStore{end: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), ok: true}
	err := EnsureOpen(context.Background(), st, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, shared.ErrClosedPeriod)
	require.Equal(t, shared.KindClosedPeriod, shared.KindOf(err))

	require.NoError(t, EnsureOpen(context.Background(), st, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEnsureOpenHoldsCloseGuard(t *testing.T) {
	holds := 0
	st := fixedStore{end: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), ok: true, holds: &holds}

	require.NoError(t, EnsureOpen(context.Background(), st, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	require.Error(t, EnsureOpen(context.Background(), st, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 2, holds)
}
