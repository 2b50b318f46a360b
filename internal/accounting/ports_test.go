package accounting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
)

func TestPostingOutcomesReachObserver(t *testing.T) {
	ctrl := gomock.NewController(t)
	observer := NewMockPostingObserver(ctrl)
	cache := NewMockCacheInvalidator(ctrl)
	cache.EXPECT().Invalidate(gomock.Any()).Return(nil).AnyTimes()

	f := newFarmWith(t, "100", Options{Observer: observer, Cache: cache})

	gomock.InOrder(
		observer.EXPECT().ObservePosting("TRANSACTION", "ok"),
		observer.EXPECT().ObservePosting("TRANSACTION", "insufficient_balance"),
	)
	_, err := f.svc.CreateVoucher(context.Background(), receipt(f.cash.ID, f.sales.ID, "50", day(2024, 7, 10)), vouchers.StatusPosted)
	require.NoError(t, err)
	_, err = f.svc.CreateVoucher(context.Background(), payment(f.cash.ID, f.feed.ID, "500", day(2024, 7, 10)), vouchers.StatusPosted)
	require.ErrorIs(t, err, shared.ErrInsufficientBalance)
}

func TestDraftsAreNotObserved(t *testing.T) {
	ctrl := gomock.NewController(t)
	observer := NewMockPostingObserver(ctrl)
	f := newFarmWith(t, "100", Options{Observer: observer})

	observer.EXPECT().ObservePosting(gomock.Any(), gomock.Any()).Times(0)
	_, err := f.svc.CreateVoucher(context.Background(), receipt(f.cash.ID, f.sales.ID, "50", day(2024, 7, 10)), vouchers.StatusDraft)
	require.NoError(t, err)
}

func TestCommittedChangesInvalidateCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := NewMockCacheInvalidator(ctrl)
	// one per account created by the fixture
	cache.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(4)
	f := newFarmWith(t, "100", Options{Cache: cache})

	cache.EXPECT().Invalidate(gomock.Any()).Return(errors.New("redis down")).Times(1)
	_, err := f.svc.CreateVoucher(context.Background(), receipt(f.cash.ID, f.sales.ID, "50", day(2024, 7, 10)), vouchers.StatusPosted)
	require.NoError(t, err, "cache failures never fail a committed posting")
}

func TestRetriesAreObserved(t *testing.T) {
	ctrl := gomock.NewController(t)
	observer := NewMockPostingObserver(ctrl)
	repo := &flakyRepo{RepositoryPort: NewMemoryRepository()}
	svc := newService(t, repo, Options{Retries: 3, Observer: observer})

	repo.calls, repo.failures = 0, 2
	observer.EXPECT().ObserveRetry().Times(2)
	require.NoError(t, svc.Transact(context.Background(), func(context.Context, TxRepository) error { return nil }))
}
