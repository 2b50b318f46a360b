package mappings_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/mappings"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

var now = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func resolve(t *testing.T, repo *accounting.MemoryRepository, cfg mappings.Config) (mappings.SystemAccounts, error) {
	t.Helper()
	var out mappings.SystemAccounts
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx accounting.TxRepository) error {
		var err error
		out, err = mappings.Resolve(ctx, tx, cfg, now)
		return err
	})
	return out, err
}

func TestResolveBootstrapsRetainedEarnings(t *testing.T) {
	repo := accounting.NewMemoryRepository()
	sys, err := resolve(t, repo, mappings.Config{Bootstrap: true})
	require.NoError(t, err)
	require.Equal(t, mappings.DefaultRetainedEarningsCode, sys.RetainedEarnings.Code)
	require.Equal(t, accounts.GroupEquity, sys.RetainedEarnings.Group)
	require.Equal(t, []uuid.UUID{sys.RetainedEarnings.ID}, sys.IDs())

	again, err := resolve(t, repo, mappings.Config{})
	require.NoError(t, err)
	require.Equal(t, sys.RetainedEarnings.ID, again.RetainedEarnings.ID)
}

func TestResolveWithoutBootstrapFails(t *testing.T) {
	_, err := resolve(t, accounting.NewMemoryRepository(), mappings.Config{RetainedEarningsCode: "3005"})
	require.True(t, shared.IsKind(err, shared.KindNotFound), "got %v", err)
}

func TestResolveRejectsNonEquityCode(t *testing.T) {
	_, err := resolve(t, accounting.NewMemoryRepository(), mappings.Config{RetainedEarningsCode: "1001", Bootstrap: true})
	require.Equal(t, "invalidSystemAccount", shared.CodeOf(err))
}

func TestResolveRejectsNonEquityAccount(t *testing.T) {
	repo := accounting.NewMemoryRepository()
	require.NoError(t, repo.WithTx(context.Background(), func(ctx context.Context, tx accounting.TxRepository) error {
		return tx.InsertAccount(ctx, accounts.Account{
			ID:     uuid.New(),
			Code:   "3009",
			Name:   "Misfiled",
			Group:  accounts.GroupAssets,
			Nature: accounts.NatureDebit,
		})
	}))
	_, err := resolve(t, repo, mappings.Config{RetainedEarningsCode: "3009"})
	require.Equal(t, "invalidSystemAccount", shared.CodeOf(err))
}
