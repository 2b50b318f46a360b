package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/mappings"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, err := accounting.NewService(ctx, accounting.NewMemoryRepository(), mappings.Config{
		RetainedEarningsCode: mappings.DefaultRetainedEarningsCode,
		Bootstrap:            true,
	}, accounting.Options{})
	require.NoError(t, err)

	created, err := seed(ctx, svc)
	require.NoError(t, err)
	require.Equal(t, 12, created)

	created, err = seed(ctx, svc)
	require.NoError(t, err)
	require.Zero(t, created)

	all, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 11)

	byName := map[string]accounts.Account{}
	for _, acc := range all {
		byName[acc.Name] = acc
	}
	sales := byName["Sales"]
	require.Equal(t, sales.ID, *byName["Milk Sales"].ParentID)
	require.Equal(t, sales.Code+"-02", byName["Crop Sales"].Code)
	require.Equal(t, accounts.NatureDebit, byName["Feed Expense"].Nature)
	require.True(t, byName["Bank"].CurrentBalance.Equal(byName["Bank"].OpeningBalance))
}
