package reports

import (
	"context"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
)

// AccountLister reads a consistent snapshot of the chart of accounts.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]accounts.Account, error)
}

// Service builds read-only reports from live account balances.
type Service struct {
	source AccountLister
	cache  *Cache
}

// NewService constructs the report service. cache may be nil.
func NewService(source AccountLister, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// TrialBalance returns the cached trial balance.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	var out TrialBalance
	err := s.fetch(ctx, "trial_balance", &out, func(b []AccountBalance) any { return BuildTrialBalance(b) })
	return out, err
}

// ProfitAndLoss returns the cached profit and loss statement.
func (s *Service) ProfitAndLoss(ctx context.Context) (ProfitAndLoss, error) {
	var out ProfitAndLoss
	err := s.fetch(ctx, "profit_and_loss", &out, func(b []AccountBalance) any { return BuildProfitAndLoss(b) })
	return out, err
}

// BalanceSheet returns the cached balance sheet.
func (s *Service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	var out BalanceSheet
	err := s.fetch(ctx, "balance_sheet", &out, func(b []AccountBalance) any { return BuildBalanceSheet(b) })
	return out, err
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context, name string, dest any, build func([]AccountBalance) any) error {
	key, err := s.cache.BuildKey(ctx, "reports", name)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
		all, err := s.source.ListAccounts(ctx)
		if err != nil {
			return nil, err
		}
		return build(LeafBalances(all)), nil
	})
}
