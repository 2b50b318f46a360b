// Package mappings resolves the well-known system accounts the ledger relies on.
package mappings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

// DefaultRetainedEarningsCode is used when no code is configured.
const DefaultRetainedEarningsCode = "3001"

// Config names the system accounts by code.
type Config struct {
	RetainedEarningsCode string
	// Bootstrap creates missing system accounts instead of failing.
	Bootstrap bool
}

// SystemAccounts holds the accounts resolved once at startup.
type SystemAccounts struct {
	RetainedEarnings accounts.Account
}

// IDs returns the ids that must never be deleted or receive children.
func (s SystemAccounts) IDs() []uuid.UUID {
	return []uuid.UUID{s.RetainedEarnings.ID}
}

// Resolve looks up the configured accounts inside the caller's transaction.
func Resolve(ctx context.Context, st accounts.Store, cfg Config, now time.Time) (SystemAccounts, error) {
	code := strings.TrimSpace(cfg.RetainedEarningsCode)
	if code == "" {
		code = DefaultRetainedEarningsCode
	}
	acc, err := st.GetAccountByCode(ctx, code)
	switch {
	case err == nil:
	case shared.IsKind(err, shared.KindNotFound) && cfg.Bootstrap:
		acc, err = bootstrapRetainedEarnings(ctx, st, code, now)
		if err != nil {
			return SystemAccounts{}, err
		}
	default:
		return SystemAccounts{}, err
	}
	if acc.Group != accounts.GroupEquity {
		return SystemAccounts{}, shared.Validation("invalidSystemAccount", "retained earnings %s must be an equity account", code)
	}
	leaf, err := accounts.IsLeaf(ctx, st, acc.ID)
	if err != nil {
		return SystemAccounts{}, err
	}
	if !leaf {
		return SystemAccounts{}, shared.Validation("invalidSystemAccount", "retained earnings %s must be a leaf account", code)
	}
	return SystemAccounts{RetainedEarnings: acc}, nil
}

func bootstrapRetainedEarnings(ctx context.Context, st accounts.Store, code string, now time.Time) (accounts.Account, error) {
	if !strings.HasPrefix(code, accounts.GroupEquity.Prefix()) {
		return accounts.Account{}, shared.Validation("invalidSystemAccount", "retained earnings code %s must start with %s", code, accounts.GroupEquity.Prefix())
	}
	acc := accounts.Account{
		ID:             uuid.New(),
		Code:           code,
		Name:           "Retained Earnings",
		Group:          accounts.GroupEquity,
		Category:       "Retained Earnings",
		Nature:         accounts.NatureCredit,
		OpeningBalance: decimal.Zero,
		CurrentBalance: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := st.InsertAccount(ctx, acc); err != nil {
		return accounts.Account{}, err
	}
	return acc, nil
}

