package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the transaction-scoped persistence the account tree needs.
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]Account, error)
	ListRootCodes(ctx context.Context, prefix string) ([]string, error)
	InsertAccount(ctx context.Context, account Account) error
	UpdateAccountBalances(ctx context.Context, id uuid.UUID, opening, current decimal.Decimal) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	AccountInUse(ctx context.Context, id uuid.UUID) (bool, error)
	AccountHasEntries(ctx context.Context, id uuid.UUID) (bool, error)
	// LockAccounts takes row locks in ascending id order.
	LockAccounts(ctx context.Context, ids []uuid.UUID) error
}
