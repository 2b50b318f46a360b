// Package accounting runs the ledger's application services: chart of
// accounts, parties, voucher lifecycle and ledger statements, each mutation
// inside one repository transaction.
package accounting

import (
	"context"

	"github.com/farmbooks/farmbooks/internal/accounting/posting"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	internalShared "github.com/farmbooks/farmbooks/internal/shared"
)

// TxRepository exposes every store the ledger touches within one transaction.
type TxRepository interface {
	posting.Tx
	vouchers.Store
	RecordAudit(ctx context.Context, log internalShared.AuditLog) error
}

// RepositoryPort abstracts transactional repository behaviour. fn runs in an
// isolated transaction that commits only when fn returns nil.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
