package vouchers

import (
	"context"

	"github.com/google/uuid"
)

// Store persists vouchers and the numbering counters.
type Store interface {
	// NextSequence atomically increments and returns the counter for
	// (prefix, fiscalYear). fiscalYear is zero for globally sequenced prefixes.
	NextSequence(ctx context.Context, prefix string, fiscalYear int) (int64, error)
	InsertVoucher(ctx context.Context, v Voucher) error
	UpdateVoucher(ctx context.Context, v Voucher) error
	GetVoucher(ctx context.Context, id uuid.UUID) (Voucher, error)
	// LockVoucher reads the voucher holding a row lock until the transaction ends.
	LockVoucher(ctx context.Context, id uuid.UUID) (Voucher, error)
	DeleteVoucher(ctx context.Context, id uuid.UUID) error
	ListVouchers(ctx context.Context, filter Filter) ([]Voucher, error)
}
