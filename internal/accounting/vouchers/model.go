// Package vouchers models journal, transaction and batch vouchers and their lifecycle.
package vouchers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/parties"
)

// Kind enumerates voucher shapes.
type Kind string

const (
	KindJournal     Kind = "JOURNAL"
	KindTransaction Kind = "TRANSACTION"
	KindBatch       Kind = "BATCH"
)

// Type is the business direction of a voucher.
type Type string

const (
	TypeJournal Type = "JOURNAL"
	TypePayment Type = "PAYMENT"
	TypeReceipt Type = "RECEIPT"
)

// Status enumerates lifecycle states.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
	StatusVoid   Status = "VOID"
)

// Method is the settlement channel of a transaction or batch voucher.
type Method string

const (
	MethodCash Method = "CASH"
	MethodBank Method = "BANK"
)

// Line is one account line. Journal lines use Debit/Credit; transaction and
// batch lines use Amount and take their side from the voucher type.
type Line struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Amount      decimal.Decimal
	Description string
}

// PartyRef names the counterparty of a settled voucher.
type PartyRef struct {
	ID   *uuid.UUID
	Kind parties.Kind
	Name string
}

// Voucher is the persisted voucher aggregate.
type Voucher struct {
	ID                  uuid.UUID
	Number              string
	Kind                Kind
	Type                Type
	Date                time.Time
	Status              Status
	Description         string
	Total               decimal.Decimal
	Method              Method
	SettlementAccountID *uuid.UUID
	Party               PartyRef
	Lines               []Line
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	PostedAt            *time.Time
}

// Settled reports whether the voucher carries a cash or bank leg.
func (v Voucher) Settled() bool {
	return v.Kind == KindTransaction || v.Kind == KindBatch
}

// AccountIDs lists every account the voucher references, settlement included.
func (v Voucher) AccountIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(v.Lines)+1)
	for _, l := range v.Lines {
		ids = append(ids, l.AccountID)
	}
	if v.SettlementAccountID != nil {
		ids = append(ids, *v.SettlementAccountID)
	}
	return ids
}

// Filter narrows voucher listings.
type Filter struct {
	Kind   Kind
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
