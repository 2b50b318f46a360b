// Package parties updates customer and supplier balances touched by postings.
package parties

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

// Kind enumerates counterparties of a transaction voucher.
type Kind string

const (
	KindCustomer Kind = "CUSTOMER"
	KindSupplier Kind = "SUPPLIER"
	KindOther    Kind = "OTHER"
)

// Flow is the cash direction of the voucher from the farm's side.
type Flow string

const (
	FlowPayment Flow = "PAYMENT"
	FlowReceipt Flow = "RECEIPT"
)

// Party is the slice of a customer or supplier record the ledger maintains.
type Party struct {
	ID             uuid.UUID
	Kind           Kind
	Name           string
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HistoryRow is one append-only transaction history line of a party.
type HistoryRow struct {
	ID            uuid.UUID
	PartyID       uuid.UUID
	VoucherID     uuid.UUID
	VoucherNumber string
	Date          time.Time
	Flow          Flow
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

// Store persists parties and their history.
type Store interface {
	GetParty(ctx context.Context, id uuid.UUID) (Party, error)
	ListParties(ctx context.Context, kind Kind) ([]Party, error)
	InsertParty(ctx context.Context, party Party) error
	UpdatePartyBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, at time.Time) error
	InsertPartyHistory(ctx context.Context, row HistoryRow) error
	ListPartyHistory(ctx context.Context, id uuid.UUID) ([]HistoryRow, error)
}

// ParseKind canonicalises request values.
func ParseKind(raw string) (Kind, bool) {
	k := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	switch k {
	case KindCustomer, KindSupplier, KindOther:
		return k, true
	}
	return k, false
}

// Tracked reports whether balances are kept for the kind.
func (k Kind) Tracked() bool {
	return k == KindCustomer || k == KindSupplier
}

// Delta returns the signed change applied to a party balance. A customer
// receipt settles receivables; a supplier payment settles payables.
func Delta(kind Kind, flow Flow, total decimal.Decimal) decimal.Decimal {
	switch {
	case kind == KindCustomer && flow == FlowReceipt:
		return total.Neg()
	case kind == KindCustomer && flow == FlowPayment:
		return total
	case kind == KindSupplier && flow == FlowPayment:
		return total.Neg()
	case kind == KindSupplier && flow == FlowReceipt:
		return total
	}
	return decimal.Zero
}

// Create registers a party.
func Create(ctx context.Context, st Store, kind Kind, name string, opening decimal.Decimal, now time.Time) (Party, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Party{}, shared.Validation("nameRequired", "party name required")
	}
	if !kind.Tracked() {
		return Party{}, shared.Validation("invalidPartyKind", "party kind must be CUSTOMER or SUPPLIER")
	}
	p := Party{ID: uuid.New(), Kind: kind, Name: name, CurrentBalance: opening.Round(2), CreatedAt: now, UpdatedAt: now}
	if err := st.InsertParty(ctx, p); err != nil {
		return Party{}, err
	}
	return p, nil
}

// Settlement describes the posting side effect on a party.
type Settlement struct {
	PartyID       uuid.UUID
	Kind          Kind
	Flow          Flow
	Amount        decimal.Decimal
	VoucherID     uuid.UUID
	VoucherNumber string
	Date          time.Time
}

// Apply adjusts the party balance and appends one history row.
func Apply(ctx context.Context, st Store, s Settlement, now time.Time) (HistoryRow, error) {
	party, err := st.GetParty(ctx, s.PartyID)
	if err != nil {
		return HistoryRow{}, err
	}
	if party.Kind != s.Kind {
		return HistoryRow{}, shared.Validation("partyKindMismatch", "party %s is a %s, not a %s", party.ID, party.Kind, s.Kind)
	}
	balance := party.CurrentBalance.Add(Delta(s.Kind, s.Flow, s.Amount))
	if err := st.UpdatePartyBalance(ctx, party.ID, balance, now); err != nil {
		return HistoryRow{}, err
	}
	row := HistoryRow{
		ID:            uuid.New(),
		PartyID:       party.ID,
		VoucherID:     s.VoucherID,
		VoucherNumber: s.VoucherNumber,
		Date:          s.Date,
		Flow:          s.Flow,
		Amount:        s.Amount,
		BalanceAfter:  balance,
		CreatedAt:     now,
	}
	if err := st.InsertPartyHistory(ctx, row); err != nil {
		return HistoryRow{}, err
	}
	return row, nil
}
