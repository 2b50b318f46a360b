package vouchers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
)

var validate = validator.New()

// Draft is the request payload of one voucher kind. Only the types in this
// package implement it.
type Draft interface {
	Kind() Kind
	toVoucher() (Voucher, error)
}

// JournalLine carries an explicit debit or credit.
type JournalLine struct {
	AccountID   uuid.UUID `validate:"required"`
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string `validate:"max=255"`
}

// JournalDraft is a general journal voucher request.
type JournalDraft struct {
	Date        time.Time `validate:"required"`
	Description string    `validate:"max=500"`
	Total       decimal.Decimal
	Lines       []JournalLine `validate:"required,min=1,dive"`
}

// AmountLine carries a single amount whose side follows the voucher type.
type AmountLine struct {
	AccountID   uuid.UUID `validate:"required"`
	Amount      decimal.Decimal
	Description string `validate:"max=255"`
}

// Settled holds the fields shared by transaction and batch requests.
type Settled struct {
	Type                Type      `validate:"required,oneof=PAYMENT RECEIPT"`
	Date                time.Time `validate:"required"`
	Method              Method    `validate:"required,oneof=CASH BANK"`
	SettlementAccountID uuid.UUID `validate:"required"`
	PartyID             *uuid.UUID
	PartyKind           parties.Kind
	PartyName           string `validate:"max=200"`
	Total               decimal.Decimal
	Description         string       `validate:"max=500"`
	Lines               []AmountLine `validate:"required,min=1,dive"`
}

// TransactionDraft is a cash or bank voucher request.
type TransactionDraft struct {
	Settled
}

// BatchDraft is a multi-line cash or bank voucher numbered per fiscal year.
type BatchDraft struct {
	Settled
}

func (JournalDraft) Kind() Kind     { return KindJournal }
func (TransactionDraft) Kind() Kind { return KindTransaction }
func (BatchDraft) Kind() Kind       { return KindBatch }

// Normalize validates a draft and converts it into an unnumbered voucher.
func Normalize(d Draft) (Voucher, error) {
	if d == nil {
		return Voucher{}, shared.Validation("missingField", "voucher payload required")
	}
	if err := validate.Struct(d); err != nil {
		return Voucher{}, fieldError(err)
	}
	return d.toVoucher()
}

func (d JournalDraft) toVoucher() (Voucher, error) {
	v := Voucher{
		Kind:        KindJournal,
		Type:        TypeJournal,
		Date:        periods.Day(d.Date),
		Description: strings.TrimSpace(d.Description),
		Total:       d.Total.Round(2),
		Lines:       make([]Line, 0, len(d.Lines)),
	}
	for i, l := range d.Lines {
		debit, credit := l.Debit.Round(2), l.Credit.Round(2)
		if debit.IsNegative() || credit.IsNegative() {
			return Voucher{}, shared.Validation("negativeAmount", "line %d has a negative amount", i+1)
		}
		if debit.IsPositive() == credit.IsPositive() {
			return Voucher{}, shared.Validation("debitCreditExclusive", "line %d needs exactly one of debit or credit", i+1)
		}
		v.Lines = append(v.Lines, Line{
			AccountID:   l.AccountID,
			Debit:       debit,
			Credit:      credit,
			Amount:      debit.Add(credit),
			Description: strings.TrimSpace(l.Description),
		})
	}
	if !v.Total.IsPositive() {
		return Voucher{}, shared.Validation("totalRequired", "voucher total must be positive")
	}
	return v, nil
}

func (d TransactionDraft) toVoucher() (Voucher, error) {
	return d.Settled.toVoucher(KindTransaction)
}

func (d BatchDraft) toVoucher() (Voucher, error) {
	return d.Settled.toVoucher(KindBatch)
}

func (s Settled) toVoucher(kind Kind) (Voucher, error) {
	settlement := s.SettlementAccountID
	v := Voucher{
		Kind:                kind,
		Type:                s.Type,
		Date:                periods.Day(s.Date),
		Description:         strings.TrimSpace(s.Description),
		Total:               s.Total.Round(2),
		Method:              s.Method,
		SettlementAccountID: &settlement,
		Lines:               make([]Line, 0, len(s.Lines)),
	}
	for i, l := range s.Lines {
		amt := l.Amount.Round(2)
		if !amt.IsPositive() {
			return Voucher{}, shared.Validation("invalidAmount", "line %d amount must be positive", i+1)
		}
		v.Lines = append(v.Lines, Line{AccountID: l.AccountID, Amount: amt, Description: strings.TrimSpace(l.Description)})
	}
	if !v.Total.IsPositive() {
		return Voucher{}, shared.Validation("totalRequired", "voucher total must be positive")
	}

	kindName := string(s.PartyKind)
	if kindName == "" {
		kindName = string(parties.KindOther)
	}
	pk, ok := parties.ParseKind(kindName)
	if !ok {
		return Voucher{}, shared.Validation("invalidPartyKind", "unknown party kind %q", s.PartyKind)
	}
	if pk.Tracked() && s.PartyID == nil {
		return Voucher{}, shared.Validation("missingField", "%s voucher requires a party id", strings.ToLower(string(pk)))
	}
	v.Party = PartyRef{ID: s.PartyID, Kind: pk, Name: strings.TrimSpace(s.PartyName)}
	if !pk.Tracked() {
		v.Party.ID = nil
	}
	return v, nil
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		code := "invalidField"
		if fe.Tag() == "required" {
			code = "missingField"
		}
		return shared.Validation(code, "%s failed %s validation", fe.Namespace(), fe.Tag())
	}
	return shared.Validation("invalidField", "%v", err)
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
