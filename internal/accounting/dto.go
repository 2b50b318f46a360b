package accounting

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
)

const dateLayout = "2006-01-02"

var requestValidator = validator.New()

type createAccountRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Group          string          `json:"group"`
	Category       string          `json:"category" validate:"max=100"`
	Nature         string          `json:"nature"`
	ParentID       *uuid.UUID      `json:"parentId"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

func (r createAccountRequest) toInput() (accounts.CreateInput, error) {
	if err := requestValidator.Struct(r); err != nil {
		return accounts.CreateInput{}, requestError(err)
	}
	in := accounts.CreateInput{
		Name:           r.Name,
		Category:       r.Category,
		ParentID:       r.ParentID,
		OpeningBalance: r.OpeningBalance,
	}
	if r.ParentID == nil {
		group, ok := accounts.ParseGroup(r.Group)
		if !ok {
			return accounts.CreateInput{}, shared.Validation("invalidGroup", "group must be one of Assets, Liabilities, Equity, Income, Expense")
		}
		in.Group = group
	}
	if strings.TrimSpace(r.Nature) != "" {
		nature, ok := accounts.ParseNature(r.Nature)
		if !ok {
			return accounts.CreateInput{}, shared.Validation("invalidNature", "nature must be Debit or Credit")
		}
		in.Nature = nature
	}
	return in, nil
}

type createPartyRequest struct {
	Kind           string          `json:"kind" validate:"required"`
	Name           string          `json:"name" validate:"required,max=200"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

func (r createPartyRequest) toInput() (PartyInput, error) {
	if err := requestValidator.Struct(r); err != nil {
		return PartyInput{}, requestError(err)
	}
	kind, ok := parties.ParseKind(r.Kind)
	if !ok || !kind.Tracked() {
		return PartyInput{}, shared.Validation("invalidPartyKind", "kind must be CUSTOMER or SUPPLIER")
	}
	return PartyInput{Kind: kind, Name: r.Name, OpeningBalance: r.OpeningBalance}, nil
}

type voucherLineRequest struct {
	AccountID   uuid.UUID       `json:"accountId"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type voucherPartyRequest struct {
	ID   *uuid.UUID `json:"id"`
	Kind string     `json:"kind"`
	Name string     `json:"name"`
}

type voucherRequest struct {
	Kind                string               `json:"kind" validate:"required"`
	Status              string               `json:"status"`
	Type                string               `json:"type"`
	Date                string               `json:"date" validate:"required,datetime=2006-01-02"`
	Description         string               `json:"description"`
	Total               decimal.Decimal      `json:"total"`
	Method              string               `json:"method"`
	SettlementAccountID *uuid.UUID           `json:"settlementAccountId"`
	Party               *voucherPartyRequest `json:"party"`
	Lines               []voucherLineRequest `json:"lines" validate:"required,min=1"`
}

// toDraft converts the wire payload into the tagged union of its kind.
func (r voucherRequest) toDraft() (vouchers.Draft, error) {
	if err := requestValidator.Struct(r); err != nil {
		return nil, requestError(err)
	}
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return nil, shared.Validation("invalidDate", "date must be YYYY-MM-DD")
	}
	kind := vouchers.Kind(strings.ToUpper(strings.TrimSpace(r.Kind)))
	switch kind {
	case vouchers.KindJournal:
		d := vouchers.JournalDraft{Date: date, Description: r.Description, Total: r.Total}
		for _, l := range r.Lines {
			d.Lines = append(d.Lines, vouchers.JournalLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Description: l.Description})
		}
		return d, nil
	case vouchers.KindTransaction, vouchers.KindBatch:
		s := vouchers.Settled{
			Type:        vouchers.Type(strings.ToUpper(strings.TrimSpace(r.Type))),
			Date:        date,
			Method:      vouchers.Method(strings.ToUpper(strings.TrimSpace(r.Method))),
			Total:       r.Total,
			Description: r.Description,
		}
		if r.SettlementAccountID != nil {
			s.SettlementAccountID = *r.SettlementAccountID
		}
		if r.Party != nil {
			s.PartyID = r.Party.ID
			s.PartyName = r.Party.Name
			if strings.TrimSpace(r.Party.Kind) != "" {
				pk, ok := parties.ParseKind(r.Party.Kind)
				if !ok {
					return nil, shared.Validation("invalidPartyKind", "party kind must be CUSTOMER, SUPPLIER or OTHER")
				}
				s.PartyKind = pk
			}
		}
		for _, l := range r.Lines {
			s.Lines = append(s.Lines, vouchers.AmountLine{AccountID: l.AccountID, Amount: l.Amount, Description: l.Description})
		}
		if kind == vouchers.KindBatch {
			return vouchers.BatchDraft{Settled: s}, nil
		}
		return vouchers.TransactionDraft{Settled: s}, nil
	}
	return nil, shared.Validation("invalidKind", "kind must be JOURNAL, TRANSACTION or BATCH")
}

func (r voucherRequest) targetStatus() (vouchers.Status, error) {
	if strings.TrimSpace(r.Status) == "" {
		return vouchers.StatusDraft, nil
	}
	status, ok := vouchers.ParseStatus(r.Status)
	if !ok {
		return "", shared.Validation("invalidStatus", "status must be DRAFT or POSTED")
	}
	return status, nil
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func requestError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		if fe.Tag() == "required" || fe.Tag() == "min" {
			return shared.Validation("missingField", "%s is required", fe.Field())
		}
		return shared.Validation("invalidField", "%s is invalid", fe.Field())
	}
	return shared.Validation("invalidField", "%v", err)
}

type accountResponse struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Group          accounts.Group     `json:"group"`
	Category       string             `json:"category"`
	Nature         accounts.Nature    `json:"nature"`
	ParentID       *uuid.UUID         `json:"parentId,omitempty"`
	OpeningBalance decimal.Decimal    `json:"openingBalance"`
	CurrentBalance decimal.Decimal    `json:"currentBalance"`
	Children       []*accountResponse `json:"children,omitempty"`
}

func toAccountResponse(a accounts.Account) *accountResponse {
	return &accountResponse{
		ID:             a.ID,
		Code:           a.Code,
		Name:           a.Name,
		Group:          a.Group,
		Category:       a.Category,
		Nature:         a.Nature,
		ParentID:       a.ParentID,
		OpeningBalance: a.OpeningBalance,
		CurrentBalance: a.CurrentBalance,
	}
}

func toTreeResponse(nodes []*accounts.Node) []*accountResponse {
	out := make([]*accountResponse, 0, len(nodes))
	for _, n := range nodes {
		resp := toAccountResponse(n.Account)
		resp.Children = toTreeResponse(n.Children)
		out = append(out, resp)
	}
	return out
}

type partyResponse struct {
	ID             uuid.UUID       `json:"id"`
	Kind           parties.Kind    `json:"kind"`
	Name           string          `json:"name"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	History        []historyRow    `json:"history,omitempty"`
}

type historyRow struct {
	VoucherID     uuid.UUID       `json:"voucherId"`
	VoucherNumber string          `json:"voucherNumber"`
	Date          string          `json:"date"`
	Flow          parties.Flow    `json:"flow"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
}

func toPartyResponse(p parties.Party, rows []parties.HistoryRow) partyResponse {
	resp := partyResponse{ID: p.ID, Kind: p.Kind, Name: p.Name, CurrentBalance: p.CurrentBalance}
	for _, r := range rows {
		resp.History = append(resp.History, historyRow{
			VoucherID:     r.VoucherID,
			VoucherNumber: r.VoucherNumber,
			Date:          r.Date.Format(dateLayout),
			Flow:          r.Flow,
			Amount:        r.Amount,
			BalanceAfter:  r.BalanceAfter,
		})
	}
	return resp
}

type voucherLineResponse struct {
	AccountID   uuid.UUID        `json:"accountId"`
	Debit       *decimal.Decimal `json:"debit,omitempty"`
	Credit      *decimal.Decimal `json:"credit,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description string           `json:"description,omitempty"`
}

type voucherResponse struct {
	ID                  uuid.UUID             `json:"id"`
	Number              string                `json:"number"`
	Kind                vouchers.Kind         `json:"kind"`
	Type                vouchers.Type         `json:"type"`
	Status              vouchers.Status       `json:"status"`
	Date                string                `json:"date"`
	Description         string                `json:"description,omitempty"`
	Total               decimal.Decimal       `json:"total"`
	Method              vouchers.Method       `json:"method,omitempty"`
	SettlementAccountID *uuid.UUID            `json:"settlementAccountId,omitempty"`
	PartyID             *uuid.UUID            `json:"partyId,omitempty"`
	PartyKind           parties.Kind          `json:"partyKind,omitempty"`
	PartyName           string                `json:"partyName,omitempty"`
	Lines               []voucherLineResponse `json:"lines"`
	CreatedBy           string                `json:"createdBy"`
	PostedAt            *time.Time            `json:"postedAt,omitempty"`
}

func toVoucherResponse(v vouchers.Voucher) voucherResponse {
	resp := voucherResponse{
		ID:                  v.ID,
		Number:              v.Number,
		Kind:                v.Kind,
		Type:                v.Type,
		Status:              v.Status,
		Date:                v.Date.Format(dateLayout),
		Description:         v.Description,
		Total:               v.Total,
		Method:              v.Method,
		SettlementAccountID: v.SettlementAccountID,
		PartyID:             v.Party.ID,
		PartyKind:           v.Party.Kind,
		PartyName:           v.Party.Name,
		CreatedBy:           v.CreatedBy,
		PostedAt:            v.PostedAt,
	}
	for _, l := range v.Lines {
		line := voucherLineResponse{AccountID: l.AccountID, Description: l.Description}
		if v.Kind == vouchers.KindJournal {
			debit, credit := l.Debit, l.Credit
			line.Debit, line.Credit = &debit, &credit
		} else {
			amount := l.Amount
			line.Amount = &amount
		}
		resp.Lines = append(resp.Lines, line)
	}
	return resp
}

type entryResponse struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"accountId"`
	Date         string          `json:"date"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Running      decimal.Decimal `json:"running"`
	Reference    string          `json:"reference"`
	SourceType   string          `json:"sourceType"`
	SourceID     uuid.UUID       `json:"sourceId"`
	Description  string          `json:"description,omitempty"`
}

type statementResponse struct {
	Account     *accountResponse `json:"account"`
	From        string           `json:"from,omitempty"`
	To          string           `json:"to,omitempty"`
	Opening     decimal.Decimal  `json:"opening"`
	Entries     []entryResponse  `json:"entries"`
	TotalDebit  decimal.Decimal  `json:"totalDebit"`
	TotalCredit decimal.Decimal  `json:"totalCredit"`
	Closing     decimal.Decimal  `json:"closing"`
}

func toStatementResponse(st ledger.Statement) statementResponse {
	resp := statementResponse{
		Account:     toAccountResponse(st.Account),
		Opening:     st.Opening,
		TotalDebit:  st.TotalDebit,
		TotalCredit: st.TotalCredit,
		Closing:     st.Closing,
		Entries:     make([]entryResponse, 0, len(st.Lines)),
	}
	if !st.Range.From.IsZero() {
		resp.From = st.Range.From.Format(dateLayout)
	}
	if !st.Range.To.IsZero() {
		resp.To = st.Range.To.Format(dateLayout)
	}
	for _, l := range st.Lines {
		resp.Entries = append(resp.Entries, entryResponse{
			ID:           l.ID,
			AccountID:    l.AccountID,
			Date:         l.Date.Format(dateLayout),
			Debit:        l.Debit,
			Credit:       l.Credit,
			BalanceAfter: l.BalanceAfter,
			Running:      l.Running,
			Reference:    l.Reference,
			SourceType:   l.SourceType,
			SourceID:     l.SourceID,
			Description:  l.Description,
		})
	}
	return resp
}

type periodResponse struct {
	ID             uuid.UUID       `json:"id"`
	StartDate      string          `json:"startDate,omitempty"`
	EndDate        string          `json:"endDate"`
	Status         periods.Status  `json:"status"`
	NetIncome      decimal.Decimal `json:"netIncome"`
	ClosingVoucher *uuid.UUID      `json:"closingVoucherId,omitempty"`
	ClosedBy       string          `json:"closedBy,omitempty"`
	ClosedAt       *time.Time      `json:"closedAt,omitempty"`
}

// ToPeriodResponse renders a period for JSON clients.
func ToPeriodResponse(p periods.Period) any {
	resp := periodResponse{
		ID:             p.ID,
		EndDate:        p.EndDate.Format(dateLayout),
		Status:         p.Status,
		NetIncome:      p.NetIncome,
		ClosingVoucher: p.ClosingVoucher,
		ClosedBy:       p.ClosedBy,
		ClosedAt:       p.ClosedAt,
	}
	if !p.StartDate.IsZero() {
		resp.StartDate = p.StartDate.Format(dateLayout)
	}
	return resp
}
