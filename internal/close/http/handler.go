package closehttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/close"
	"github.com/farmbooks/farmbooks/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

type closeService interface {
	ClosePeriod(ctx context.Context, endDate time.Time) (close.Result, error)
	Preview(ctx context.Context, endDate time.Time) (close.Plan, error)
}

// Handler wires HTTP endpoints for closing accounting periods.
type Handler struct {
	logger  *slog.Logger
	service closeService
}

// NewHandler constructs a close HTTP handler.
func NewHandler(logger *slog.Logger, service closeService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/periods/close", h.closePeriod)
	r.Get("/periods/close-preview", h.preview)
}

type closeRequest struct {
	EndDate string `json:"endDate"`
}

type planLine struct {
	AccountID uuid.UUID       `json:"accountId"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

type planResponse struct {
	StartDate    string          `json:"startDate,omitempty"`
	EndDate      string          `json:"endDate"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	NetIncome    decimal.Decimal `json:"netIncome"`
	Lines        []planLine      `json:"lines"`
}

type closeResponse struct {
	Period         any             `json:"period"`
	ClosingVoucher string          `json:"closingVoucher,omitempty"`
	Plan           planResponse    `json:"plan"`
	TotalDebit     decimal.Decimal `json:"trialBalanceDebit"`
	TotalCredit    decimal.Decimal `json:"trialBalanceCredit"`
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.ClosePeriod(r.Context(), end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := closeResponse{
		Period:      accounting.ToPeriodResponse(res.Period),
		Plan:        toPlanResponse(res.Plan),
		TotalDebit:  res.TrialBalance.TotalDebit,
		TotalCredit: res.TrialBalance.TotalCredit,
	}
	if res.Voucher != nil {
		out.ClosingVoucher = res.Voucher.Number
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := h.service.Preview(r.Context(), end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, toPlanResponse(plan))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error("period close request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, shared.Validation("missingField", "endDate is required")
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, shared.Validation("invalidDate", "endDate must be YYYY-MM-DD")
	}
	return t, nil
}

func toPlanResponse(p close.Plan) planResponse {
	out := planResponse{
		EndDate:      p.End.Format(dateLayout),
		TotalIncome:  p.TotalIncome,
		TotalExpense: p.TotalExpense,
		NetIncome:    p.NetIncome,
		Lines:        make([]planLine, 0, len(p.Lines)),
	}
	if !p.Start.IsZero() {
		out.StartDate = p.Start.Format(dateLayout)
	}
	for _, l := range p.Lines {
		out.Lines = append(out.Lines, planLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit})
	}
	return out
}
