package accounting

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/accounting/reports"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	"github.com/farmbooks/farmbooks/internal/platform/httpx"
	internalShared "github.com/farmbooks/farmbooks/internal/shared"
)

// Handler wires ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	reports *reports.Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, reportService *reports.Service) *Handler {
	return &Handler{logger: logger, service: service, reports: reportService}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Get("/{id}", h.getAccount)
		r.Delete("/{id}", h.deleteAccount)
		r.Get("/{id}/ledger", h.accountLedger)
	})
	r.Route("/parties", func(r chi.Router) {
		r.Get("/", h.listParties)
		r.Post("/", h.createParty)
		r.Get("/{id}", h.getParty)
	})
	r.Route("/vouchers", func(r chi.Router) {
		r.Get("/", h.listVouchers)
		r.Post("/", h.createVoucher)
		r.Get("/{id}", h.getVoucher)
		r.Put("/{id}", h.updateVoucher)
		r.Patch("/{id}/status", h.updateVoucherStatus)
		r.Delete("/{id}", h.deleteVoucher)
	})
	r.Get("/periods", h.listPeriods)
	if h.reports != nil {
		r.Get("/reports/trial-balance", h.trialBalance)
		r.Get("/reports/profit-loss", h.profitAndLoss)
		r.Get("/reports/balance-sheet", h.balanceSheet)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error("ledger request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, shared.Validation("invalidId", "invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, shared.Validation("invalidDate", "%s must be YYYY-MM-DD", key)
	}
	return t, nil
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == "tree" {
		nodes, err := h.service.AccountTree(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.OK(w, http.StatusOK, toTreeResponse(nodes))
		return
	}
	all, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]*accountResponse, 0, len(all))
	for _, a := range all {
		out = append(out, toAccountResponse(a))
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	acc, err := h.service.CreateAccount(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	acc, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) accountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.service.Statement(r.Context(), id, ledger.Range{From: from, To: to})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, toStatementResponse(st))
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	var kind parties.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := parties.ParseKind(raw)
		if !ok {
			h.fail(w, r, shared.Validation("invalidPartyKind", "unknown party kind %q", raw))
			return
		}
		kind = k
	}
	list, err := h.service.ListParties(r.Context(), kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]partyResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPartyResponse(p, nil))
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.CreateParty(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toPartyResponse(p, nil))
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, rows, err := h.service.PartyHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, toPartyResponse(p, rows))
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter vouchers.Filter
	if raw := q.Get("kind"); raw != "" {
		filter.Kind = vouchers.Kind(raw)
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := vouchers.ParseStatus(raw)
		if !ok {
			h.fail(w, r, shared.Validation("invalidStatus", "unknown status %q", raw))
			return
		}
		filter.Status = status
	}
	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	}
	page := internalShared.PageFromQuery(q)
	filter.Limit = page.Size
	filter.Offset = page.Offset()

	list, err := h.service.ListVouchers(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]voucherResponse, 0, len(list))
	for _, v := range list {
		out = append(out, toVoucherResponse(v))
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	target, err := req.targetStatus()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.service.CreateVoucher(r.Context(), draft, target)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toVoucherResponse(v))
}

func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.service.GetVoucher(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, toVoucherResponse(v))
}

func (h *Handler) updateVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.service.UpdateDraft(r.Context(), id, draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, toVoucherResponse(v))
}

func (h *Handler) updateVoucherStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	if err := requestValidator.Struct(req); err != nil {
		h.fail(w, r, requestError(err))
		return
	}
	status, ok := vouchers.ParseStatus(req.Status)
	if !ok {
		h.fail(w, r, shared.Validation("invalidStatus", "unknown status %q", req.Status))
		return
	}
	v, err := h.service.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, toVoucherResponse(v))
}

func (h *Handler) deleteVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteVoucher(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPeriods(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]any, 0, len(list))
	for _, p := range list {
		out = append(out, ToPeriodResponse(p))
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.reports.TrialBalance(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, tb)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	pl, err := h.reports.ProfitAndLoss(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, pl)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	bs, err := h.reports.BalanceSheet(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, bs)
}
