package accounting

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/platform/httpx"
)

func newTestRouter(t *testing.T, f *farm) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc, nil).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httpx.ErrorBody {
	t.Helper()
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHandlerPostsTransactionVoucher(t *testing.T) {
	f := newFarm(t, "1000")
	h := newTestRouter(t, f)

	body := `{"kind":"transaction","status":"posted","type":"receipt","method":"cash","date":"2024-07-10",
		"settlementAccountId":"` + f.cash.ID.String() + `","total":"500",
		"lines":[{"accountId":"` + f.sales.ID.String() + `","amount":"500"}]}`
	rr := do(t, h, http.MethodPost, "/vouchers", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Number string `json:"number"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "RV-0001", resp.Data.Number)
	require.Equal(t, "POSTED", resp.Data.Status)
	require.True(t, f.balance(t, f.cash.ID).Equal(d("1500")))
}

func TestHandlerReportsUnbalancedJournal(t *testing.T) {
	f := newFarm(t, "1000")
	h := newTestRouter(t, f)

	body := `{"kind":"journal","status":"posted","date":"2024-07-10","total":"300","lines":[
		{"accountId":"` + f.feed.ID.String() + `","debit":"300"},
		{"accountId":"` + f.cash.ID.String() + `","credit":"200"}]}`
	rr := do(t, h, http.MethodPost, "/vouchers", body)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	errBody := decodeError(t, rr)
	require.False(t, errBody.Success)
	require.Equal(t, "unbalancedEntry", errBody.Code)
}

func TestHandlerRejectsMalformedRequests(t *testing.T) {
	f := newFarm(t, "1000")
	h := newTestRouter(t, f)

	rr := do(t, h, http.MethodPost, "/vouchers", `{"kind":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/vouchers", `{"kind":"journal","date":"10/07/2024","lines":[{}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodPost, "/accounts", `{"name":"Tractors","group":"machines","category":"Fixed"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "invalidGroup", decodeError(t, rr).Code)

	rr = do(t, h, http.MethodGet, "/accounts/not-a-uuid", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandlerStatusCodesForStateErrors(t *testing.T) {
	f := newFarm(t, "1000")
	h := newTestRouter(t, f)

	rr := do(t, h, http.MethodGet, "/vouchers/"+f.cash.ID.String(), "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodDelete, "/accounts/"+f.svc.SystemAccounts().RetainedEarnings.ID.String(), "")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "systemAccount", decodeError(t, rr).Code)
}

func TestHandlerAccountTreeAndLedger(t *testing.T) {
	f := newFarm(t, "1000")
	h := newTestRouter(t, f)

	rr := do(t, h, http.MethodPost, "/accounts", `{"name":"Orchard","parentId":"`+f.sales.ID.String()+`","openingBalance":"0"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/accounts?view=tree", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var tree struct {
		Data []struct {
			Code     string `json:"code"`
			Children []struct {
				Code string `json:"code"`
			} `json:"children"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tree))
	var found bool
	for _, root := range tree.Data {
		if root.Code == f.sales.Code {
			require.Len(t, root.Children, 1)
			require.Equal(t, f.sales.Code+"-01", root.Children[0].Code)
			found = true
		}
	}
	require.True(t, found)

	rr = do(t, h, http.MethodGet, "/accounts/"+f.cash.ID.String()+"/ledger?from=2024-07-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodGet, "/accounts/"+f.cash.ID.String()+"/ledger?from=July", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
