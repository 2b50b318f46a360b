package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/farmbooks/farmbooks/internal/accounting"
	closehttp "github.com/farmbooks/farmbooks/internal/close/http"
	"github.com/farmbooks/farmbooks/internal/observability"
	"github.com/farmbooks/farmbooks/internal/shared"
)

func memoryConfig() *Config {
	return &Config{
		AppEnv:          "test",
		RateLimitPerMin: 1000,
		Ledger: LedgerConfig{
			Store:                  StoreMemory,
			TxRetries:              3,
			RetainedEarningsCode:   "3001",
			BootstrapSystemAccount: true,
			FiscalYearStartMonth:   7,
		},
	}
}

func TestRouterServesHealthMetricsAndAPI(t *testing.T) {
	cfg := memoryConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger, err := OpenLedger(context.Background(), cfg, accounting.Options{Logger: logger})
	require.NoError(t, err)
	defer ledger.Close()

	router := NewRouter(RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountingHandler: accounting.NewHandler(logger, ledger.Service, nil),
		CloseHandler:      closehttp.NewHandler(logger, nil),
		Metrics:           observability.NewMetrics(),
		Ready:             ledger.Ready,
	})

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/v1/accounts"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Contains(t, rr.Body.String(), `"code":"3001"`)
}

func TestReadyzReportsStoreFailure(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: memoryConfig(),
		Ready:  func(*http.Request) error { return errors.New("db down") },
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestActorMiddleware(t *testing.T) {
	var seen string
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "  clerk-7 ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "clerk-7", seen)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "system", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, strings.Repeat("x", 100))
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, seen, 64)
}
