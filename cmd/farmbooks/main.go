package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/reports"
	"github.com/farmbooks/farmbooks/internal/app"
	"github.com/farmbooks/farmbooks/internal/close"
	closehttp "github.com/farmbooks/farmbooks/internal/close/http"
	"github.com/farmbooks/farmbooks/internal/observability"
	"github.com/farmbooks/farmbooks/internal/platform/cache"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 {
		os.Exit(runCommand(ctx, cfg, os.Args[1:]))
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache and close lock will fail", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)

	ledger, err := app.OpenLedger(ctx, cfg, accounting.Options{
		Cache:    reportCache,
		Observer: metrics,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("open ledger", slog.String("store", cfg.Ledger.Store), slog.Any("error", err))
		os.Exit(1)
	}
	defer ledger.Close()

	reportService := reports.NewService(ledger.Service, reportCache)
	closeService := close.NewService(ledger.Service, redisClient, cfg.CloseLockTTL, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountingHandler: accounting.NewHandler(logger, ledger.Service, reportService),
		CloseHandler:      closehttp.NewHandler(logger, closeService),
		Metrics:           metrics,
		Ready:             ledger.Ready,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.Ledger.Store),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
