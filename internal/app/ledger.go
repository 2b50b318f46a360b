package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/mappings"
	"github.com/farmbooks/farmbooks/internal/platform/db"
)

// Ledger is the accounting service bound to the configured store.
type Ledger struct {
	Service *accounting.Service
	pool    *pgxpool.Pool
}

// OpenLedger selects the repository from LEDGER_STORE and resolves the
// system accounts. opts.Retries and opts.FiscalYearStartMonth come from cfg.
func OpenLedger(ctx context.Context, cfg *Config, opts accounting.Options) (*Ledger, error) {
	var (
		repo accounting.RepositoryPort
		pool *pgxpool.Pool
	)
	switch cfg.Ledger.Store {
	case StoreMemory:
		repo = accounting.NewMemoryRepository()
	default:
		var err error
		pool, err = db.New(ctx, db.PoolConfig{
			DSN:               cfg.PGDSN,
			MaxConns:          cfg.PGMaxConns,
			HealthCheckPeriod: cfg.PGHealthCheck,
		})
		if err != nil {
			return nil, err
		}
		repo = accounting.NewRepository(pool)
	}

	opts.Retries = cfg.Ledger.TxRetries
	opts.FiscalYearStartMonth = cfg.FiscalStart()
	svc, err := accounting.NewService(ctx, repo, mappings.Config{
		RetainedEarningsCode: cfg.Ledger.RetainedEarningsCode,
		Bootstrap:            cfg.Ledger.BootstrapSystemAccount,
	}, opts)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}
	return &Ledger{Service: svc, pool: pool}, nil
}

// Ready pings the database when the ledger is backed by PostgreSQL.
func (l *Ledger) Ready(r *http.Request) error {
	if l == nil || l.pool == nil {
		return nil
	}
	return l.pool.Ping(r.Context())
}

// Close releases the connection pool.
func (l *Ledger) Close() {
	if l != nil && l.pool != nil {
		l.pool.Close()
	}
}
