package accounting

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/mappings"
	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/posting"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	internalShared "github.com/farmbooks/farmbooks/internal/shared"
)

// DefaultTxRetries bounds whole-transaction retries on concurrency conflicts.
const DefaultTxRetries = 3

// Options carries the optional collaborators of Service.
type Options struct {
	Retries              int
	FiscalYearStartMonth time.Month
	Cache                CacheInvalidator
	Observer             PostingObserver
	Logger               *slog.Logger
	// Now overrides the clock, including for the system account bootstrap.
	Now func() time.Time
}

// Service coordinates the chart of accounts, parties and the voucher lifecycle.
type Service struct {
	repo     RepositoryPort
	tree     *accounts.Tree
	engine   *posting.Engine
	numberer vouchers.Numberer
	system   mappings.SystemAccounts
	cache    CacheInvalidator
	observer PostingObserver
	logger   *slog.Logger
	retries  int
	now      func() time.Time
}

// NewService resolves the system accounts once and returns a ready service.
func NewService(ctx context.Context, repo RepositoryPort, cfg mappings.Config, opts Options) (*Service, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var system mappings.SystemAccounts
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		resolved, err := mappings.Resolve(ctx, tx, cfg, now())
		if err != nil {
			return err
		}
		system = resolved
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch {
	case opts.Retries < 0:
		opts.Retries = 0
	case opts.Retries == 0:
		opts.Retries = DefaultTxRetries
	}
	if opts.FiscalYearStartMonth < time.January || opts.FiscalYearStartMonth > time.December {
		opts.FiscalYearStartMonth = time.July
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tree := accounts.NewTree(system.IDs()...)
	svc := &Service{
		repo:     repo,
		tree:     tree,
		engine:   posting.NewEngine(tree, system.RetainedEarnings.ID),
		numberer: vouchers.Numberer{StartMonth: opts.FiscalYearStartMonth},
		system:   system,
		cache:    opts.Cache,
		observer: opts.Observer,
		logger:   logger,
		retries:  opts.Retries,
		now:      time.Now,
	}
	if opts.Now != nil {
		svc.WithNow(opts.Now)
	}
	return svc, nil
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
		s.tree.WithNow(now)
		s.engine.WithNow(now)
	}
}

// SystemAccounts returns the accounts resolved at startup.
func (s *Service) SystemAccounts() mappings.SystemAccounts {
	return s.system
}

// Tree exposes the account tree rules.
func (s *Service) Tree() *accounts.Tree {
	return s.tree
}

// Transact runs fn in a transaction, retrying the whole unit when it loses a
// race on a locked row.
func (s *Service) Transact(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if s.observer != nil {
				s.observer.ObserveRetry()
			}
			s.logger.Warn("ledger transaction retry", slog.Int("attempt", attempt), slog.Any("error", err))
		}
		err = s.repo.WithTx(ctx, fn)
		if !shared.IsKind(err, shared.KindConcurrencyConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// Invalidate drops cached reports after a committed change.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", slog.Any("error", err))
	}
}

func (s *Service) audit(ctx context.Context, tx TxRepository, action, entity, id string, meta map[string]any) error {
	return tx.RecordAudit(ctx, internalShared.AuditLog{
		ActorID:  internalShared.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
}

// CreateAccount adds an account to the chart.
func (s *Service) CreateAccount(ctx context.Context, in accounts.CreateInput) (accounts.Account, error) {
	var created accounts.Account
	err := s.Transact(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := s.tree.Create(ctx, tx, in)
		if err != nil {
			return err
		}
		created = acc
		return s.audit(ctx, tx, "account.create", "account", acc.ID.String(), map[string]any{
			"code":    acc.Code,
			"name":    acc.Name,
			"group":   acc.Group,
			"opening": acc.OpeningBalance.StringFixed(2),
		})
	})
	if err != nil {
		return accounts.Account{}, err
	}
	s.Invalidate(ctx)
	return created, nil
}

// DeleteAccount removes a childless account no live voucher references.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	err := s.Transact(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := s.tree.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, "account.delete", "account", id.String(), map[string]any{"code": acc.Code})
	})
	if err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	var acc accounts.Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		acc, err = tx.GetAccount(ctx, id)
		return err
	})
	return acc, err
}

// ListAccounts returns every account ordered by code.
func (s *Service) ListAccounts(ctx context.Context) ([]accounts.Account, error) {
	var out []accounts.Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.ListAccounts(ctx)
		return err
	})
	return out, err
}

// AccountTree returns the chart arranged by parent.
func (s *Service) AccountTree(ctx context.Context) ([]*accounts.Node, error) {
	all, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return accounts.Hierarchy(all), nil
}

// Statement returns the ledger of an account over rng, merged across leaves
// for parents.
func (s *Service) Statement(ctx context.Context, id uuid.UUID, rng ledger.Range) (ledger.Statement, error) {
	var st ledger.Statement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		st, err = ledger.QueryByAccount(ctx, s.tree, tx, tx, id, rng)
		return err
	})
	return st, err
}

// LedgerView reads accounts and statements. Calls on one view must not run
// concurrently.
type LedgerView interface {
	ListAccounts(ctx context.Context) ([]accounts.Account, error)
	Statement(ctx context.Context, id uuid.UUID, rng ledger.Range) (ledger.Statement, error)
}

type snapshotView struct {
	tree *accounts.Tree
	tx   TxRepository
}

func (v snapshotView) ListAccounts(ctx context.Context) ([]accounts.Account, error) {
	return v.tx.ListAccounts(ctx)
}

func (v snapshotView) Statement(ctx context.Context, id uuid.UUID, rng ledger.Range) (ledger.Statement, error) {
	return ledger.QueryByAccount(ctx, v.tree, v.tx, v.tx, id, rng)
}

// ReadSnapshot runs fn against a single read transaction so balances and
// ledger rows come from the same committed state.
func (s *Service) ReadSnapshot(ctx context.Context, fn func(context.Context, LedgerView) error) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return fn(ctx, snapshotView{tree: s.tree, tx: tx})
	})
}

// PartyInput describes a new customer or supplier.
type PartyInput struct {
	Kind           parties.Kind
	Name           string
	OpeningBalance decimal.Decimal
}

// CreateParty registers a customer or supplier.
func (s *Service) CreateParty(ctx context.Context, in PartyInput) (parties.Party, error) {
	var created parties.Party
	err := s.Transact(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := parties.Create(ctx, tx, in.Kind, in.Name, in.OpeningBalance, s.now())
		if err != nil {
			return err
		}
		created = p
		return s.audit(ctx, tx, "party.create", "party", p.ID.String(), map[string]any{"kind": p.Kind, "name": p.Name})
	})
	return created, err
}

// ListParties returns parties of kind, or all when kind is empty.
func (s *Service) ListParties(ctx context.Context, kind parties.Kind) ([]parties.Party, error) {
	var out []parties.Party
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.ListParties(ctx, kind)
		return err
	})
	return out, err
}

// PartyHistory returns a party and its settlement history.
func (s *Service) PartyHistory(ctx context.Context, id uuid.UUID) (parties.Party, []parties.HistoryRow, error) {
	var (
		party parties.Party
		rows  []parties.HistoryRow
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if party, err = tx.GetParty(ctx, id); err != nil {
			return err
		}
		rows, err = tx.ListPartyHistory(ctx, id)
		return err
	})
	return party, rows, err
}

// ListPeriods returns every recorded accounting period.
func (s *Service) ListPeriods(ctx context.Context) ([]periods.Period, error) {
	var out []periods.Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.ListPeriods(ctx)
		return err
	})
	return out, err
}
