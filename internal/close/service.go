package close

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/reports"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	"github.com/farmbooks/farmbooks/internal/platform/cache"
	internalShared "github.com/farmbooks/farmbooks/internal/shared"
)

// DefaultLockTTL bounds how long a crashed close can block the next one.
const DefaultLockTTL = 2 * time.Minute

// Result describes a completed close.
type Result struct {
	Period       periods.Period
	Voucher      *vouchers.Voucher
	Plan         Plan
	TrialBalance reports.TrialBalance
}

// Service orchestrates period closes.
type Service struct {
	ledger  *accounting.Service
	redis   *redis.Client
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a Service. redis may be nil, in which case closes are
// serialised only by the database.
func NewService(ledger *accounting.Service, client *redis.Client, lockTTL time.Duration, logger *slog.Logger) *Service {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, redis: client, lockTTL: lockTTL, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Preview builds the closing plan for endDate without writing anything.
func (s *Service) Preview(ctx context.Context, endDate time.Time) (Plan, error) {
	end := periods.Day(endDate)
	var plan Plan
	err := s.ledger.Transact(ctx, func(ctx context.Context, tx accounting.TxRepository) error {
		start, err := s.window(ctx, tx, end)
		if err != nil {
			return err
		}
		plan, err = BuildPlan(ctx, tx, s.ledger.SystemAccounts().RetainedEarnings, start, end)
		return err
	})
	return plan, err
}

// ClosePeriod sweeps income and expense activity up to endDate into retained
// earnings with one closing journal and marks the period closed. Every step
// runs in one transaction.
func (s *Service) ClosePeriod(ctx context.Context, endDate time.Time) (Result, error) {
	end := periods.Day(endDate)
	if s.redis != nil {
		lock, err := cache.Acquire(ctx, s.redis, internalShared.LedgerCloseLockKey, s.lockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLocked) {
				return Result{}, shared.Wrap(shared.ErrConcurrentUpdate, "another period close is running")
			}
			return Result{}, shared.Internal("acquire close lock", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release close lock", slog.Any("error", err))
			}
		}()
	}

	var res Result
	retained := s.ledger.SystemAccounts().RetainedEarnings
	err := s.ledger.Transact(ctx, func(ctx context.Context, tx accounting.TxRepository) error {
		res = Result{}
		// Wait out postings holding the guard, then lock retained earnings so a
		// nominal posting committed after this snapshot forces a retry.
		if err := tx.AdvanceCloseGuard(ctx); err != nil {
			return err
		}
		if err := tx.LockAccounts(ctx, []uuid.UUID{retained.ID}); err != nil {
			return err
		}
		start, err := s.window(ctx, tx, end)
		if err != nil {
			return err
		}
		existing, err := tx.GetPeriodByEnd(ctx, end)
		if err != nil && !shared.IsKind(err, shared.KindNotFound) {
			return err
		}

		plan, err := BuildPlan(ctx, tx, retained, start, end)
		if err != nil {
			return err
		}
		res.Plan = plan

		actor := internalShared.ActorFromContext(ctx)
		now := s.now()
		period := periods.Period{
			ID:        existing.ID,
			StartDate: start,
			EndDate:   end,
			Status:    periods.StatusClosed,
			NetIncome: plan.NetIncome,
			ClosedBy:  actor,
			ClosedAt:  &now,
			CreatedAt: existing.CreatedAt,
			UpdatedAt: now,
		}
		if period.ID == uuid.Nil {
			period.ID = uuid.New()
			period.CreatedAt = now
		}

		if !plan.Empty() {
			posted, _, err := s.ledger.PostNew(ctx, tx, vouchers.Voucher{
				Kind:        vouchers.KindJournal,
				Type:        vouchers.TypeJournal,
				Date:        end,
				Description: "Period close " + end.Format("2006-01-02"),
				Total:       plan.Total,
				Lines:       plan.Lines,
				CreatedBy:   actor,
			})
			if err != nil {
				return err
			}
			res.Voucher = &posted
			period.ClosingVoucher = &posted.ID
		}
		if err := tx.UpsertPeriod(ctx, period); err != nil {
			return err
		}
		res.Period = period

		all, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		res.TrialBalance = reports.BuildTrialBalance(reports.LeafBalances(all))
		meta := map[string]any{
			"endDate":      end.Format("2006-01-02"),
			"netIncome":    plan.NetIncome.StringFixed(2),
			"totalDebit":   res.TrialBalance.TotalDebit.StringFixed(2),
			"totalCredit":  res.TrialBalance.TotalCredit.StringFixed(2),
			"trialBalance": res.TrialBalance.Groups,
		}
		if res.Voucher != nil {
			meta["closingVoucher"] = res.Voucher.Number
		}
		return tx.RecordAudit(ctx, internalShared.AuditLog{
			ActorID:  actor,
			Action:   "period.close",
			Entity:   "period",
			EntityID: period.ID.String(),
			Meta:     meta,
			At:       now,
		})
	})
	if err != nil {
		s.logger.Warn("period close rejected", slog.String("end", end.Format("2006-01-02")), slog.String("code", shared.CodeOf(err)), slog.Any("error", err))
		return Result{}, err
	}
	s.ledger.Invalidate(ctx)
	s.logger.Info("period closed",
		slog.String("end", end.Format("2006-01-02")),
		slog.String("net_income", res.Plan.NetIncome.StringFixed(2)),
		slog.Int("lines", len(res.Plan.Lines)))
	return res, nil
}

// window validates that end can be closed and returns the first day of the
// open window ending there.
func (s *Service) window(ctx context.Context, tx accounting.TxRepository, end time.Time) (time.Time, error) {
	existing, err := tx.GetPeriodByEnd(ctx, end)
	switch {
	case err == nil && existing.Closed():
		return time.Time{}, shared.Wrap(shared.ErrAlreadyClosed, "%s", end.Format("2006-01-02"))
	case err != nil && !shared.IsKind(err, shared.KindNotFound):
		return time.Time{}, err
	}
	latest, ok, err := tx.LatestClosedEnd(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, nil
	}
	if !latest.Before(end) {
		return time.Time{}, shared.Wrap(shared.ErrClosedPeriod, "a period ending %s is already closed", latest.Format("2006-01-02"))
	}
	return periods.Day(latest).AddDate(0, 0, 1), nil
}
