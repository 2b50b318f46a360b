package accounting

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/posting"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	internalShared "github.com/farmbooks/farmbooks/internal/shared"
)

// CreateVoucher persists a new voucher as Draft, or posts it immediately when
// target is Posted. A failed posting persists nothing.
func (s *Service) CreateVoucher(ctx context.Context, draft vouchers.Draft, target vouchers.Status) (vouchers.Voucher, error) {
	normalized, err := vouchers.Normalize(draft)
	if err != nil {
		return vouchers.Voucher{}, err
	}
	if target == "" {
		target = vouchers.StatusDraft
	}
	if target != vouchers.StatusDraft && target != vouchers.StatusPosted {
		return vouchers.Voucher{}, shared.Wrap(shared.ErrInvalidTransition, "vouchers are created as %s or %s", vouchers.StatusDraft, vouchers.StatusPosted)
	}

	var created vouchers.Voucher
	err = s.Transact(ctx, func(ctx context.Context, tx TxRepository) error {
		v := normalized
		now := s.now()
		v.ID = uuid.New()
		v.CreatedBy = internalShared.ActorFromContext(ctx)
		v.CreatedAt = now
		v.UpdatedAt = now

		if target == vouchers.StatusPosted {
			posted, _, err := s.PostNew(ctx, tx, v)
			if err != nil {
				return err
			}
			v = posted
		} else {
			if err := periods.EnsureOpen(ctx, tx, v.Date); err != nil {
				return err
			}
			if err := checkReferences(ctx, tx, v); err != nil {
				return err
			}
			number, err := s.numberer.Assign(ctx, tx, v)
			if err != nil {
				return err
			}
			v.Number = number
			v.Status = vouchers.StatusDraft
			if err := tx.InsertVoucher(ctx, v); err != nil {
				return err
			}
		}
		created = v
		return s.audit(ctx, tx, "voucher.create", "voucher", v.ID.String(), voucherMeta(v))
	})
	if target == vouchers.StatusPosted {
		s.observe(normalized.Kind, created, err)
	}
	if err != nil {
		return vouchers.Voucher{}, err
	}
	s.Invalidate(ctx)
	return created, nil
}

// PostNew numbers v, applies it through the posting engine and stores it as
// Posted. It must run inside Transact.
func (s *Service) PostNew(ctx context.Context, tx TxRepository, v vouchers.Voucher) (vouchers.Voucher, posting.Result, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	number, err := s.numberer.Assign(ctx, tx, v)
	if err != nil {
		return vouchers.Voucher{}, posting.Result{}, err
	}
	now := s.now()
	v.Number = number
	v.Status = vouchers.StatusPosted
	v.PostedAt = &now
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
		v.UpdatedAt = now
	}
	res, err := s.engine.Post(ctx, tx, v)
	if err != nil {
		return vouchers.Voucher{}, posting.Result{}, err
	}
	if err := tx.InsertVoucher(ctx, v); err != nil {
		return vouchers.Voucher{}, posting.Result{}, err
	}
	return v, res, nil
}

// checkReferences resolves every account and the party a draft points at so
// a dangling id fails as not found in every store.
func checkReferences(ctx context.Context, tx TxRepository, v vouchers.Voucher) error {
	for _, id := range v.AccountIDs() {
		if _, err := tx.GetAccount(ctx, id); err != nil {
			return err
		}
	}
	if v.Party.ID != nil {
		if _, err := tx.GetParty(ctx, *v.Party.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDraft replaces the payload of a Draft voucher. The number, kind and
// type never change.
func (s *Service) UpdateDraft(ctx context.Context, id uuid.UUID, draft vouchers.Draft) (vouchers.Voucher, error) {
	next, err := vouchers.Normalize(draft)
	if err != nil {
		return vouchers.Voucher{}, err
	}
	var updated vouchers.Voucher
	err = s.Transact(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.LockVoucher(ctx, id)
		if err != nil {
			return err
		}
		if err := vouchers.CheckEdit(cur.Status); err != nil {
			return err
		}
		if next.Kind != cur.Kind {
			return shared.Validation("kindMismatch", "voucher %s is a %s voucher", cur.Number, cur.Kind)
		}
		if next.Type != cur.Type {
			return shared.Validation("typeMismatch", "voucher %s is a %s voucher", cur.Number, cur.Type)
		}
		if err := periods.EnsureOpen(ctx, tx, next.Date); err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, next); err != nil {
			return err
		}
		v := next
		v.ID = cur.ID
		v.Number = cur.Number
		v.Status = cur.Status
		v.CreatedBy = cur.CreatedBy
		v.CreatedAt = cur.CreatedAt
		v.UpdatedAt = s.now()
		if err := tx.UpdateVoucher(ctx, v); err != nil {
			return err
		}
		updated = v
		meta := voucherMeta(v)
		meta["previousTotal"] = cur.Total.StringFixed(2)
		return s.audit(ctx, tx, "voucher.update", "voucher", v.ID.String(), meta)
	})
	if err != nil {
		return vouchers.Voucher{}, err
	}
	return updated, nil
}

// UpdateStatus moves a voucher through its lifecycle. Draft to Posted runs the
// posting engine; Posted never returns to Draft.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to vouchers.Status) (vouchers.Voucher, error) {
	var (
		updated vouchers.Voucher
		posted  bool
	)
	err := s.Transact(ctx, func(ctx context.Context, tx TxRepository) error {
		posted = false
		cur, err := tx.LockVoucher(ctx, id)
		if err != nil {
			return err
		}
		if err := vouchers.CheckTransition(cur.Status, to); err != nil {
			return err
		}
		updated = cur
		if cur.Status == to {
			return nil
		}
		v := cur
		now := s.now()
		v.Status = to
		v.UpdatedAt = now
		if to == vouchers.StatusPosted {
			posted = true
			v.PostedAt = &now
			if _, err := s.engine.Post(ctx, tx, v); err != nil {
				return err
			}
		}
		if err := tx.UpdateVoucher(ctx, v); err != nil {
			return err
		}
		updated = v
		meta := voucherMeta(v)
		meta["from"] = cur.Status
		return s.audit(ctx, tx, "voucher.status", "voucher", v.ID.String(), meta)
	})
	if posted {
		s.observe(updated.Kind, updated, err)
	}
	if err != nil {
		return vouchers.Voucher{}, err
	}
	s.Invalidate(ctx)
	return updated, nil
}

// DeleteVoucher discards a voucher that was never posted.
func (s *Service) DeleteVoucher(ctx context.Context, id uuid.UUID) error {
	return s.Transact(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.LockVoucher(ctx, id)
		if err != nil {
			return err
		}
		if err := vouchers.CheckDelete(cur.Status); err != nil {
			return err
		}
		if err := tx.DeleteVoucher(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, "voucher.delete", "voucher", id.String(), voucherMeta(cur))
	})
}

// GetVoucher returns one voucher with its lines.
func (s *Service) GetVoucher(ctx context.Context, id uuid.UUID) (vouchers.Voucher, error) {
	var v vouchers.Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		v, err = tx.GetVoucher(ctx, id)
		return err
	})
	return v, err
}

// ListVouchers returns vouchers matching filter, newest first.
func (s *Service) ListVouchers(ctx context.Context, filter vouchers.Filter) ([]vouchers.Voucher, error) {
	var out []vouchers.Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.ListVouchers(ctx, filter)
		return err
	})
	return out, err
}

func (s *Service) observe(kind vouchers.Kind, v vouchers.Voucher, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(shared.KindOf(err))
	}
	if s.observer != nil {
		s.observer.ObservePosting(string(kind), outcome)
	}
	if err != nil {
		s.logger.Warn("voucher posting rejected",
			slog.String("kind", string(kind)),
			slog.String("code", shared.CodeOf(err)),
			slog.Any("error", err))
		return
	}
	s.logger.Info("voucher posted",
		slog.String("number", v.Number),
		slog.String("kind", string(kind)),
		slog.String("total", v.Total.StringFixed(2)))
}

func voucherMeta(v vouchers.Voucher) map[string]any {
	return map[string]any{
		"number": v.Number,
		"kind":   v.Kind,
		"type":   v.Type,
		"status": v.Status,
		"date":   v.Date.Format("2006-01-02"),
		"total":  v.Total.StringFixed(2),
		"lines":  len(v.Lines),
	}
}
