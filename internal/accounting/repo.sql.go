package accounting

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/ledger"
	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/accounting/periods"
	"github.com/farmbooks/farmbooks/internal/accounting/shared"
	"github.com/farmbooks/farmbooks/internal/accounting/vouchers"
	"github.com/farmbooks/farmbooks/internal/platform/db"
	internalShared "github.com/farmbooks/farmbooks/internal/shared"
)

// Repository persists the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return shared.Internal("begin tx", errors.New("accounting repository not initialised"))
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	return translate("commit", err)
}

// translate maps driver failures onto the ledger error taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var ledgerErr *shared.Error
	if errors.As(err, &ledgerErr) {
		return err
	}
	switch db.SQLState(err) {
	case db.CodeUniqueViolation:
		return shared.Wrap(shared.ErrDuplicate, "%s", op)
	case db.CodeForeignKeyViolation:
		return shared.Wrap(shared.ErrInUse, "%s", op)
	case db.CodeSerializationFailure, db.CodeDeadlockDetected:
		return shared.Wrap(shared.ErrConcurrentUpdate, "%s", op)
	}
	return shared.Internal(op, err)
}

func notFound(entity string, id any, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound(entity, id)
	}
	return translate("load "+entity, err)
}

const accountColumns = `id, code, name, grp, category, nature, parent_id, opening_balance, current_balance, created_at, updated_at`

func scanAccount(row pgx.Row) (accounts.Account, error) {
	var a accounts.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Group, &a.Category, &a.Nature, &a.ParentID, &a.OpeningBalance, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *txRepository) queryAccounts(ctx context.Context, sql string, args ...any) ([]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate("list accounts", err)
	}
	defer rows.Close()
	var out []accounts.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, translate("scan account", err)
		}
		out = append(out, a)
	}
	return out, translate("list accounts", rows.Err())
}

func (r *txRepository) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		return accounts.Account{}, notFound("account", id, err)
	}
	return a, nil
}

func (r *txRepository) GetAccountByCode(ctx context.Context, code string) (accounts.Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if err != nil {
		return accounts.Account{}, notFound("account", code, err)
	}
	return a, nil
}

func (r *txRepository) ListAccounts(ctx context.Context) ([]accounts.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
}

func (r *txRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]accounts.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE parent_id=$1 ORDER BY code`, parentID)
}

func (r *txRepository) ListRootCodes(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT code FROM accounts WHERE parent_id IS NULL AND code LIKE $1 || '%' ORDER BY code`, prefix)
	if err != nil {
		return nil, translate("list root codes", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return codes, translate("list root codes", err)
}

func (r *txRepository) InsertAccount(ctx context.Context, a accounts.Account) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.Code, a.Name, a.Group, a.Category, a.Nature, a.ParentID, a.OpeningBalance, a.CurrentBalance, a.CreatedAt, a.UpdatedAt)
	return translate("insert account "+a.Code, err)
}

func (r *txRepository) UpdateAccountBalances(ctx context.Context, id uuid.UUID, opening, current decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE accounts SET opening_balance=$2, current_balance=$3, updated_at=NOW() WHERE id=$1`, id, opening, current)
	if err != nil {
		return translate("update account balance", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("account", id)
	}
	return nil
}

// DeleteAccount detaches the account from void vouchers before removing it.
// Non-void references are rejected earlier by AccountInUse.
func (r *txRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_lines l USING vouchers v
WHERE l.voucher_id = v.id AND v.status = 'VOID' AND l.account_id = $1`, id); err != nil {
		return translate("detach void voucher lines", err)
	}
	if _, err := r.tx.Exec(ctx, `UPDATE vouchers SET settlement_account_id = NULL, updated_at = NOW()
WHERE status = 'VOID' AND settlement_account_id = $1`, id); err != nil {
		return translate("detach void voucher settlement", err)
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return translate("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("account", id)
	}
	return nil
}

func (r *txRepository) AccountInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM vouchers v
	WHERE v.status <> 'VOID' AND (v.settlement_account_id = $1
		OR EXISTS (SELECT 1 FROM voucher_lines l WHERE l.voucher_id = v.id AND l.account_id = $1)))`, id).Scan(&used)
	return used, translate("account in use", err)
}

func (r *txRepository) AccountHasEntries(ctx context.Context, id uuid.UUID) (bool, error) {
	var posted bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE account_id=$1)`, id).Scan(&posted)
	return posted, translate("account entries", err)
}

func (r *txRepository) LockAccounts(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := r.tx.Query(ctx, `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return translate("lock accounts", err)
	}
	locked, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return translate("lock accounts", err)
	}
	if len(locked) != len(ids) {
		found := make(map[uuid.UUID]struct{}, len(locked))
		for _, id := range locked {
			found[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return shared.NotFound("account", id)
			}
		}
	}
	return nil
}

func (r *txRepository) InsertEntry(ctx context.Context, e ledger.Entry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ledger_entries (id, account_id, entry_date, debit, credit, balance_after, reference, source_type, source_id, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.AccountID, e.Date, e.Debit, e.Credit, e.BalanceAfter, e.Reference, e.SourceType, e.SourceID, e.Description, e.CreatedAt)
	return translate("insert ledger entry", err)
}

func (r *txRepository) ListEntries(ctx context.Context, accountIDs []uuid.UUID, to time.Time) ([]ledger.Entry, error) {
	var upper *time.Time
	if !to.IsZero() {
		upper = &to
	}
	rows, err := r.tx.Query(ctx, `SELECT id, account_id, entry_date, debit, credit, balance_after, reference, source_type, source_id, description, created_at
FROM ledger_entries WHERE account_id = ANY($1) AND ($2::date IS NULL OR entry_date <= $2::date)
ORDER BY entry_date, created_at, id`, accountIDs, upper)
	if err != nil {
		return nil, translate("list ledger entries", err)
	}
	defer rows.Close()
	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Date, &e.Debit, &e.Credit, &e.BalanceAfter, &e.Reference, &e.SourceType, &e.SourceID, &e.Description, &e.CreatedAt); err != nil {
			return nil, translate("scan ledger entry", err)
		}
		out = append(out, e)
	}
	return out, translate("list ledger entries", rows.Err())
}

const partyColumns = `id, kind, name, current_balance, created_at, updated_at`

func (r *txRepository) GetParty(ctx context.Context, id uuid.UUID) (parties.Party, error) {
	var p parties.Party
	err := r.tx.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id=$1`, id).
		Scan(&p.ID, &p.Kind, &p.Name, &p.CurrentBalance, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return parties.Party{}, notFound("party", id, err)
	}
	return p, nil
}

func (r *txRepository) ListParties(ctx context.Context, kind parties.Kind) ([]parties.Party, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+partyColumns+` FROM parties WHERE ($1 = '' OR kind = $1) ORDER BY name`, string(kind))
	if err != nil {
		return nil, translate("list parties", err)
	}
	defer rows.Close()
	var out []parties.Party
	for rows.Next() {
		var p parties.Party
		if err := rows.Scan(&p.ID, &p.Kind, &p.Name, &p.CurrentBalance, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, translate("scan party", err)
		}
		out = append(out, p)
	}
	return out, translate("list parties", rows.Err())
}

func (r *txRepository) InsertParty(ctx context.Context, p parties.Party) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO parties (`+partyColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Kind, p.Name, p.CurrentBalance, p.CreatedAt, p.UpdatedAt)
	return translate("insert party", err)
}

func (r *txRepository) UpdatePartyBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE parties SET current_balance=$2, updated_at=$3 WHERE id=$1`, id, balance, at)
	if err != nil {
		return translate("update party balance", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("party", id)
	}
	return nil
}

func (r *txRepository) InsertPartyHistory(ctx context.Context, h parties.HistoryRow) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO party_history (id, party_id, voucher_id, voucher_number, entry_date, flow, amount, balance_after, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		h.ID, h.PartyID, h.VoucherID, h.VoucherNumber, h.Date, h.Flow, h.Amount, h.BalanceAfter, h.CreatedAt)
	return translate("insert party history", err)
}

func (r *txRepository) ListPartyHistory(ctx context.Context, id uuid.UUID) ([]parties.HistoryRow, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, party_id, voucher_id, voucher_number, entry_date, flow, amount, balance_after, created_at
FROM party_history WHERE party_id=$1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, translate("list party history", err)
	}
	defer rows.Close()
	var out []parties.HistoryRow
	for rows.Next() {
		var h parties.HistoryRow
		if err := rows.Scan(&h.ID, &h.PartyID, &h.VoucherID, &h.VoucherNumber, &h.Date, &h.Flow, &h.Amount, &h.BalanceAfter, &h.CreatedAt); err != nil {
			return nil, translate("scan party history", err)
		}
		out = append(out, h)
	}
	return out, translate("list party history", rows.Err())
}

const periodColumns = `id, start_date, end_date, status, net_income, closing_voucher_id, closed_by, closed_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (periods.Period, error) {
	var p periods.Period
	err := row.Scan(&p.ID, &p.StartDate, &p.EndDate, &p.Status, &p.NetIncome, &p.ClosingVoucher, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *txRepository) HoldCloseGuard(ctx context.Context) error {
	var generation int64
	err := r.tx.QueryRow(ctx, `SELECT generation FROM ledger_guard WHERE id = 1 FOR SHARE`).Scan(&generation)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.Internal("hold close guard", errors.New("ledger_guard row missing"))
	}
	return translate("hold close guard", err)
}

func (r *txRepository) AdvanceCloseGuard(ctx context.Context) error {
	tag, err := r.tx.Exec(ctx, `UPDATE ledger_guard SET generation = generation + 1, updated_at = NOW() WHERE id = 1`)
	if err != nil {
		return translate("advance close guard", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.Internal("advance close guard", errors.New("ledger_guard row missing"))
	}
	return nil
}

func (r *txRepository) LatestClosedEnd(ctx context.Context) (time.Time, bool, error) {
	var end *time.Time
	err := r.tx.QueryRow(ctx, `SELECT MAX(end_date) FROM periods WHERE status = $1`, periods.StatusClosed).Scan(&end)
	if err != nil {
		return time.Time{}, false, translate("latest closed period", err)
	}
	if end == nil {
		return time.Time{}, false, nil
	}
	return *end, true, nil
}

func (r *txRepository) GetPeriodByEnd(ctx context.Context, end time.Time) (periods.Period, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE end_date=$1 FOR UPDATE`, periods.Day(end)))
	if err != nil {
		return periods.Period{}, notFound("period", end.Format("2006-01-02"), err)
	}
	return p, nil
}

func (r *txRepository) UpsertPeriod(ctx context.Context, p periods.Period) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO periods (`+periodColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (end_date) DO UPDATE SET
	start_date=EXCLUDED.start_date, status=EXCLUDED.status, net_income=EXCLUDED.net_income,
	closing_voucher_id=EXCLUDED.closing_voucher_id, closed_by=EXCLUDED.closed_by,
	closed_at=EXCLUDED.closed_at, updated_at=EXCLUDED.updated_at`,
		p.ID, p.StartDate, p.EndDate, p.Status, p.NetIncome, p.ClosingVoucher, p.ClosedBy, p.ClosedAt, p.CreatedAt, p.UpdatedAt)
	return translate("upsert period", err)
}

func (r *txRepository) ListPeriods(ctx context.Context) ([]periods.Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY end_date`)
	if err != nil {
		return nil, translate("list periods", err)
	}
	defer rows.Close()
	var out []periods.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, translate("scan period", err)
		}
		out = append(out, p)
	}
	return out, translate("list periods", rows.Err())
}

func (r *txRepository) NextSequence(ctx context.Context, prefix string, fiscalYear int) (int64, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_counters (prefix, fiscal_year, value) VALUES ($1, $2, 1)
ON CONFLICT (prefix, fiscal_year) DO UPDATE SET value = voucher_counters.value + 1
RETURNING value`, prefix, fiscalYear).Scan(&next)
	return next, translate("next voucher sequence", err)
}

const voucherColumns = `id, number, kind, type, voucher_date, status, description, total, method, settlement_account_id,
party_id, party_kind, party_name, created_by, created_at, updated_at, posted_at`

func scanVoucher(row pgx.Row) (vouchers.Voucher, error) {
	var v vouchers.Voucher
	err := row.Scan(&v.ID, &v.Number, &v.Kind, &v.Type, &v.Date, &v.Status, &v.Description, &v.Total, &v.Method,
		&v.SettlementAccountID, &v.Party.ID, &v.Party.Kind, &v.Party.Name, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt, &v.PostedAt)
	return v, err
}

func (r *txRepository) InsertVoucher(ctx context.Context, v vouchers.Voucher) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO vouchers (`+voucherColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		v.ID, v.Number, v.Kind, v.Type, v.Date, v.Status, v.Description, v.Total, v.Method, v.SettlementAccountID,
		v.Party.ID, v.Party.Kind, v.Party.Name, v.CreatedBy, v.CreatedAt, v.UpdatedAt, v.PostedAt)
	if err != nil {
		return translate("insert voucher "+v.Number, err)
	}
	return r.insertLines(ctx, v)
}

func (r *txRepository) insertLines(ctx context.Context, v vouchers.Voucher) error {
	for i, l := range v.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_lines (voucher_id, line_no, account_id, debit, credit, amount, description)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, v.ID, i+1, l.AccountID, l.Debit, l.Credit, l.Amount, l.Description); err != nil {
			return translate("insert voucher line", err)
		}
	}
	return nil
}

func (r *txRepository) UpdateVoucher(ctx context.Context, v vouchers.Voucher) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vouchers SET voucher_date=$2, status=$3, description=$4, total=$5, method=$6,
	settlement_account_id=$7, party_id=$8, party_kind=$9, party_name=$10, updated_at=$11, posted_at=$12
WHERE id=$1`,
		v.ID, v.Date, v.Status, v.Description, v.Total, v.Method, v.SettlementAccountID,
		v.Party.ID, v.Party.Kind, v.Party.Name, v.UpdatedAt, v.PostedAt)
	if err != nil {
		return translate("update voucher", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("voucher", v.ID)
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_lines WHERE voucher_id=$1`, v.ID); err != nil {
		return translate("replace voucher lines", err)
	}
	return r.insertLines(ctx, v)
}

func (r *txRepository) GetVoucher(ctx context.Context, id uuid.UUID) (vouchers.Voucher, error) {
	return r.loadVoucher(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1`, id)
}

func (r *txRepository) LockVoucher(ctx context.Context, id uuid.UUID) (vouchers.Voucher, error) {
	return r.loadVoucher(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepository) loadVoucher(ctx context.Context, sql string, id uuid.UUID) (vouchers.Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, sql, id))
	if err != nil {
		return vouchers.Voucher{}, notFound("voucher", id, err)
	}
	lines, err := r.linesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return vouchers.Voucher{}, err
	}
	v.Lines = lines[id]
	return v, nil
}

func (r *txRepository) linesFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]vouchers.Line, error) {
	rows, err := r.tx.Query(ctx, `SELECT voucher_id, account_id, debit, credit, amount, description
FROM voucher_lines WHERE voucher_id = ANY($1) ORDER BY voucher_id, line_no`, ids)
	if err != nil {
		return nil, translate("list voucher lines", err)
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]vouchers.Line, len(ids))
	for rows.Next() {
		var (
			voucherID uuid.UUID
			l         vouchers.Line
		)
		if err := rows.Scan(&voucherID, &l.AccountID, &l.Debit, &l.Credit, &l.Amount, &l.Description); err != nil {
			return nil, translate("scan voucher line", err)
		}
		out[voucherID] = append(out[voucherID], l)
	}
	return out, translate("list voucher lines", rows.Err())
}

func (r *txRepository) DeleteVoucher(ctx context.Context, id uuid.UUID) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_lines WHERE voucher_id=$1`, id); err != nil {
		return translate("delete voucher lines", err)
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id=$1`, id)
	if err != nil {
		return translate("delete voucher", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("voucher", id)
	}
	return nil
}

func (r *txRepository) ListVouchers(ctx context.Context, f vouchers.Filter) ([]vouchers.Voucher, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.Kind != "" {
		add("kind = ?", f.Kind)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		add("voucher_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("voucher_date <= ?", f.To)
	}
	sql := `SELECT ` + voucherColumns + ` FROM vouchers`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY voucher_date DESC, number DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += " LIMIT $" + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sql += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate("list vouchers", err)
	}
	defer rows.Close()
	var (
		out []vouchers.Voucher
		ids []uuid.UUID
	)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, translate("scan voucher", err)
		}
		out = append(out, v)
		ids = append(ids, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list vouchers", err)
	}
	rows.Close()
	if len(ids) == 0 {
		return out, nil
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

func (r *txRepository) RecordAudit(ctx context.Context, log internalShared.AuditLog) error {
	if err := internalShared.NewAuditLogger(r.tx).Record(ctx, log); err != nil {
		return translate("record audit", err)
	}
	return nil
}

