package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritas-erp/veritas-erp/internal/audit"
	"github.com/veritas-erp/veritas-erp/internal/ledger/accounts"
	"github.com/veritas-erp/veritas-erp/internal/ledger/shared"
	internalShared "github.com/veritas-erp/veritas-erp/internal/shared"
)

// Repository encapsulates DB operations for vouchers. Mutations run through
// WithTx so voucher, lines and audit entry commit as one unit.
type Repository interface {
	Get(ctx context.Context, id int64) (Voucher, error)
	List(ctx context.Context, filters ListFilters, page internalShared.Page) ([]Voucher, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside a creation or
// transition transaction.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key string) error
	// GetAccountForPosting duplicates a registry lookup inside the
	// transaction so line validation and insertion see the same state.
	GetAccountForPosting(ctx context.Context, accountID int64) (accounts.Account, error)
	NextSequence(ctx context.Context, year int) (int64, error)
	InsertVoucher(ctx context.Context, in CreateVoucherInput, number string) (Voucher, error)
	InsertLines(ctx context.Context, voucherID int64, lines []LineInput) error
	GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

type repository struct {
	db       *pgxpool.Pool
	recorder *audit.Recorder
}

// NewRepository constructs a PostgreSQL-backed repository. The recorder is
// bound here so every transaction can write its trail entry in-band.
func NewRepository(db *pgxpool.Pool, recorder *audit.Recorder) Repository {
	return &repository{db: db, recorder: recorder}
}

const voucherColumns = `id, voucher_number, document_type, folio_number, issue_date, description, subtotal, tax_amount, total, status, created_by, created_at, updated_at`

// voucherTxOptions runs mutations at read committed: the counter upsert and
// FOR UPDATE locks already serialize concurrent writers, while repeatable
// read would abort one of two concurrent creations with a 40001 when both
// land on the same year's counter row.
var voucherTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, voucherTxOptions)
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx, recorder: r.recorder}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) Get(ctx context.Context, id int64) (Voucher, error) {
	var v Voucher
	var createdBy pgtype.Int8
	err := r.db.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1`, id).
		Scan(&v.ID, &v.Number, &v.DocumentType, &v.FolioNumber, &v.IssueDate, &v.Description,
			&v.Subtotal, &v.TaxAmount, &v.Total, &v.Status, &createdBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	if createdBy.Valid {
		uid := createdBy.Int64
		v.CreatedBy = &uid
	}
	lines, err := r.linesFor(ctx, id)
	if err != nil {
		return Voucher{}, err
	}
	v.Lines = lines
	return v, nil
}

func (r *repository) linesFor(ctx context.Context, voucherID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx, `SELECT id, voucher_id, account_id, description, quantity, unit_price, total_amount, is_taxable, debit_amount, credit_amount, line_order
FROM voucher_lines WHERE voucher_id=$1 ORDER BY line_order ASC`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.VoucherID, &l.AccountID, &l.Description, &l.Quantity, &l.UnitPrice, &l.TotalAmount, &l.IsTaxable, &l.Debit, &l.Credit, &l.LineOrder); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, filters ListFilters, page internalShared.Page) ([]Voucher, int, error) {
	var conds []string
	var args []any
	if filters.Year != 0 {
		args = append(args, filters.Year)
		conds = append(conds, fmt.Sprintf("EXTRACT(YEAR FROM issue_date) = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, string(filters.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM vouchers%s ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		voucherColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset)
	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var vouchers []Voucher
	for rows.Next() {
		var v Voucher
		var createdBy pgtype.Int8
		if err := rows.Scan(&v.ID, &v.Number, &v.DocumentType, &v.FolioNumber, &v.IssueDate, &v.Description,
			&v.Subtotal, &v.TaxAmount, &v.Total, &v.Status, &createdBy, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if createdBy.Valid {
			uid := createdBy.Int64
			v.CreatedBy = &uid
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, total, rows.Err()
}

type txRepository struct {
	tx       pgx.Tx
	recorder *audit.Recorder
}

func (r *txRepository) ClaimIdempotencyKey(ctx context.Context, key string) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, 'vouchers', NOW())`, key)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return internalShared.ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) GetAccountForPosting(ctx context.Context, accountID int64) (accounts.Account, error) {
	var a accounts.Account
	err := r.tx.QueryRow(ctx, `SELECT id, code, name, type, category, is_active, created_at, updated_at FROM accounts WHERE id=$1`, accountID).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, shared.ErrAccountNotFound
		}
		return accounts.Account{}, err
	}
	return a, nil
}

// NextSequence atomically advances the per-year counter row. The upsert takes
// a row lock, so concurrent creations for the same year serialize here and no
// seq value is ever issued twice. Holes after rolled-back transactions are
// acceptable; duplicates are not.
func (r *txRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_counters (year, last_seq) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET last_seq = voucher_counters.last_seq + 1
RETURNING last_seq`, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("ledger: next voucher sequence: %w", err)
	}
	return seq, nil
}

func (r *txRepository) InsertVoucher(ctx context.Context, in CreateVoucherInput, number string) (Voucher, error) {
	v := Voucher{
		Number:       number,
		DocumentType: in.DocumentType,
		FolioNumber:  in.FolioNumber,
		IssueDate:    in.IssueDate,
		Description:  in.Description,
		Subtotal:     in.Subtotal,
		TaxAmount:    in.TaxAmount,
		Total:        in.Total,
		Status:       StatusPending,
		CreatedBy:    in.CreatedBy,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO vouchers (voucher_number, document_type, folio_number, issue_date, description, subtotal, tax_amount, total, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'pending',$9) RETURNING id, created_at, updated_at`,
		number, string(in.DocumentType), in.FolioNumber, in.IssueDate, in.Description,
		in.Subtotal, in.TaxAmount, in.Total, nullIntPtr(in.CreatedBy)).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) InsertLines(ctx context.Context, voucherID int64, lines []LineInput) error {
	for idx, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_lines (voucher_id, account_id, description, quantity, unit_price, total_amount, is_taxable, debit_amount, credit_amount, line_order)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			voucherID, line.AccountID, line.Description, line.Quantity, line.UnitPrice,
			line.TotalAmount, line.IsTaxable, line.Debit, line.Credit, idx); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	var v Voucher
	var createdBy pgtype.Int8
	err := r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 FOR UPDATE`, id).
		Scan(&v.ID, &v.Number, &v.DocumentType, &v.FolioNumber, &v.IssueDate, &v.Description,
			&v.Subtotal, &v.TaxAmount, &v.Total, &v.Status, &createdBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	if createdBy.Valid {
		uid := createdBy.Int64
		v.CreatedBy = &uid
	}
	return v, nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrVoucherNotFound
	}
	return nil
}

func (r *txRepository) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return r.recorder.RecordTx(ctx, r.tx, entry)
}

func nullIntPtr(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}
