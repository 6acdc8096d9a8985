package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregated ledger state.
type Repository interface {
	LedgerSummary(ctx context.Context, year int) ([]SummaryRow, error)
	VoucherBook(ctx context.Context, year int) ([]BookEntry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// LedgerSummary aggregates debit/credit per account over posted and paid
// vouchers. Pending vouchers are excluded: they are not yet part of the
// ledger position. Balance follows the natural sign of the account type.
func (r *repository) LedgerSummary(ctx context.Context, year int) ([]SummaryRow, error) {
	query := `SELECT a.code, a.name, a.type,
	COALESCE(SUM(l.debit_amount), 0), COALESCE(SUM(l.credit_amount), 0)
FROM accounts a
JOIN voucher_lines l ON l.account_id = a.id
JOIN vouchers v ON v.id = l.voucher_id AND v.status IN ('posted', 'paid')`
	var args []any
	if year != 0 {
		query += ` AND EXTRACT(YEAR FROM v.issue_date) = $1`
		args = append(args, year)
	}
	query += `
GROUP BY a.code, a.name, a.type
ORDER BY a.code`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: ledger summary: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.AccountCode, &row.AccountName, &row.AccountType, &row.Debit, &row.Credit); err != nil {
			return nil, fmt.Errorf("reports: scan summary row: %w", err)
		}
		switch row.AccountType {
		case "ASSET", "EXPENSE":
			row.Balance = row.Debit - row.Credit
		default:
			row.Balance = row.Credit - row.Debit
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// VoucherBook returns every voucher issued in the given year with its lines in
// presentation order. One joined query; vouchers are stitched in code.
func (r *repository) VoucherBook(ctx context.Context, year int) ([]BookEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT v.id, v.voucher_number, v.document_type, v.folio_number, v.issue_date, v.description, v.total, v.status,
	a.code, a.name, l.description, l.debit_amount, l.credit_amount
FROM vouchers v
JOIN voucher_lines l ON l.voucher_id = v.id
JOIN accounts a ON a.id = l.account_id
WHERE EXTRACT(YEAR FROM v.issue_date) = $1
ORDER BY v.issue_date, v.id, l.line_order`, year)
	if err != nil {
		return nil, fmt.Errorf("reports: voucher book: %w", err)
	}
	defer rows.Close()

	var out []BookEntry
	var lastID int64
	for rows.Next() {
		var id int64
		var entry BookEntry
		var line BookLine
		if err := rows.Scan(&id, &entry.VoucherNumber, &entry.DocumentType, &entry.FolioNumber,
			&entry.IssueDate, &entry.Description, &entry.Total, &entry.Status,
			&line.AccountCode, &line.AccountName, &line.Description, &line.Debit, &line.Credit); err != nil {
			return nil, fmt.Errorf("reports: scan book row: %w", err)
		}
		if id != lastID {
			out = append(out, entry)
			lastID = id
		}
		out[len(out)-1].Lines = append(out[len(out)-1].Lines, line)
	}
	return out, rows.Err()
}
