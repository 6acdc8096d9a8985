package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritas-erp/veritas-erp/internal/ledger/shared"
)

// CreateAccountInput carries fields for chart-of-accounts setup.
type CreateAccountInput struct {
	Code     string
	Name     string
	Type     AccountType
	Category string
}

// Repository provides persistence for the chart of accounts. The mutating
// methods run on a caller-supplied transaction so the audit entry commits
// with the change.
type Repository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, in CreateAccountInput) (Account, error)
	DeactivateTx(ctx context.Context, tx pgx.Tx, code string) (before Account, after Account, err error)
	GetByCode(ctx context.Context, code string) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	List(ctx context.Context) ([]Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type, category, is_active, created_at, updated_at`

func (r *repository) CreateTx(ctx context.Context, tx pgx.Tx, in CreateAccountInput) (Account, error) {
	a := Account{Code: in.Code, Name: in.Name, Type: in.Type, Category: in.Category, IsActive: true}
	err := tx.QueryRow(ctx, `INSERT INTO accounts (code, name, type, category, is_active)
VALUES ($1, $2, $3, $4, TRUE) RETURNING id, created_at, updated_at`,
		in.Code, in.Name, string(in.Type), in.Category).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) DeactivateTx(ctx context.Context, tx pgx.Tx, code string) (Account, Account, error) {
	var before Account
	err := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1 FOR UPDATE`, code).
		Scan(&before.ID, &before.Code, &before.Name, &before.Type, &before.Category, &before.IsActive, &before.CreatedAt, &before.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, Account{}, shared.ErrAccountNotFound
		}
		return Account{}, Account{}, err
	}
	after := before
	if err := tx.QueryRow(ctx, `UPDATE accounts SET is_active=FALSE, updated_at=NOW() WHERE id=$1 RETURNING updated_at`, before.ID).
		Scan(&after.UpdatedAt); err != nil {
		return Account{}, Account{}, err
	}
	after.IsActive = false
	return before, after, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code)
}

func (r *repository) GetByID(ctx context.Context, id int64) (Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
}

func (r *repository) get(ctx context.Context, query string, arg any) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
