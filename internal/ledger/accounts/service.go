package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-erp/veritas-erp/internal/audit"
)

// Auditor couples a mutation with its audit entry in one transaction.
type Auditor interface {
	Apply(ctx context.Context, fn func(pgx.Tx) (audit.Entry, error)) error
}

// Service is the account registry contract: setup, deactivation and
// resolution for voucher line validation.
type Service struct {
	repo    Repository
	auditor Auditor
	now     func() time.Time
}

// NewService constructs the registry service.
func NewService(repo Repository, auditor Auditor) *Service {
	return &Service{repo: repo, auditor: auditor, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create adds an account to the chart. Codes are unique across active and
// inactive accounts alike.
func (s *Service) Create(ctx context.Context, in CreateAccountInput) (Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return Account{}, errors.New("ledger: account code required")
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("ledger: unknown account type %q", in.Type)
	}
	var created Account
	err := s.auditor.Apply(ctx, func(tx pgx.Tx) (audit.Entry, error) {
		a, err := s.repo.CreateTx(ctx, tx, in)
		if err != nil {
			return audit.Entry{}, err
		}
		snap, err := audit.Snapshot(accountSnapshot(a))
		if err != nil {
			return audit.Entry{}, err
		}
		entry := audit.NewEntry(ctx, audit.ActionCreate, "account", a.Code)
		entry.NewValues = snap
		entry.Timestamp = s.now()
		created = a
		return entry, nil
	})
	if err != nil {
		return Account{}, err
	}
	return created, nil
}

// Deactivate flips the active flag. Always allowed: accounts referenced by
// history are retired this way instead of being deleted.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	return s.auditor.Apply(ctx, func(tx pgx.Tx) (audit.Entry, error) {
		before, after, err := s.repo.DeactivateTx(ctx, tx, code)
		if err != nil {
			return audit.Entry{}, err
		}
		oldVals, newVals, err := audit.DiffFields(
			map[string]any{"is_active": before.IsActive},
			map[string]any{"is_active": after.IsActive},
		)
		if err != nil {
			return audit.Entry{}, err
		}
		entry := audit.NewEntry(ctx, audit.ActionUpdate, "account", after.Code)
		entry.OldValues = oldVals
		entry.NewValues = newVals
		entry.Timestamp = s.now()
		return entry, nil
	})
}

// Resolve looks an account up by code.
func (s *Service) Resolve(ctx context.Context, code string) (Account, error) {
	return s.repo.GetByCode(ctx, code)
}

// ResolveID looks an account up by id.
func (s *Service) ResolveID(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the chart of accounts ordered by code.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func accountSnapshot(a Account) map[string]any {
	return map[string]any{
		"code":      a.Code,
		"name":      a.Name,
		"type":      string(a.Type),
		"category":  a.Category,
		"is_active": a.IsActive,
	}
}
