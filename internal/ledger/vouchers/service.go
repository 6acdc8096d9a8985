package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/veritas-erp/veritas-erp/internal/audit"
	"github.com/veritas-erp/veritas-erp/internal/ledger/shared"
	internalShared "github.com/veritas-erp/veritas-erp/internal/shared"
)

// Service drives the voucher lifecycle. Structural checks run up front;
// account resolution and the balance checks run inside the creation
// transaction, whose only outcomes are full commit or full rollback.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the ledger engine service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates the input, assigns the next number for the issue year and
// persists voucher, lines and audit entry atomically. A failed attempt may
// burn a sequence value but never issues a duplicate.
func (s *Service) Create(ctx context.Context, in CreateVoucherInput) (Voucher, error) {
	if err := in.Validate(); err != nil {
		return Voucher{}, err
	}
	var created Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.IdempotencyKey != "" {
			if err := tx.ClaimIdempotencyKey(ctx, in.IdempotencyKey); err != nil {
				return err
			}
		}
		for idx, line := range in.Lines {
			account, err := tx.GetAccountForPosting(ctx, line.AccountID)
			if err != nil {
				if errors.Is(err, shared.ErrAccountNotFound) {
					return fmt.Errorf("%w: line %d references unknown account %d",
						shared.ErrInvalidAccount, idx+1, line.AccountID)
				}
				return err
			}
			if !account.IsActive {
				return fmt.Errorf("%w: line %d references inactive account %s",
					shared.ErrInvalidAccount, idx+1, account.Code)
			}
		}
		if err := in.ValidateAmounts(); err != nil {
			return err
		}
		year := in.IssueDate.Year()
		seq, err := tx.NextSequence(ctx, year)
		if err != nil {
			return err
		}
		number := fmt.Sprintf("V%d-%d", year, seq)
		voucher, err := tx.InsertVoucher(ctx, in, number)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, voucher.ID, in.Lines); err != nil {
			return err
		}
		voucher.Lines = toLines(voucher.ID, in.Lines)

		snap, err := audit.Snapshot(voucherSnapshot(voucher))
		if err != nil {
			return err
		}
		entry := audit.NewEntry(ctx, audit.ActionCreate, "voucher", strconv.FormatInt(voucher.ID, 10))
		if in.CreatedBy != nil {
			entry.UserID = in.CreatedBy
		}
		entry.NewValues = snap
		entry.Timestamp = s.now()
		if err := tx.RecordAudit(ctx, entry); err != nil {
			return err
		}
		created = voucher
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	return created, nil
}

// Post freezes the voucher: pending -> posted. After this the voucher and
// its lines accept no edits beyond the posted -> paid transition.
func (s *Service) Post(ctx context.Context, id int64) (Voucher, error) {
	return s.transition(ctx, id, StatusPending, StatusPosted)
}

// MarkPaid settles a posted voucher: posted -> paid.
func (s *Service) MarkPaid(ctx context.Context, id int64) (Voucher, error) {
	return s.transition(ctx, id, StatusPosted, StatusPaid)
}

func (s *Service) transition(ctx context.Context, id int64, from, to Status) (Voucher, error) {
	var updated Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != from {
			return fmt.Errorf("%w: voucher %s is %s, expected %s",
				shared.ErrInvalidStateTransition, current.Number, current.Status, from)
		}
		if err := tx.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		oldVals, newVals, err := audit.DiffFields(
			map[string]any{"status": string(from)},
			map[string]any{"status": string(to)},
		)
		if err != nil {
			return err
		}
		entry := audit.NewEntry(ctx, audit.ActionUpdate, "voucher", strconv.FormatInt(id, 10))
		entry.OldValues = oldVals
		entry.NewValues = newVals
		entry.Timestamp = s.now()
		if err := tx.RecordAudit(ctx, entry); err != nil {
			return err
		}
		updated = current
		updated.Status = to
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	return updated, nil
}

// Get returns the voucher with its lines in presentation order.
func (s *Service) Get(ctx context.Context, id int64) (Voucher, error) {
	return s.repo.Get(ctx, id)
}

// List returns vouchers matching filters plus the total match count.
func (s *Service) List(ctx context.Context, filters ListFilters, page internalShared.Page) ([]Voucher, int, error) {
	return s.repo.List(ctx, filters, page.Normalize())
}

func toLines(voucherID int64, inputs []LineInput) []Line {
	out := make([]Line, 0, len(inputs))
	for idx, in := range inputs {
		out = append(out, Line{
			VoucherID:   voucherID,
			AccountID:   in.AccountID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TotalAmount: in.TotalAmount,
			IsTaxable:   in.IsTaxable,
			Debit:       in.Debit,
			Credit:      in.Credit,
			LineOrder:   idx,
		})
	}
	return out
}

func voucherSnapshot(v Voucher) map[string]any {
	lines := make([]map[string]any, 0, len(v.Lines))
	for _, l := range v.Lines {
		lines = append(lines, map[string]any{
			"account_id": l.AccountID,
			"debit":      l.Debit,
			"credit":     l.Credit,
			"line_order": l.LineOrder,
		})
	}
	return map[string]any{
		"voucher_number": v.Number,
		"document_type":  string(v.DocumentType),
		"folio_number":   v.FolioNumber,
		"issue_date":     v.IssueDate.Format("2006-01-02"),
		"subtotal":       v.Subtotal,
		"tax_amount":     v.TaxAmount,
		"total":          v.Total,
		"status":         string(v.Status),
		"lines":          lines,
	}
}
