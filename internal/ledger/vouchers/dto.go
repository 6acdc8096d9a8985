package vouchers

import (
	"fmt"
	"time"

	"github.com/veritas-erp/veritas-erp/internal/ledger/shared"
)

// LineInput describes one voucher line in a creation request.
type LineInput struct {
	AccountID   int64
	Description string
	Quantity    float64
	UnitPrice   int64
	TotalAmount int64
	IsTaxable   bool
	Debit       int64
	Credit      int64
}

// CreateVoucherInput groups the header and ordered lines for creation.
// IdempotencyKey is optional; when present, a retried request with the same
// key is rejected instead of issuing a second voucher.
type CreateVoucherInput struct {
	DocumentType   DocumentType
	FolioNumber    string
	IssueDate      time.Time
	Description    string
	Subtotal       int64
	TaxAmount      int64
	Total          int64
	CreatedBy      *int64
	IdempotencyKey string
	Lines          []LineInput
}

// Validate runs the structural preconditions: document type, issue date,
// non-negative amounts, minimum line count and an account reference on every
// line. Account resolution and the arithmetic checks follow inside the
// creation transaction, in that order.
func (in CreateVoucherInput) Validate() error {
	if !in.DocumentType.Valid() {
		return fmt.Errorf("ledger: unknown document type %q", in.DocumentType)
	}
	if in.IssueDate.IsZero() {
		return fmt.Errorf("ledger: issue date required")
	}
	if in.Subtotal < 0 || in.TaxAmount < 0 || in.Total < 0 {
		return fmt.Errorf("ledger: header amounts cannot be negative")
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx+1)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx+1)
		}
	}
	return nil
}

// ValidateAmounts runs the arithmetic checks, after every line account has
// resolved: header total, aggregate balance and the one-sided rule.
func (in CreateVoucherInput) ValidateAmounts() error {
	if in.Subtotal+in.TaxAmount != in.Total {
		return fmt.Errorf("%w: subtotal %d + tax %d != total %d",
			shared.ErrAmountMismatch, in.Subtotal, in.TaxAmount, in.Total)
	}
	var debit, credit int64
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	if debit != credit {
		return fmt.Errorf("%w: debit %d != credit %d", shared.ErrUnbalanced, debit, credit)
	}
	for idx, line := range in.Lines {
		if (line.Debit == 0) == (line.Credit == 0) {
			return fmt.Errorf("%w: line %d must carry exactly one of debit or credit",
				shared.ErrUnbalanced, idx+1)
		}
	}
	return nil
}

// ListFilters narrow a voucher listing.
type ListFilters struct {
	Year   int
	Status Status
}
