// Package vouchers is the ledger engine: the only component allowed to
// create or mutate vouchers and their lines.
package vouchers

import "time"

// Status enumerates the voucher lifecycle. Transitions are linear:
// pending -> posted -> paid, with no reverse edges.
type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
	StatusPaid    Status = "paid"
)

// DocumentType enumerates the supported accounting documents.
type DocumentType string

const (
	DocumentFactura DocumentType = "factura"
	DocumentBoleta  DocumentType = "boleta"
	DocumentVoucher DocumentType = "voucher"
)

// Valid reports whether the document type belongs to the closed set.
func (d DocumentType) Valid() bool {
	switch d {
	case DocumentFactura, DocumentBoleta, DocumentVoucher:
		return true
	}
	return false
}

// Voucher is one accounting document composed of balanced lines. Amounts are
// integer minor currency units; no floating point enters the arithmetic.
// Once posted, the voucher and its lines are immutable except for the
// posted -> paid transition.
type Voucher struct {
	ID           int64
	Number       string
	DocumentType DocumentType
	FolioNumber  string
	IssueDate    time.Time
	Description  string
	Subtotal     int64
	TaxAmount    int64
	Total        int64
	Status       Status
	CreatedBy    *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []Line
}

// Line is one debit or credit against a registry account. Exactly one of
// Debit/Credit is non-zero.
type Line struct {
	ID          int64
	VoucherID   int64
	AccountID   int64
	Description string
	Quantity    float64
	UnitPrice   int64
	TotalAmount int64
	IsTaxable   bool
	Debit       int64
	Credit      int64
	LineOrder   int
}
