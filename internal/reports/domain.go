// Package reports is the read-side query gateway: filtered views over ledger
// state and the audit trail for review screens. It enforces no invariants of
// its own.
package reports

import "time"

// SummaryRow aggregates posted voucher lines for one account.
type SummaryRow struct {
	AccountCode string
	AccountName string
	AccountType string
	Debit       int64
	Credit      int64
	Balance     int64
}

// LedgerSummary is the per-account aggregate over all posted vouchers,
// optionally restricted to one year.
type LedgerSummary struct {
	Year int
	Rows []SummaryRow
}

// BookLine is one voucher line as it appears in the voucher book.
type BookLine struct {
	AccountCode string
	AccountName string
	Description string
	Debit       int64
	Credit      int64
}

// BookEntry is one voucher with its lines, in issue order.
type BookEntry struct {
	VoucherNumber string
	DocumentType  string
	FolioNumber   string
	IssueDate     time.Time
	Description   string
	Total         int64
	Status        string
	Lines         []BookLine
}

// VoucherBook lists a year's vouchers with their lines for review.
type VoucherBook struct {
	Year    int
	Entries []BookEntry
}
