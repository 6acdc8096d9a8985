// Package shared holds sentinel errors common to the ledger modules.
package shared

import "errors"

var (
	// ErrDuplicateCode indicates the account code already exists, active or not.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrInvalidAccount indicates a line references a missing or inactive account.
	ErrInvalidAccount = errors.New("ledger: line references an invalid account")
	// ErrAmountMismatch indicates total != subtotal + tax.
	ErrAmountMismatch = errors.New("ledger: total does not equal subtotal plus tax")
	// ErrUnbalanced indicates the voucher lines do not balance.
	ErrUnbalanced = errors.New("ledger: voucher lines must balance")
	// ErrTooFewLines indicates fewer than two lines.
	ErrTooFewLines = errors.New("ledger: voucher requires at least two lines")
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrInvalidStateTransition indicates the status change is not allowed.
	ErrInvalidStateTransition = errors.New("ledger: invalid status transition")
)
