// Package accounts owns the chart of accounts.
package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the type belongs to the closed set.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Codes are hierarchical strings
// such as "4.1.1"; accounts referenced by history are deactivated, never
// hard-deleted.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	Category  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
