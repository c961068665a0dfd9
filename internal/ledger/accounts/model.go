package accounts

import "time"

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether the type is one of the five ledger categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance records the side on which an account conventionally grows.
// It is informational metadata; posting applies a uniform sign convention.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "debit"
	NormalBalanceCredit NormalBalance = "credit"
)

// AccountStatus enumerates account lifecycle values.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusArchived AccountStatus = "archived"
)

// Account models a chart of accounts node.
type Account struct {
	ID               int64         `json:"id"`
	AccountCode      string        `json:"accountCode"`
	AccountName      string        `json:"accountName"`
	AccountType      AccountType   `json:"accountType"`
	AccountSubType   string        `json:"accountSubType,omitempty"`
	NormalBalance    NormalBalance `json:"normalBalance"`
	OpeningBalance   float64       `json:"openingBalance"`
	CurrentBalance   float64       `json:"currentBalance"`
	ParentAccount    *int64        `json:"parentAccount,omitempty"`
	Level            int           `json:"level"`
	IsDetailAccount  bool          `json:"isDetailAccount"`
	AllowManualEntry bool          `json:"allowManualEntry"`
	Status           AccountStatus `json:"status"`
	Removed          bool          `json:"-"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Postable reports whether journal lines may target this account.
func (a Account) Postable() bool {
	return a.IsDetailAccount && a.Status == AccountStatusActive && !a.Removed
}

// Node is an account with its nested children, produced by the hierarchy query.
type Node struct {
	Account
	Children []*Node `json:"children,omitempty"`
}
