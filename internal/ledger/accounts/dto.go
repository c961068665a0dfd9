package accounts

import (
	"errors"
	"strings"
)

// CreateInput carries the fields accepted when registering an account.
type CreateInput struct {
	AccountCode      string  `json:"accountCode" validate:"required"`
	AccountName      string  `json:"accountName" validate:"required"`
	AccountType      string  `json:"accountType" validate:"required,oneof=asset liability equity revenue expense"`
	AccountSubType   string  `json:"accountSubType"`
	NormalBalance    string  `json:"normalBalance" validate:"required,oneof=debit credit"`
	OpeningBalance   float64 `json:"openingBalance"`
	ParentAccount    *int64  `json:"parentAccount"`
	IsDetailAccount  bool    `json:"isDetailAccount"`
	AllowManualEntry bool    `json:"allowManualEntry"`
}

// Validate ensures the input meets minimum criteria.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.AccountCode) == "" {
		return errors.New("ledger: account code required")
	}
	if strings.TrimSpace(in.AccountName) == "" {
		return errors.New("ledger: account name required")
	}
	if !AccountType(in.AccountType).Valid() {
		return errors.New("ledger: unknown account type")
	}
	if in.NormalBalance != string(NormalBalanceDebit) && in.NormalBalance != string(NormalBalanceCredit) {
		return errors.New("ledger: normal balance must be debit or credit")
	}
	return nil
}
