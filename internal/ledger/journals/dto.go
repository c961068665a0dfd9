package journals

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// LineInput describes one journal line in a create or edit request. Exactly
// one of DebitAccount and CreditAccount must be set.
type LineInput struct {
	DebitAccount  *int64  `json:"debitAccount"`
	CreditAccount *int64  `json:"creditAccount"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
}

// CreateInput groups the fields required to create a draft journal entry.
type CreateInput struct {
	TransactionDate  time.Time   `json:"transactionDate" validate:"required"`
	EntryType        string      `json:"entryType" validate:"required,oneof=manual automatic adjustment closing"`
	SourceType       string      `json:"sourceType" validate:"required,oneof=invoice payment project inventory manual other"`
	SourceModel      string      `json:"sourceModel"`
	SourceDocument   *uuid.UUID  `json:"sourceDocument"`
	AccountingPeriod int64       `json:"accountingPeriod" validate:"required"`
	Lines            []LineInput `json:"entries" validate:"required,min=2,dive"`
	CreatedBy        string      `json:"-"`
}

// Validate ensures the input meets the balance invariant and line rules.
func (in CreateInput) Validate() error {
	if in.AccountingPeriod == 0 {
		return errors.New("ledger: accounting period required")
	}
	if in.TransactionDate.IsZero() {
		return errors.New("ledger: transaction date required")
	}
	if !EntryType(in.EntryType).Valid() {
		return errors.New("ledger: unknown entry type")
	}
	if !SourceType(in.SourceType).Valid() {
		return errors.New("ledger: unknown source type")
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.DebitAccount == nil && line.CreditAccount == nil {
			return fmt.Errorf("ledger: line %d must set a debit or credit account", idx)
		}
		if line.DebitAccount != nil && line.CreditAccount != nil {
			return fmt.Errorf("ledger: line %d cannot set both debit and credit accounts", idx)
		}
		if line.Amount <= 0 {
			return fmt.Errorf("ledger: line %d amount must be positive", idx)
		}
		if strings.TrimSpace(line.Description) == "" {
			return fmt.Errorf("ledger: line %d description required", idx)
		}
		if line.DebitAccount != nil {
			debit += line.Amount
		} else {
			credit += line.Amount
		}
	}
	if !shared.Balanced(debit, credit) {
		return shared.ErrUnbalanced
	}
	return nil
}

// TotalAmount derives the entry total, recomputed on every save: the sum of
// every line amount across both sides.
func (in CreateInput) TotalAmount() float64 {
	var total float64
	for _, line := range in.Lines {
		total += line.Amount
	}
	return shared.Round2(total)
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID int64
	Reason  string
	Actor   string
}

// ListFilter pages and narrows entry listings.
type ListFilter struct {
	PeriodID int64
	Status   EntryStatus
	Limit    int
	Offset   int
}
