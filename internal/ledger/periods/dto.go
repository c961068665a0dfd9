package periods

import (
	"errors"
	"time"
)

// CreateInput carries fields for registering a single period.
type CreateInput struct {
	FiscalYear   int       `json:"fiscalYear" validate:"required"`
	PeriodNumber int       `json:"periodNumber" validate:"required,min=1"`
	PeriodType   string    `json:"periodType" validate:"required,oneof=monthly quarterly annually"`
	StartDate    time.Time `json:"startDate" validate:"required"`
	EndDate      time.Time `json:"endDate" validate:"required"`
	IsCurrent    bool      `json:"isCurrent"`
}

// Validate ensures the window is coherent.
func (in CreateInput) Validate() error {
	if in.FiscalYear == 0 {
		return errors.New("ledger: fiscal year required")
	}
	if in.PeriodNumber < 1 {
		return errors.New("ledger: period number required")
	}
	switch PeriodType(in.PeriodType) {
	case PeriodTypeMonthly, PeriodTypeQuarterly, PeriodTypeAnnually:
	default:
		return errors.New("ledger: unknown period type")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return errors.New("ledger: start and end date required")
	}
	if !in.StartDate.Before(in.EndDate) {
		return errors.New("ledger: start date must precede end date")
	}
	return nil
}

// CreateYearInput requests a batch of periods covering a fiscal year.
type CreateYearInput struct {
	FiscalYear int    `json:"fiscalYear" validate:"required"`
	PeriodType string `json:"periodType" validate:"required,oneof=monthly quarterly annually"`
}

// Validate checks the batch request.
func (in CreateYearInput) Validate() error {
	if in.FiscalYear == 0 {
		return errors.New("ledger: fiscal year required")
	}
	switch PeriodType(in.PeriodType) {
	case PeriodTypeMonthly, PeriodTypeQuarterly, PeriodTypeAnnually:
	default:
		return errors.New("ledger: unknown period type")
	}
	return nil
}

// TransitionInput identifies the actor driving a close or lock.
type TransitionInput struct {
	PeriodID int64
	Actor    string
}
