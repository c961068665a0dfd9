package periods

import "time"

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "open"
	PeriodStatusClosed PeriodStatus = "closed"
	PeriodStatusLocked PeriodStatus = "locked"
)

// PeriodType enumerates the supported period granularities.
type PeriodType string

const (
	PeriodTypeMonthly   PeriodType = "monthly"
	PeriodTypeQuarterly PeriodType = "quarterly"
	PeriodTypeAnnually  PeriodType = "annually"
)

// Period represents a fiscal period window. Start and end form a half-open
// interval [StartDate, EndDate).
type Period struct {
	ID           int64        `json:"id"`
	FiscalYear   int          `json:"fiscalYear"`
	PeriodNumber int          `json:"periodNumber"`
	PeriodType   PeriodType   `json:"periodType"`
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`
	Status       PeriodStatus `json:"status"`
	IsCurrent    bool         `json:"isCurrent"`
	ClosedAt     *time.Time   `json:"closedAt,omitempty"`
	ClosedBy     *string      `json:"closedBy,omitempty"`
	LockedAt     *time.Time   `json:"lockedAt,omitempty"`
	LockedBy     *string      `json:"lockedBy,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Contains reports whether the date falls inside the half-open window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && date.Before(p.EndDate)
}

// AcceptsPostings reports whether new journal activity is permitted.
func (p Period) AcceptsPostings() bool {
	return p.Status == PeriodStatusOpen
}
