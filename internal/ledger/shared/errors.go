package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit beyond the 0.01 tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrDuplicateCode indicates the account code is already registered.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrInvalidParent indicates the parent account is missing or cyclic.
	ErrInvalidParent = errors.New("ledger: invalid parent account")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountNotPostable indicates a header, inactive, or removed account.
	ErrAccountNotPostable = errors.New("ledger: account does not accept postings")
	// ErrAccountInUse indicates the account has postings or a non-zero balance.
	ErrAccountInUse = errors.New("ledger: account in use")
	// ErrJournalNotFound indicates a missing entry.
	ErrJournalNotFound = errors.New("ledger: journal entry not found")
	// ErrAlreadyPosted indicates the entry left draft status.
	ErrAlreadyPosted = errors.New("ledger: journal entry already posted")
	// ErrNotPosted indicates the entry is not in posted status.
	ErrNotPosted = errors.New("ledger: journal entry not posted")
	// ErrAlreadyReversed indicates a second reversal attempt.
	ErrAlreadyReversed = errors.New("ledger: journal entry already reversed")
	// ErrNotDraft indicates edit/delete of a non-draft entry.
	ErrNotDraft = errors.New("ledger: journal entry is not a draft")
	// ErrPeriodNotFound indicates a missing period.
	ErrPeriodNotFound = errors.New("ledger: accounting period not found")
	// ErrPeriodClosed indicates a closed or locked period rejected a posting.
	ErrPeriodClosed = errors.New("ledger: accounting period closed")
	// ErrPeriodHasDrafts indicates close was attempted with drafts remaining.
	ErrPeriodHasDrafts = errors.New("ledger: accounting period has draft entries")
	// ErrDateOutOfRange indicates the transaction date falls outside its period.
	ErrDateOutOfRange = errors.New("ledger: date outside accounting period")
	// ErrPeriodOverlap indicates the date range collides with another period.
	ErrPeriodOverlap = errors.New("ledger: accounting period overlaps")
	// ErrInvalidTransition indicates a lifecycle regression.
	ErrInvalidTransition = errors.New("ledger: invalid status transition")
	// ErrReportNotFound indicates a missing report.
	ErrReportNotFound = errors.New("ledger: financial report not found")
	// ErrSourceAlreadyLinked indicates source-document idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("ledger: source document already linked")
	// ErrSourceConflict indicates the source link insert hit its unique constraint.
	ErrSourceConflict = errors.New("ledger: source link conflict")
	// ErrMappingNotFound indicates an unmapped integration key.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
)
