package journals

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus enumerates journal entry lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "draft"
	EntryStatusPosted    EntryStatus = "posted"
	EntryStatusReversed  EntryStatus = "reversed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// EntryType enumerates how an entry originated.
type EntryType string

const (
	EntryTypeManual     EntryType = "manual"
	EntryTypeAutomatic  EntryType = "automatic"
	EntryTypeAdjustment EntryType = "adjustment"
	EntryTypeClosing    EntryType = "closing"
)

// Valid reports whether the entry type is known.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeManual, EntryTypeAutomatic, EntryTypeAdjustment, EntryTypeClosing:
		return true
	}
	return false
}

// SourceType discriminates the external document that produced an entry.
type SourceType string

const (
	SourceTypeInvoice   SourceType = "invoice"
	SourceTypePayment   SourceType = "payment"
	SourceTypeProject   SourceType = "project"
	SourceTypeInventory SourceType = "inventory"
	SourceTypeManual    SourceType = "manual"
	SourceTypeOther     SourceType = "other"
)

// Valid reports whether the source type is known.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeInvoice, SourceTypePayment, SourceTypeProject, SourceTypeInventory, SourceTypeManual, SourceTypeOther:
		return true
	}
	return false
}

// SourceRef is the discriminated reference to the originating external
// document: the kind, the collaborator model name, and the document id.
type SourceRef struct {
	SourceType     SourceType `json:"sourceType"`
	SourceModel    string     `json:"sourceModel,omitempty"`
	SourceDocument *uuid.UUID `json:"sourceDocument,omitempty"`
}

// SameLink reports whether two refs resolve to the same idempotency link,
// which is keyed on (sourceType, sourceDocument). Refs without a document
// carry no link at all and compare equal.
func (r SourceRef) SameLink(other SourceRef) bool {
	if r.SourceDocument == nil && other.SourceDocument == nil {
		return true
	}
	if r.SourceDocument == nil || other.SourceDocument == nil {
		return false
	}
	return r.SourceType == other.SourceType && *r.SourceDocument == *other.SourceDocument
}

// Line is a single debit-or-credit leg of a journal entry. Exactly one of
// DebitAccount and CreditAccount is set.
type Line struct {
	ID            int64   `json:"id"`
	EntryID       int64   `json:"-"`
	DebitAccount  *int64  `json:"debitAccount,omitempty"`
	CreditAccount *int64  `json:"creditAccount,omitempty"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
}

// AccountID returns the targeted account regardless of side.
func (l Line) AccountID() int64 {
	if l.DebitAccount != nil {
		return *l.DebitAccount
	}
	if l.CreditAccount != nil {
		return *l.CreditAccount
	}
	return 0
}

// BalanceDelta returns the signed running-balance change the line applies when
// posted: debits increase the account balance, credits decrease it, uniformly
// across account types. Reports re-sign per type.
func (l Line) BalanceDelta() float64 {
	if l.DebitAccount != nil {
		return l.Amount
	}
	return -l.Amount
}

// JournalEntry captures a double-entry transaction and its posting metadata.
type JournalEntry struct {
	ID               int64       `json:"id"`
	EntryNumber      string      `json:"entryNumber"`
	TransactionDate  time.Time   `json:"transactionDate"`
	PostingDate      *time.Time  `json:"postingDate,omitempty"`
	EntryType        EntryType   `json:"entryType"`
	SourceRef                    // flattened: sourceType, sourceModel, sourceDocument
	AccountingPeriod int64       `json:"accountingPeriod"`
	Lines            []Line      `json:"entries"`
	TotalAmount      float64     `json:"totalAmount"`
	Status           EntryStatus `json:"status"`
	IsPosted         bool        `json:"isPosted"`
	PostedAt         *time.Time  `json:"postedAt,omitempty"`
	PostedBy         string      `json:"postedBy,omitempty"`
	ReversalOf       *int64      `json:"reversalOf,omitempty"`
	ReversedBy       *int64      `json:"reversedBy,omitempty"`
	ReversalReason   string      `json:"reversalReason,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}
