package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-erp/keystone/internal/ledger/shared"
	internalshared "github.com/keystone-erp/keystone/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service coordinates creating, posting, reversing, and cancelling journal
// entries. Posting mutates account running balances: debit lines increase the
// target balance, credit lines decrease it, uniformly across account types.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the journal engine.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns journal entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.GetWithLines(ctx, entryID)
}

// Create validates and persists a new draft entry. The owning period must be
// open and every targeted account must be an active detail account.
func (s *Service) Create(ctx context.Context, input CreateInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, input.AccountingPeriod)
		if err != nil {
			return err
		}
		if !period.AcceptsPostings() {
			return shared.ErrPeriodClosed
		}
		if !period.Contains(input.TransactionDate) {
			return shared.ErrDateOutOfRange
		}
		lines, err := s.checkLines(ctx, tx, EntryType(input.EntryType), input.Lines)
		if err != nil {
			return err
		}
		number, err := tx.NextEntryNumber(ctx)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			EntryNumber:     number,
			TransactionDate: input.TransactionDate,
			EntryType:       EntryType(input.EntryType),
			SourceRef: SourceRef{
				SourceType:     SourceType(input.SourceType),
				SourceModel:    input.SourceModel,
				SourceDocument: input.SourceDocument,
			},
			AccountingPeriod: input.AccountingPeriod,
			TotalAmount:      input.TotalAmount(),
			Status:           EntryStatusDraft,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, inserted.SourceRef, inserted.ID); err != nil {
			if errors.Is(err, shared.ErrSourceConflict) {
				return shared.ErrSourceAlreadyLinked
			}
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.CreatedBy, "journal.create", entry.ID, map[string]any{
		"entryNumber": entry.EntryNumber,
		"sourceType":  entry.SourceType,
		"totalAmount": entry.TotalAmount,
	})
	return entry, nil
}

// checkLines verifies each targeted account accepts postings and converts
// inputs into persisted lines.
func (s *Service) checkLines(ctx context.Context, tx TxRepository, entryType EntryType, inputs []LineInput) ([]Line, error) {
	lines := make([]Line, 0, len(inputs))
	for idx, in := range inputs {
		line := Line{
			DebitAccount:  in.DebitAccount,
			CreditAccount: in.CreditAccount,
			Amount:        shared.Round2(in.Amount),
			Description:   in.Description,
		}
		account, err := tx.GetPostingAccount(ctx, line.AccountID())
		if err != nil {
			return nil, fmt.Errorf("ledger: line %d: %w", idx, err)
		}
		if !account.Postable() {
			return nil, fmt.Errorf("ledger: line %d account %s: %w", idx, account.AccountCode, shared.ErrAccountNotPostable)
		}
		if entryType == EntryTypeManual && !account.AllowManualEntry {
			return nil, fmt.Errorf("ledger: line %d account %s: %w", idx, account.AccountCode, shared.ErrAccountNotPostable)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// UpdateDraft replaces the lines and header fields of a draft entry, re-running
// the same validation as Create. Posted and reversed entries are immutable.
func (s *Service) UpdateDraft(ctx context.Context, entryID int64, input CreateInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrNotDraft
		}
		period, err := tx.GetPeriodForUpdate(ctx, input.AccountingPeriod)
		if err != nil {
			return err
		}
		if !period.AcceptsPostings() {
			return shared.ErrPeriodClosed
		}
		if !period.Contains(input.TransactionDate) {
			return shared.ErrDateOutOfRange
		}
		lines, err := s.checkLines(ctx, tx, EntryType(input.EntryType), input.Lines)
		if err != nil {
			return err
		}
		previousRef := current.SourceRef
		current.TransactionDate = input.TransactionDate
		current.EntryType = EntryType(input.EntryType)
		current.SourceRef = SourceRef{
			SourceType:     SourceType(input.SourceType),
			SourceModel:    input.SourceModel,
			SourceDocument: input.SourceDocument,
		}
		current.AccountingPeriod = input.AccountingPeriod
		current.TotalAmount = input.TotalAmount()
		if err := tx.UpdateDraft(ctx, current); err != nil {
			return err
		}
		if err := tx.ReplaceLines(ctx, entryID, lines); err != nil {
			return err
		}
		// An edit that changes the source document must move the idempotency
		// link with it, or the old document stays blocked and the new one is
		// left unprotected.
		if !previousRef.SameLink(current.SourceRef) {
			if err := tx.UnlinkSource(ctx, entryID); err != nil {
				return err
			}
			if err := tx.LinkSource(ctx, current.SourceRef, entryID); err != nil {
				if errors.Is(err, shared.ErrSourceConflict) {
					return shared.ErrSourceAlreadyLinked
				}
				return err
			}
		}
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.CreatedBy, "journal.update", entry.ID, map[string]any{
		"entryNumber": entry.EntryNumber,
	})
	return entry, nil
}

// Post applies a draft entry to account balances and flips it to posted. The
// status flip is a conditional update, so when two callers race exactly one
// succeeds and the other observes ErrAlreadyPosted. All line deltas and the
// flip commit as one transaction.
func (s *Service) Post(ctx context.Context, entryID int64, actor string) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.IsPosted {
			return shared.ErrAlreadyPosted
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrNotDraft
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.AccountingPeriod)
		if err != nil {
			return err
		}
		if !period.AcceptsPostings() {
			return shared.ErrPeriodClosed
		}
		postedAt := s.now()
		if err := tx.MarkPosted(ctx, current.ID, postedAt, actor); err != nil {
			return err
		}
		lines, err := tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.ApplyBalanceDelta(ctx, line.AccountID(), line.BalanceDelta()); err != nil {
				return fmt.Errorf("ledger: entry %s: %w", current.EntryNumber, err)
			}
		}
		current.Status = EntryStatusPosted
		current.IsPosted = true
		current.PostingDate = &postedAt
		current.PostedAt = &postedAt
		current.PostedBy = actor
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actor, "journal.post", entry.ID, map[string]any{
		"entryNumber": entry.EntryNumber,
		"totalAmount": entry.TotalAmount,
	})
	return entry, nil
}

// Reverse builds and immediately posts a balancing entry whose lines swap each
// original line's debit and credit side, then marks the original reversed.
// The original's balances are not rolled back directly; the rollback happens
// entirely through the reversing entry's postings.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if original.Status == EntryStatusReversed {
			return shared.ErrAlreadyReversed
		}
		if original.Status != EntryStatusPosted {
			return shared.ErrNotPosted
		}
		period, err := tx.GetPeriodForUpdate(ctx, original.AccountingPeriod)
		if err != nil {
			return err
		}
		if !period.AcceptsPostings() {
			return shared.ErrPeriodClosed
		}
		originalLines, err := tx.GetLines(ctx, original.ID)
		if err != nil {
			return err
		}
		postedAt := s.now()
		lines := reverseLines(originalLines)
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			EntryNumber:     "REV-" + original.EntryNumber,
			TransactionDate: original.TransactionDate,
			PostingDate:     &postedAt,
			EntryType:       original.EntryType,
			SourceRef: SourceRef{
				SourceType:  original.SourceType,
				SourceModel: "JournalEntry",
			},
			AccountingPeriod: original.AccountingPeriod,
			TotalAmount:      original.TotalAmount,
			Status:           EntryStatusPosted,
			IsPosted:         true,
			PostedAt:         &postedAt,
			PostedBy:         input.Actor,
			ReversalOf:       &original.ID,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.ApplyBalanceDelta(ctx, line.AccountID(), line.BalanceDelta()); err != nil {
				return fmt.Errorf("ledger: reversal of %s: %w", original.EntryNumber, err)
			}
		}
		if err := tx.MarkReversed(ctx, original.ID, inserted.ID, input.Reason); err != nil {
			return err
		}
		inserted.Lines = lines
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.Actor, "journal.reverse", input.EntryID, map[string]any{
		"reversalNumber": reversal.EntryNumber,
		"reason":         input.Reason,
	})
	return reversal, nil
}

// Cancel retires a draft entry without posting it.
func (s *Service) Cancel(ctx context.Context, entryID int64, actor string) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrNotDraft
		}
		if err := tx.MarkCancelled(ctx, current.ID); err != nil {
			return err
		}
		current.Status = EntryStatusCancelled
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actor, "journal.cancel", entry.ID, map[string]any{
		"entryNumber": entry.EntryNumber,
	})
	return entry, nil
}

// Delete removes a draft entry entirely.
func (s *Service) Delete(ctx context.Context, entryID int64, actor string) error {
	if err := s.repo.DeleteDraft(ctx, entryID); err != nil {
		return err
	}
	s.record(ctx, actor, "journal.delete", entryID, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

func reverseLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, Line{
			DebitAccount:  line.CreditAccount,
			CreditAccount: line.DebitAccount,
			Amount:        line.Amount,
			Description:   "Reversal: " + line.Description,
		})
	}
	return out
}
