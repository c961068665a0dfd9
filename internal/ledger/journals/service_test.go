package journals

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/keystone-erp/keystone/internal/ledger/periods"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
	internalshared "github.com/keystone-erp/keystone/internal/shared"
)

type stubRepo struct {
	entries  map[int64]JournalEntry
	lines    map[int64][]Line
	accounts map[int64]PostingAccount
	balances map[int64]float64
	periods  map[int64]periods.Period
	links    map[string]int64
	nextID   int64
	seq      int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		entries:  map[int64]JournalEntry{},
		lines:    map[int64][]Line{},
		accounts: map[int64]PostingAccount{},
		balances: map[int64]float64{},
		periods:  map[int64]periods.Period{},
		links:    map[string]int64{},
	}
}

func (s *stubRepo) List(_ context.Context, filter ListFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range s.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.PeriodID != 0 && e.AccountingPeriod != filter.PeriodID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *stubRepo) GetWithLines(_ context.Context, entryID int64) (JournalEntry, error) {
	e, ok := s.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	e.Lines = s.lines[entryID]
	return e, nil
}

func (s *stubRepo) DeleteDraft(_ context.Context, entryID int64) error {
	e, ok := s.entries[entryID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	if e.Status != EntryStatusDraft {
		return shared.ErrNotDraft
	}
	delete(s.entries, entryID)
	delete(s.lines, entryID)
	return nil
}

func (s *stubRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, s)
}

func (s *stubRepo) NextEntryNumber(_ context.Context) (string, error) {
	s.seq++
	return fmt.Sprintf("JE-%06d", s.seq), nil
}

func (s *stubRepo) InsertEntry(_ context.Context, entry JournalEntry) (JournalEntry, error) {
	s.nextID++
	entry.ID = s.nextID
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *stubRepo) InsertLines(_ context.Context, entryID int64, lines []Line) error {
	s.lines[entryID] = append([]Line(nil), lines...)
	return nil
}

func (s *stubRepo) ReplaceLines(_ context.Context, entryID int64, lines []Line) error {
	s.lines[entryID] = append([]Line(nil), lines...)
	return nil
}

func (s *stubRepo) GetEntryForUpdate(_ context.Context, entryID int64) (JournalEntry, error) {
	e, ok := s.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return e, nil
}

func (s *stubRepo) GetLines(_ context.Context, entryID int64) ([]Line, error) {
	return s.lines[entryID], nil
}

func (s *stubRepo) UpdateDraft(_ context.Context, entry JournalEntry) error {
	current, ok := s.entries[entry.ID]
	if !ok || current.Status != EntryStatusDraft {
		return shared.ErrNotDraft
	}
	entry.Status = current.Status
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubRepo) MarkPosted(_ context.Context, entryID int64, at time.Time, by string) error {
	e, ok := s.entries[entryID]
	if !ok || e.Status != EntryStatusDraft {
		return shared.ErrAlreadyPosted
	}
	e.Status = EntryStatusPosted
	e.IsPosted = true
	e.PostingDate = &at
	e.PostedAt = &at
	e.PostedBy = by
	s.entries[entryID] = e
	return nil
}

func (s *stubRepo) MarkReversed(_ context.Context, entryID, reversedBy int64, reason string) error {
	e, ok := s.entries[entryID]
	if !ok || e.Status != EntryStatusPosted {
		return shared.ErrAlreadyReversed
	}
	e.Status = EntryStatusReversed
	e.ReversedBy = &reversedBy
	e.ReversalReason = reason
	s.entries[entryID] = e
	return nil
}

func (s *stubRepo) MarkCancelled(_ context.Context, entryID int64) error {
	e, ok := s.entries[entryID]
	if !ok || e.Status != EntryStatusDraft {
		return shared.ErrNotDraft
	}
	e.Status = EntryStatusCancelled
	s.entries[entryID] = e
	return nil
}

func (s *stubRepo) ApplyBalanceDelta(_ context.Context, accountID int64, delta float64) error {
	if _, ok := s.accounts[accountID]; !ok {
		return shared.ErrAccountNotFound
	}
	s.balances[accountID] = shared.Round2(s.balances[accountID] + delta)
	return nil
}

func (s *stubRepo) GetPostingAccount(_ context.Context, accountID int64) (PostingAccount, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return PostingAccount{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (s *stubRepo) LinkSource(_ context.Context, ref SourceRef, entryID int64) error {
	if ref.SourceDocument == nil {
		return nil
	}
	key := string(ref.SourceType) + "/" + ref.SourceDocument.String()
	if _, taken := s.links[key]; taken {
		return shared.ErrSourceConflict
	}
	s.links[key] = entryID
	return nil
}

func (s *stubRepo) UnlinkSource(_ context.Context, entryID int64) error {
	for key, id := range s.links {
		if id == entryID {
			delete(s.links, key)
		}
	}
	return nil
}

func (s *stubRepo) GetPeriodForUpdate(_ context.Context, periodID int64) (periods.Period, error) {
	p, ok := s.periods[periodID]
	if !ok {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return p, nil
}

type stubAudit struct {
	logs []internalshared.AuditLog
}

func (a *stubAudit) Record(_ context.Context, log internalshared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

const (
	cashAccount    int64 = 10
	revenueAccount int64 = 20
	expenseAccount int64 = 30
	summaryAccount int64 = 40
)

func seedLedger(repo *stubRepo) {
	repo.accounts[cashAccount] = PostingAccount{ID: cashAccount, AccountCode: "1101", IsDetailAccount: true, Status: "active", AllowManualEntry: true}
	repo.accounts[revenueAccount] = PostingAccount{ID: revenueAccount, AccountCode: "4101", IsDetailAccount: true, Status: "active", AllowManualEntry: true}
	repo.accounts[expenseAccount] = PostingAccount{ID: expenseAccount, AccountCode: "5101", IsDetailAccount: true, Status: "active", AllowManualEntry: false}
	repo.accounts[summaryAccount] = PostingAccount{ID: summaryAccount, AccountCode: "1100", IsDetailAccount: false, Status: "active", AllowManualEntry: true}
	repo.periods[1] = periods.Period{
		ID: 1, FiscalYear: 2026, PeriodNumber: 3, PeriodType: periods.PeriodTypeMonthly,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:    periods.PeriodStatusOpen,
	}
	repo.periods[2] = periods.Period{
		ID: 2, FiscalYear: 2026, PeriodNumber: 2, PeriodType: periods.PeriodTypeMonthly,
		StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:    periods.PeriodStatusClosed,
	}
}

func acct(id int64) *int64 { return &id }

func saleInput(amount float64) CreateInput {
	return CreateInput{
		TransactionDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		EntryType:        "manual",
		SourceType:       "manual",
		AccountingPeriod: 1,
		CreatedBy:        "tester",
		Lines: []LineInput{
			{DebitAccount: acct(cashAccount), Amount: amount, Description: "Cash received"},
			{CreditAccount: acct(revenueAccount), Amount: amount, Description: "Service revenue"},
		},
	}
}

func TestCreateRejectsUnbalancedEntry(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	in := saleInput(1000)
	in.Lines[1].Amount = 999.50
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("unbalanced entry must not persist")
	}
}

func TestCreateRejectsSingleLine(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	in := saleInput(100)
	in.Lines = in.Lines[:1]
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrTooFewLines) {
		t.Fatalf("expected ErrTooFewLines, got %v", err)
	}
}

func TestCreateRejectsClosedPeriod(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	in := saleInput(100)
	in.AccountingPeriod = 2
	in.TransactionDate = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
}

func TestCreateRejectsDateOutsidePeriod(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	in := saleInput(100)
	in.TransactionDate = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) // end date is exclusive
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrDateOutOfRange) {
		t.Fatalf("expected ErrDateOutOfRange, got %v", err)
	}
}

func TestCreateRejectsSummaryAccount(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	in := saleInput(100)
	in.Lines[0].DebitAccount = acct(summaryAccount)
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrAccountNotPostable) {
		t.Fatalf("expected ErrAccountNotPostable, got %v", err)
	}
}

func TestCreateRejectsManualEntryOnRestrictedAccount(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	in := saleInput(100)
	in.Lines[0].DebitAccount = acct(expenseAccount)
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrAccountNotPostable) {
		t.Fatalf("expected ErrAccountNotPostable for manual entry, got %v", err)
	}

	// The same account accepts system-generated entries.
	in.EntryType = "automatic"
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("automatic entry should pass: %v", err)
	}
}

func TestCreateDraftDoesNotTouchBalances(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Status != EntryStatusDraft || entry.IsPosted {
		t.Fatalf("new entry must be a draft, got %s", entry.Status)
	}
	if entry.EntryNumber != "JE-000001" {
		t.Fatalf("expected JE-000001, got %s", entry.EntryNumber)
	}
	if entry.TotalAmount != 2000 {
		t.Fatalf("total is the sum of all line amounts, got %.2f", entry.TotalAmount)
	}
	if repo.balances[cashAccount] != 0 || repo.balances[revenueAccount] != 0 {
		t.Fatalf("draft must not move balances")
	}
}

func TestPostAppliesUniformSignConvention(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	audit := &stubAudit{}
	svc := NewService(repo, audit)
	fixed := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return fixed })

	entry, err := svc.Create(context.Background(), saleInput(1500))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	posted, err := svc.Post(context.Background(), entry.ID, "poster")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if posted.Status != EntryStatusPosted || !posted.IsPosted {
		t.Fatalf("expected posted status, got %s", posted.Status)
	}
	if posted.PostedAt == nil || !posted.PostedAt.Equal(fixed) {
		t.Fatalf("postedAt not stamped")
	}
	if posted.PostedBy != "poster" {
		t.Fatalf("postedBy not recorded")
	}
	// Debits add, credits subtract, regardless of account type.
	if repo.balances[cashAccount] != 1500 {
		t.Fatalf("cash balance = %.2f, want 1500", repo.balances[cashAccount])
	}
	if repo.balances[revenueAccount] != -1500 {
		t.Fatalf("revenue balance = %.2f, want -1500", repo.balances[revenueAccount])
	}
	last := audit.logs[len(audit.logs)-1]
	if last.Action != "journal.post" {
		t.Fatalf("expected journal.post audit record, got %s", last.Action)
	}
}

func TestPostIsAtMostOnce(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(250))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Post(context.Background(), entry.ID, "a"); err != nil {
		t.Fatalf("first post: %v", err)
	}
	if _, err := svc.Post(context.Background(), entry.ID, "b"); !errors.Is(err, shared.ErrAlreadyPosted) {
		t.Fatalf("expected ErrAlreadyPosted, got %v", err)
	}
	if repo.balances[cashAccount] != 250 {
		t.Fatalf("second post must not move balances again, cash = %.2f", repo.balances[cashAccount])
	}
}

func TestPostRejectsCancelledEntry(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), entry.ID, "tester"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Post(context.Background(), entry.ID, "tester"); !errors.Is(err, shared.ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
}

func TestReverseRestoresBalances(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(800))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Post(context.Background(), entry.ID, "poster"); err != nil {
		t.Fatalf("post: %v", err)
	}
	reversal, err := svc.Reverse(context.Background(), ReverseInput{EntryID: entry.ID, Reason: "wrong customer", Actor: "auditor"})
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if reversal.EntryNumber != "REV-"+entry.EntryNumber {
		t.Fatalf("reversal number = %s", reversal.EntryNumber)
	}
	if reversal.ReversalOf == nil || *reversal.ReversalOf != entry.ID {
		t.Fatalf("reversal must link back to the original")
	}
	if !reversal.IsPosted {
		t.Fatalf("reversal must post immediately")
	}
	// Lines swap sides and keep amounts.
	if reversal.Lines[0].CreditAccount == nil || *reversal.Lines[0].CreditAccount != cashAccount {
		t.Fatalf("first reversal line should credit cash")
	}
	if reversal.Lines[1].DebitAccount == nil || *reversal.Lines[1].DebitAccount != revenueAccount {
		t.Fatalf("second reversal line should debit revenue")
	}
	if repo.balances[cashAccount] != 0 || repo.balances[revenueAccount] != 0 {
		t.Fatalf("reversal must net balances to zero, cash=%.2f revenue=%.2f",
			repo.balances[cashAccount], repo.balances[revenueAccount])
	}
	original, _ := repo.GetWithLines(context.Background(), entry.ID)
	if original.Status != EntryStatusReversed {
		t.Fatalf("original should be reversed, got %s", original.Status)
	}
	if original.ReversalReason != "wrong customer" {
		t.Fatalf("reason not recorded: %q", original.ReversalReason)
	}
	if original.ReversedBy == nil || *original.ReversedBy != reversal.ID {
		t.Fatalf("original should point at the reversing entry")
	}
}

func TestReverseOnlyOnce(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(300))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Post(context.Background(), entry.ID, "poster"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := svc.Reverse(context.Background(), ReverseInput{EntryID: entry.ID, Reason: "dup", Actor: "a"}); err != nil {
		t.Fatalf("first reverse: %v", err)
	}
	if _, err := svc.Reverse(context.Background(), ReverseInput{EntryID: entry.ID, Reason: "dup", Actor: "b"}); !errors.Is(err, shared.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
	if repo.balances[cashAccount] != 0 {
		t.Fatalf("second reversal must not move balances, cash = %.2f", repo.balances[cashAccount])
	}
}

func TestReverseRejectsDraft(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(300))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Reverse(context.Background(), ReverseInput{EntryID: entry.ID, Reason: "x", Actor: "a"}); !errors.Is(err, shared.ErrNotPosted) {
		t.Fatalf("expected ErrNotPosted, got %v", err)
	}
}

func TestDeleteOnlyDrafts(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(120))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Post(context.Background(), entry.ID, "poster"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := svc.Delete(context.Background(), entry.ID, "tester"); !errors.Is(err, shared.ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}

	draft, err := svc.Create(context.Background(), saleInput(50))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if err := svc.Delete(context.Background(), draft.ID, "tester"); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if _, err := svc.Get(context.Background(), draft.ID); !errors.Is(err, shared.ErrJournalNotFound) {
		t.Fatalf("deleted draft should be gone, got %v", err)
	}
}

func TestUpdateDraftReplacesLines(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.UpdateDraft(context.Background(), entry.ID, saleInput(400))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalAmount != 800 {
		t.Fatalf("total after update = %.2f, want 800", updated.TotalAmount)
	}
	if updated.EntryNumber != entry.EntryNumber {
		t.Fatalf("entry number must survive edits")
	}
	if len(repo.lines[entry.ID]) != 2 || repo.lines[entry.ID][0].Amount != 400 {
		t.Fatalf("lines not replaced")
	}

	if _, err := svc.Post(context.Background(), entry.ID, "poster"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := svc.UpdateDraft(context.Background(), entry.ID, saleInput(500)); !errors.Is(err, shared.ErrNotDraft) {
		t.Fatalf("posted entries are immutable, got %v", err)
	}
}

func TestPostRejectsPeriodClosedAfterDraft(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	entry, err := svc.Create(context.Background(), saleInput(700))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// The period closes between drafting and posting.
	p := repo.periods[1]
	p.Status = periods.PeriodStatusClosed
	repo.periods[1] = p

	if _, err := svc.Post(context.Background(), entry.ID, "poster"); !errors.Is(err, shared.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
	survivor, err := repo.GetWithLines(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if survivor.Status != EntryStatusDraft || survivor.IsPosted {
		t.Fatalf("rejected post must leave the draft intact, got %s", survivor.Status)
	}
	if repo.balances[cashAccount] != 0 || repo.balances[revenueAccount] != 0 {
		t.Fatalf("rejected post must not move balances")
	}
}

func invoiceInput(amount float64, doc *uuid.UUID) CreateInput {
	in := saleInput(amount)
	in.SourceType = "invoice"
	in.SourceModel = "Invoice"
	in.SourceDocument = doc
	return in
}

func TestUpdateDraftMovesSourceLink(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	docA := uuid.New()
	docB := uuid.New()
	entry, err := svc.Create(context.Background(), invoiceInput(900, &docA))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateDraft(context.Background(), entry.ID, invoiceInput(900, &docB)); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Document A is free again after the edit.
	if _, err := svc.Create(context.Background(), invoiceInput(450, &docA)); err != nil {
		t.Fatalf("document A should be bookable after relink: %v", err)
	}
	// Document B inherited the idempotency protection.
	if _, err := svc.Create(context.Background(), invoiceInput(450, &docB)); !errors.Is(err, shared.ErrSourceAlreadyLinked) {
		t.Fatalf("expected ErrSourceAlreadyLinked for document B, got %v", err)
	}
}

func TestUpdateDraftRejectsTakenSourceDocument(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	docA := uuid.New()
	docB := uuid.New()
	if _, err := svc.Create(context.Background(), invoiceInput(100, &docA)); err != nil {
		t.Fatalf("create A: %v", err)
	}
	entry, err := svc.Create(context.Background(), invoiceInput(200, &docB))
	if err != nil {
		t.Fatalf("create B: %v", err)
	}
	if _, err := svc.UpdateDraft(context.Background(), entry.ID, invoiceInput(200, &docA)); !errors.Is(err, shared.ErrSourceAlreadyLinked) {
		t.Fatalf("expected ErrSourceAlreadyLinked, got %v", err)
	}
}

func TestCreateRejectsDuplicateSourceDocument(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	doc := uuid.New()
	in := saleInput(900)
	in.SourceType = "invoice"
	in.SourceModel = "Invoice"
	in.SourceDocument = &doc
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrSourceAlreadyLinked) {
		t.Fatalf("expected ErrSourceAlreadyLinked, got %v", err)
	}
}

func TestRoundedAmountsStayBalanced(t *testing.T) {
	repo := newStubRepo()
	seedLedger(repo)
	svc := NewService(repo, nil)

	in := CreateInput{
		TransactionDate:  time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		EntryType:        "manual",
		SourceType:       "manual",
		AccountingPeriod: 1,
		Lines: []LineInput{
			{DebitAccount: acct(cashAccount), Amount: 33.33, Description: "Split A"},
			{DebitAccount: acct(cashAccount), Amount: 66.67, Description: "Split B"},
			{CreditAccount: acct(revenueAccount), Amount: 100.00, Description: "Revenue"},
		},
	}
	entry, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Post(context.Background(), entry.ID, "poster"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if repo.balances[cashAccount] != 100 {
		t.Fatalf("cash = %.2f, want 100", repo.balances[cashAccount])
	}
}
