package integration

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keystone-erp/keystone/internal/ledger/journals"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

type stubMappings struct {
	table map[string]int64
}

func (s *stubMappings) Upsert(_ context.Context, m Mapping) (Mapping, error) {
	s.table[m.Module+"/"+m.Key] = m.AccountID
	return m, nil
}

func (s *stubMappings) Resolve(_ context.Context, module, key string) (int64, error) {
	id, ok := s.table[module+"/"+key]
	if !ok {
		return 0, shared.ErrMappingNotFound
	}
	return id, nil
}

func (s *stubMappings) List(_ context.Context, _ string) ([]Mapping, error) {
	return nil, nil
}

type stubJournal struct {
	created []journals.CreateInput
	posted  []int64
	linked  map[string]bool
	nextID  int64
}

func (s *stubJournal) Create(_ context.Context, in journals.CreateInput) (journals.JournalEntry, error) {
	if in.SourceDocument != nil {
		key := in.SourceType + "/" + in.SourceDocument.String()
		if s.linked[key] {
			return journals.JournalEntry{}, shared.ErrSourceAlreadyLinked
		}
		s.linked[key] = true
	}
	s.created = append(s.created, in)
	s.nextID++
	return journals.JournalEntry{ID: s.nextID, EntryNumber: "JE-TEST"}, nil
}

func (s *stubJournal) Post(_ context.Context, entryID int64, _ string) (journals.JournalEntry, error) {
	s.posted = append(s.posted, entryID)
	return journals.JournalEntry{ID: entryID, Status: journals.EntryStatusPosted}, nil
}

func newHooksFixture() (*Hooks, *stubJournal, *stubMappings) {
	journal := &stubJournal{linked: map[string]bool{}}
	mappings := &stubMappings{table: map[string]int64{
		"invoice/accounts_receivable":    1,
		"invoice/sales_revenue":          2,
		"payment/cash":                   3,
		"payment/accounts_receivable":    1,
		"inventory/inventory":            4,
		"inventory/inventory_adjustment": 5,
	}}
	hooks := NewHooks(slog.Default(), journal, mappings)
	return hooks, journal, mappings
}

func TestInvoicePostedBooksReceivableAgainstRevenue(t *testing.T) {
	hooks, journal, _ := newHooksFixture()
	event := InvoicePosted{
		InvoiceID: "INV-001", Customer: "Acme", Amount: 1200,
		Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), PeriodID: 1,
	}

	require.NoError(t, hooks.OnInvoicePosted(context.Background(), event))
	require.Len(t, journal.created, 1)
	in := journal.created[0]
	require.Equal(t, "automatic", in.EntryType)
	require.Equal(t, "invoice", in.SourceType)
	require.NotNil(t, in.SourceDocument)
	require.Len(t, in.Lines, 2)
	require.EqualValues(t, 1, *in.Lines[0].DebitAccount)
	require.EqualValues(t, 2, *in.Lines[1].CreditAccount)
	require.Equal(t, 1200.0, in.Lines[0].Amount)
	require.Len(t, journal.posted, 1, "hook must post immediately")
}

func TestDuplicateEventIsAbsorbed(t *testing.T) {
	hooks, journal, _ := newHooksFixture()
	event := PaymentReceived{
		PaymentID: "PAY-9", Amount: 300,
		Date: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), PeriodID: 1,
	}

	require.NoError(t, hooks.OnPaymentReceived(context.Background(), event))
	require.NoError(t, hooks.OnPaymentReceived(context.Background(), event),
		"redelivery must not error")
	require.Len(t, journal.created, 1, "redelivery must not create a second entry")
	require.Len(t, journal.posted, 1)
}

func TestDeterministicSourceReference(t *testing.T) {
	hooks, journal, _ := newHooksFixture()
	event := InvoicePosted{InvoiceID: "INV-77", Amount: 10,
		Date: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), PeriodID: 1}

	require.NoError(t, hooks.OnInvoicePosted(context.Background(), event))
	first := *journal.created[0].SourceDocument

	journal.linked = map[string]bool{}
	require.NoError(t, hooks.OnInvoicePosted(context.Background(), event))
	require.Equal(t, first, *journal.created[1].SourceDocument,
		"the same event must derive the same source document id")
}

func TestInventoryWriteDownFlipsSides(t *testing.T) {
	hooks, journal, _ := newHooksFixture()
	event := InventoryAdjusted{
		AdjustmentID: "ADJ-3", Cost: -250,
		Date: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), PeriodID: 1,
	}

	require.NoError(t, hooks.OnInventoryAdjusted(context.Background(), event))
	in := journal.created[0]
	require.EqualValues(t, 5, *in.Lines[0].DebitAccount, "write-down debits the adjustment account")
	require.EqualValues(t, 4, *in.Lines[1].CreditAccount, "write-down credits inventory")
	require.Equal(t, 250.0, in.Lines[0].Amount, "amounts are always positive")
}

func TestMissingMappingFails(t *testing.T) {
	hooks, _, mappings := newHooksFixture()
	delete(mappings.table, "invoice/sales_revenue")

	err := hooks.OnInvoicePosted(context.Background(), InvoicePosted{
		InvoiceID: "INV-5", Amount: 5,
		Date: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), PeriodID: 1,
	})
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
}
