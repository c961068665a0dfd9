package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/keystone-erp/keystone/internal/ledger/journals"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// sourceNamespace seeds deterministic UUIDv5 source references so a redelivered
// event always maps to the same source document.
var sourceNamespace = uuid.MustParse("6e7f1a54-9c3b-4f4e-8a34-2d9b0c5e7f10")

// Collaborator module names used as mapping lookups.
const (
	ModuleInvoice   = "invoice"
	ModulePayment   = "payment"
	ModuleInventory = "inventory"
)

// Mapping keys the hooks resolve before building an entry.
const (
	KeyAccountsReceivable  = "accounts_receivable"
	KeySalesRevenue        = "sales_revenue"
	KeyCash                = "cash"
	KeyInventory           = "inventory"
	KeyInventoryAdjustment = "inventory_adjustment"
)

// InvoicePosted is emitted when a collaborator finalises a customer invoice.
type InvoicePosted struct {
	InvoiceID string    `json:"invoiceId"`
	Customer  string    `json:"customer"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	PeriodID  int64     `json:"periodId"`
}

// PaymentReceived is emitted when a customer payment clears.
type PaymentReceived struct {
	PaymentID string    `json:"paymentId"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	PeriodID  int64     `json:"periodId"`
}

// InventoryAdjusted is emitted on stock revaluation. Cost may be negative for
// write-downs.
type InventoryAdjusted struct {
	AdjustmentID string    `json:"adjustmentId"`
	Cost         float64   `json:"cost"`
	Date         time.Time `json:"date"`
	PeriodID     int64     `json:"periodId"`
}

// JournalPort is the slice of the journal engine the hooks drive.
type JournalPort interface {
	Create(ctx context.Context, input journals.CreateInput) (journals.JournalEntry, error)
	Post(ctx context.Context, entryID int64, actor string) (journals.JournalEntry, error)
}

// Hooks turns collaborator events into posted journal entries. Each event is
// created and posted in sequence; redelivered events are absorbed through the
// engine's source-document idempotency and never double-post.
type Hooks struct {
	journal  JournalPort
	mappings MappingRepository
	logger   *slog.Logger
}

// NewHooks constructs the event bridge.
func NewHooks(logger *slog.Logger, journal JournalPort, mappings MappingRepository) *Hooks {
	return &Hooks{journal: journal, mappings: mappings, logger: logger}
}

// OnInvoicePosted books receivable against revenue.
func (h *Hooks) OnInvoicePosted(ctx context.Context, event InvoicePosted) error {
	receivable, err := h.mappings.Resolve(ctx, ModuleInvoice, KeyAccountsReceivable)
	if err != nil {
		return fmt.Errorf("integration: invoice %s: %w", event.InvoiceID, err)
	}
	revenue, err := h.mappings.Resolve(ctx, ModuleInvoice, KeySalesRevenue)
	if err != nil {
		return fmt.Errorf("integration: invoice %s: %w", event.InvoiceID, err)
	}
	description := fmt.Sprintf("Invoice %s (%s)", event.InvoiceID, event.Customer)
	return h.book(ctx, bookRequest{
		sourceType:  journals.SourceTypeInvoice,
		sourceModel: "Invoice",
		documentKey: ModuleInvoice + ":" + event.InvoiceID,
		periodID:    event.PeriodID,
		date:        event.Date,
		debit:       receivable,
		credit:      revenue,
		amount:      event.Amount,
		description: description,
	})
}

// OnPaymentReceived books cash against receivable.
func (h *Hooks) OnPaymentReceived(ctx context.Context, event PaymentReceived) error {
	cash, err := h.mappings.Resolve(ctx, ModulePayment, KeyCash)
	if err != nil {
		return fmt.Errorf("integration: payment %s: %w", event.PaymentID, err)
	}
	receivable, err := h.mappings.Resolve(ctx, ModulePayment, KeyAccountsReceivable)
	if err != nil {
		return fmt.Errorf("integration: payment %s: %w", event.PaymentID, err)
	}
	return h.book(ctx, bookRequest{
		sourceType:  journals.SourceTypePayment,
		sourceModel: "Payment",
		documentKey: ModulePayment + ":" + event.PaymentID,
		periodID:    event.PeriodID,
		date:        event.Date,
		debit:       cash,
		credit:      receivable,
		amount:      event.Amount,
		description: fmt.Sprintf("Payment %s", event.PaymentID),
	})
}

// OnInventoryAdjusted books stock revaluations; write-downs flip the sides.
func (h *Hooks) OnInventoryAdjusted(ctx context.Context, event InventoryAdjusted) error {
	inventory, err := h.mappings.Resolve(ctx, ModuleInventory, KeyInventory)
	if err != nil {
		return fmt.Errorf("integration: adjustment %s: %w", event.AdjustmentID, err)
	}
	adjustment, err := h.mappings.Resolve(ctx, ModuleInventory, KeyInventoryAdjustment)
	if err != nil {
		return fmt.Errorf("integration: adjustment %s: %w", event.AdjustmentID, err)
	}
	debit, credit := inventory, adjustment
	amount := event.Cost
	if amount < 0 {
		debit, credit = adjustment, inventory
		amount = -amount
	}
	return h.book(ctx, bookRequest{
		sourceType:  journals.SourceTypeInventory,
		sourceModel: "InventoryAdjustment",
		documentKey: ModuleInventory + ":" + event.AdjustmentID,
		periodID:    event.PeriodID,
		date:        event.Date,
		debit:       debit,
		credit:      credit,
		amount:      amount,
		description: fmt.Sprintf("Inventory adjustment %s", event.AdjustmentID),
	})
}

type bookRequest struct {
	sourceType  journals.SourceType
	sourceModel string
	documentKey string
	periodID    int64
	date        time.Time
	debit       int64
	credit      int64
	amount      float64
	description string
}

func (h *Hooks) book(ctx context.Context, req bookRequest) error {
	doc := uuid.NewSHA1(sourceNamespace, []byte(req.documentKey))
	entry, err := h.journal.Create(ctx, journals.CreateInput{
		TransactionDate:  req.date,
		EntryType:        string(journals.EntryTypeAutomatic),
		SourceType:       string(req.sourceType),
		SourceModel:      req.sourceModel,
		SourceDocument:   &doc,
		AccountingPeriod: req.periodID,
		CreatedBy:        "system",
		Lines: []journals.LineInput{
			{DebitAccount: &req.debit, Amount: req.amount, Description: req.description},
			{CreditAccount: &req.credit, Amount: req.amount, Description: req.description},
		},
	})
	if err != nil {
		if errors.Is(err, shared.ErrSourceAlreadyLinked) {
			h.logger.Info("duplicate event absorbed",
				slog.String("source", req.documentKey))
			return nil
		}
		return fmt.Errorf("integration: book %s: %w", req.documentKey, err)
	}
	if _, err := h.journal.Post(ctx, entry.ID, "system"); err != nil {
		return fmt.Errorf("integration: post %s: %w", entry.EntryNumber, err)
	}
	return nil
}
