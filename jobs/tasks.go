package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/keystone-erp/keystone/internal/integration"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity verifies per-period debit/credit balance and
	// account running balances.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskTrialBalanceWarmup regenerates the trial balance snapshot so the
	// cache stays warm.
	TaskTrialBalanceWarmup = "report:tb_warmup"
	// Collaborator event deliveries.
	TaskInvoicePosted     = "integration:invoice_posted"
	TaskPaymentReceived   = "integration:payment_received"
	TaskInventoryAdjusted = "integration:inventory_adjusted"
)

// WarmupPayload selects the period whose trial balance to regenerate. A zero
// PeriodID means the current period.
type WarmupPayload struct {
	PeriodID int64 `json:"periodId"`
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// NewTrialBalanceWarmupTask constructs the warmup task.
func NewTrialBalanceWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrialBalanceWarmup, data), nil
}

// NewInvoicePostedTask packages a collaborator invoice event for delivery.
func NewInvoicePostedTask(event integration.InvoicePosted) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicePosted, data), nil
}

// NewPaymentReceivedTask packages a payment event.
func NewPaymentReceivedTask(event integration.PaymentReceived) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReceived, data), nil
}

// NewInventoryAdjustedTask packages an inventory event.
func NewInventoryAdjustedTask(event integration.InventoryAdjusted) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryAdjusted, data), nil
}

// HandleInvoicePosted adapts the invoice hook to an Asynq handler. Malformed
// payloads are dropped rather than retried.
func HandleInvoicePosted(hooks *integration.Hooks) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event integration.InvoicePosted
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		return hooks.OnInvoicePosted(ctx, event)
	}
}

// HandlePaymentReceived adapts the payment hook.
func HandlePaymentReceived(hooks *integration.Hooks) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event integration.PaymentReceived
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		return hooks.OnPaymentReceived(ctx, event)
	}
}

// HandleInventoryAdjusted adapts the inventory hook.
func HandleInventoryAdjusted(hooks *integration.Hooks) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event integration.InventoryAdjusted
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		return hooks.OnInventoryAdjusted(ctx, event)
	}
}
