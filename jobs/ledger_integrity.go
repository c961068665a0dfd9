package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/keystone-erp/keystone/internal/jobs"
	"github.com/keystone-erp/keystone/internal/ledger/reports"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// IntegrityChecker scans the ledger for violated invariants: per-period
// posted debits must equal credits, and every account's running balance must
// equal its opening balance plus the applied posted deltas.
type IntegrityChecker struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIntegrityChecker constructs the checker. A nil metrics disables
// instrumentation.
func NewIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityChecker {
	return &IntegrityChecker{pool: pool, logger: logger, metrics: metrics}
}

// Handler adapts the scan to an Asynq handler.
func (c *IntegrityChecker) Handler() asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		return c.Run(ctx)
	}
}

// Run executes both scans and fails if either finds a violation. Violations
// are logged individually before the error returns, so a single run surfaces
// every drifted row.
func (c *IntegrityChecker) Run(ctx context.Context) error {
	tracker := c.metrics.Track("ledger_integrity")
	return tracker.End(c.run(ctx))
}

func (c *IntegrityChecker) run(ctx context.Context) error {
	periodViolations, err := c.scanPeriods(ctx)
	if err != nil {
		return fmt.Errorf("jobs: integrity: %w", err)
	}
	c.metrics.AddViolations("period_balance", periodViolations)
	balanceViolations, err := c.scanBalances(ctx)
	if err != nil {
		return fmt.Errorf("jobs: integrity: %w", err)
	}
	c.metrics.AddViolations("account_drift", balanceViolations)
	total := periodViolations + balanceViolations
	if total > 0 {
		return fmt.Errorf("jobs: integrity: %d violation(s) found", total)
	}
	c.logger.Info("ledger integrity scan clean")
	return nil
}

func (c *IntegrityChecker) scanPeriods(ctx context.Context) (int, error) {
	rows, err := c.pool.Query(ctx, `SELECT e.accounting_period,
COALESCE(SUM(CASE WHEN l.debit_account IS NOT NULL THEN l.amount ELSE 0 END), 0),
COALESCE(SUM(CASE WHEN l.credit_account IS NOT NULL THEN l.amount ELSE 0 END), 0)
FROM journal_entries e
JOIN journal_lines l ON l.entry_id = e.id
WHERE e.status IN ('posted', 'reversed')
GROUP BY e.accounting_period`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	violations := 0
	for rows.Next() {
		var periodID int64
		var debit, credit float64
		if err := rows.Scan(&periodID, &debit, &credit); err != nil {
			return violations, err
		}
		if !shared.Balanced(debit, credit) {
			violations++
			c.logger.Error("period out of balance",
				slog.Int64("period", periodID),
				slog.Float64("debit", debit),
				slog.Float64("credit", credit))
		}
	}
	return violations, rows.Err()
}

func (c *IntegrityChecker) scanBalances(ctx context.Context) (int, error) {
	rows, err := c.pool.Query(ctx, `SELECT a.id, a.account_code, a.opening_balance, a.current_balance,
COALESCE((SELECT SUM(CASE WHEN l.debit_account = a.id THEN l.amount ELSE -l.amount END)
  FROM journal_lines l
  JOIN journal_entries e ON e.id = l.entry_id
  WHERE (l.debit_account = a.id OR l.credit_account = a.id)
    AND e.status IN ('posted', 'reversed')), 0)
FROM accounts a WHERE a.removed = FALSE`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	violations := 0
	for rows.Next() {
		var accountID int64
		var code string
		var opening, current, applied float64
		if err := rows.Scan(&accountID, &code, &opening, &current, &applied); err != nil {
			return violations, err
		}
		expected := shared.Round2(opening + applied)
		if math.Abs(expected-current) > shared.BalanceTolerance {
			violations++
			c.logger.Error("account balance drifted",
				slog.String("account", code),
				slog.Float64("expected", expected),
				slog.Float64("current", current))
		}
	}
	return violations, rows.Err()
}

// TrialBalanceWarmer regenerates the current period's trial balance so reads
// hit a warm cache.
type TrialBalanceWarmer struct {
	pool    *pgxpool.Pool
	reports *reports.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewTrialBalanceWarmer constructs the warmer.
func NewTrialBalanceWarmer(pool *pgxpool.Pool, service *reports.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *TrialBalanceWarmer {
	return &TrialBalanceWarmer{pool: pool, reports: service, logger: logger, metrics: metrics}
}

// Handler adapts the warmup to an Asynq handler.
func (w *TrialBalanceWarmer) Handler() asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WarmupPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		return w.Run(ctx, payload.PeriodID)
	}
}

// Run warms the given period, resolving the current period when periodID is
// zero. Having no current period is not an error; the warmup just skips.
func (w *TrialBalanceWarmer) Run(ctx context.Context, periodID int64) error {
	tracker := w.metrics.Track("tb_warmup")
	return tracker.End(w.run(ctx, periodID))
}

func (w *TrialBalanceWarmer) run(ctx context.Context, periodID int64) error {
	if periodID == 0 {
		err := w.pool.QueryRow(ctx,
			`SELECT id FROM accounting_periods WHERE is_current=TRUE LIMIT 1`).Scan(&periodID)
		if err != nil {
			w.logger.Warn("trial balance warmup skipped", slog.Any("error", err))
			return nil
		}
	}
	if err := w.reports.Warm(ctx, periodID); err != nil {
		return fmt.Errorf("jobs: warmup period %d: %w", periodID, err)
	}
	w.logger.Info("trial balance warmed", slog.Int64("period", periodID))
	return nil
}
