package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
	"github.com/keystone-erp/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for financial reports.
type Repository interface {
	SnapshotBalances(ctx context.Context) ([]BalanceRow, error)
	Insert(ctx context.Context, report FinancialReport) (FinancialReport, error)
	GetByID(ctx context.Context, reportID int64) (FinancialReport, error)
	List(ctx context.Context, filter ListFilter) ([]FinancialReport, error)
	Approve(ctx context.Context, reportID int64, at time.Time, actor string) (FinancialReport, error)
	Publish(ctx context.Context, reportID int64, at time.Time, actor string) (FinancialReport, error)
}

// ListFilter narrows report listings.
type ListFilter struct {
	ReportType ReportType
	PeriodID   int64
	Status     ReportStatus
	Limit      int
	Offset     int
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// SnapshotBalances reads every active, non-removed account with its balances.
// Filtering per report kind happens in the builders.
func (r *repository) SnapshotBalances(ctx context.Context) ([]BalanceRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, account_code, account_name, account_type,
opening_balance, current_balance, is_detail_account
FROM accounts WHERE status='active' AND removed=FALSE ORDER BY account_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BalanceRow
	for rows.Next() {
		var row BalanceRow
		if err := rows.Scan(&row.AccountID, &row.AccountCode, &row.AccountName, &row.AccountType,
			&row.OpeningBalance, &row.CurrentBalance, &row.IsDetailAccount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const reportColumns = `id, report_number, report_type, accounting_period, start_date, end_date,
status, summary, parameters, generated_at, generated_by, approved_at, approved_by,
published_at, published_by`

func scanReport(row pgx.Row) (FinancialReport, error) {
	var rep FinancialReport
	var summary, params []byte
	var generatedBy, approvedBy, publishedBy *string
	err := row.Scan(&rep.ID, &rep.ReportNumber, &rep.ReportType, &rep.AccountingPeriod,
		&rep.StartDate, &rep.EndDate, &rep.Status, &summary, &params, &rep.GeneratedAt,
		&generatedBy, &rep.ApprovedAt, &approvedBy, &rep.PublishedAt, &publishedBy)
	if err != nil {
		return FinancialReport{}, err
	}
	if err := json.Unmarshal(summary, &rep.Summary); err != nil {
		return FinancialReport{}, fmt.Errorf("ledger: report %d summary: %w", rep.ID, err)
	}
	if err := json.Unmarshal(params, &rep.Parameters); err != nil {
		return FinancialReport{}, fmt.Errorf("ledger: report %d parameters: %w", rep.ID, err)
	}
	if generatedBy != nil {
		rep.GeneratedBy = *generatedBy
	}
	if approvedBy != nil {
		rep.ApprovedBy = *approvedBy
	}
	if publishedBy != nil {
		rep.PublishedBy = *publishedBy
	}
	return rep, nil
}

// Insert persists the report header and its lines in one transaction.
func (r *repository) Insert(ctx context.Context, report FinancialReport) (FinancialReport, error) {
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return FinancialReport{}, err
	}
	params, err := json.Marshal(report.Parameters)
	if err != nil {
		return FinancialReport{}, err
	}
	var inserted FinancialReport
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		inserted, err = scanReport(tx.QueryRow(ctx, `INSERT INTO financial_reports
(report_number, report_type, accounting_period, start_date, end_date, status, summary,
 parameters, generated_at, generated_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING `+reportColumns,
			report.ReportNumber, report.ReportType, report.AccountingPeriod, report.StartDate,
			report.EndDate, report.Status, summary, params, report.GeneratedAt,
			nullString(report.GeneratedBy)))
		if err != nil {
			return err
		}
		for _, line := range report.Lines {
			if _, err := tx.Exec(ctx, `INSERT INTO report_lines
(report_id, account_id, account_code, account_name, opening_balance, debit_amount,
 credit_amount, ending_balance, display_order, is_sub_total, is_total, indent_level)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
				inserted.ID, nullInt(line.AccountID), line.AccountCode, line.AccountName,
				toNumeric(line.OpeningBalance), toNumeric(line.DebitAmount), toNumeric(line.CreditAmount),
				toNumeric(line.EndingBalance), line.DisplayOrder, line.IsSubTotal, line.IsTotal,
				line.IndentLevel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return FinancialReport{}, err
	}
	inserted.Lines = report.Lines
	return inserted, nil
}

func (r *repository) GetByID(ctx context.Context, reportID int64) (FinancialReport, error) {
	report, err := scanReport(r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM financial_reports WHERE id=$1`, reportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialReport{}, shared.ErrReportNotFound
		}
		return FinancialReport{}, err
	}
	lines, err := r.queryLines(ctx, reportID)
	if err != nil {
		return FinancialReport{}, err
	}
	report.Lines = lines
	return report, nil
}

func (r *repository) queryLines(ctx context.Context, reportID int64) ([]ReportLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, COALESCE(account_id, 0), account_code, account_name,
opening_balance, debit_amount, credit_amount, ending_balance, display_order, is_sub_total,
is_total, indent_level
FROM report_lines WHERE report_id=$1 ORDER BY display_order ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []ReportLine
	for rows.Next() {
		var line ReportLine
		if err := rows.Scan(&line.ID, &line.AccountID, &line.AccountCode, &line.AccountName,
			&line.OpeningBalance, &line.DebitAmount, &line.CreditAmount, &line.EndingBalance,
			&line.DisplayOrder, &line.IsSubTotal, &line.IsTotal, &line.IndentLevel); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]FinancialReport, error) {
	query := `SELECT ` + reportColumns + ` FROM financial_reports WHERE TRUE`
	args := []any{}
	if filter.ReportType != "" {
		args = append(args, filter.ReportType)
		query += fmt.Sprintf(` AND report_type=$%d`, len(args))
	}
	if filter.PeriodID != 0 {
		args = append(args, filter.PeriodID)
		query += fmt.Sprintf(` AND accounting_period=$%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	query += ` ORDER BY generated_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FinancialReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// Approve flips generated to approved conditionally so a stale or repeated
// call surfaces ErrInvalidTransition instead of silently restamping.
func (r *repository) Approve(ctx context.Context, reportID int64, at time.Time, actor string) (FinancialReport, error) {
	return r.transition(ctx, reportID,
		`UPDATE financial_reports SET status='approved', approved_at=$2, approved_by=$3
WHERE id=$1 AND status='generated' RETURNING `+reportColumns, at, actor)
}

// Publish flips approved to published conditionally.
func (r *repository) Publish(ctx context.Context, reportID int64, at time.Time, actor string) (FinancialReport, error) {
	return r.transition(ctx, reportID,
		`UPDATE financial_reports SET status='published', published_at=$2, published_by=$3
WHERE id=$1 AND status='approved' RETURNING `+reportColumns, at, actor)
}

func (r *repository) transition(ctx context.Context, reportID int64, query string, at time.Time, actor string) (FinancialReport, error) {
	report, err := scanReport(r.pool.QueryRow(ctx, query, reportID, at, nullString(actor)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, reportID); getErr != nil {
				return FinancialReport{}, getErr
			}
			return FinancialReport{}, shared.ErrInvalidTransition
		}
		return FinancialReport{}, err
	}
	lines, err := r.queryLines(ctx, reportID)
	if err != nil {
		return FinancialReport{}, err
	}
	report.Lines = lines
	return report, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
