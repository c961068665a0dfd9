package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
	"github.com/keystone-erp/keystone/internal/platform/db"
)

// Repository persists accounting periods.
type Repository interface {
	Insert(ctx context.Context, in CreateInput) (Period, error)
	InsertBatch(ctx context.Context, inputs []CreateInput) ([]Period, error)
	GetByID(ctx context.Context, id int64) (Period, error)
	List(ctx context.Context) ([]Period, error)
	FindOpenByDate(ctx context.Context, date time.Time) (Period, error)
	RangeConflict(ctx context.Context, fiscalYear int, start, end time.Time) (bool, error)
	CountDraftEntries(ctx context.Context, periodID int64) (int, error)
	Transition(ctx context.Context, id int64, from, to PeriodStatus, actor string, at time.Time) (Period, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const periodColumns = `id, fiscal_year, period_number, period_type, start_date, end_date, status,
is_current, closed_at, closed_by, locked_at, locked_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.FiscalYear, &p.PeriodNumber, &p.PeriodType, &p.StartDate, &p.EndDate,
		&p.Status, &p.IsCurrent, &p.ClosedAt, &p.ClosedBy, &p.LockedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Insert(ctx context.Context, in CreateInput) (Period, error) {
	if in.IsCurrent {
		// At most one current period system-wide.
		if _, err := r.pool.Exec(ctx, `UPDATE accounting_periods SET is_current=FALSE WHERE is_current`); err != nil {
			return Period{}, err
		}
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO accounting_periods
(fiscal_year, period_number, period_type, start_date, end_date, status, is_current)
VALUES ($1,$2,$3,$4,$5,'open',$6) RETURNING `+periodColumns,
		in.FiscalYear, in.PeriodNumber, in.PeriodType, in.StartDate, in.EndDate, in.IsCurrent)
	return scanPeriod(row)
}

func (r *repository) InsertBatch(ctx context.Context, inputs []CreateInput) ([]Period, error) {
	out := make([]Period, 0, len(inputs))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, in := range inputs {
			row := tx.QueryRow(ctx, `INSERT INTO accounting_periods
(fiscal_year, period_number, period_type, start_date, end_date, status, is_current)
VALUES ($1,$2,$3,$4,$5,'open',FALSE) RETURNING `+periodColumns,
				in.FiscalYear, in.PeriodNumber, in.PeriodType, in.StartDate, in.EndDate)
			period, err := scanPeriod(row)
			if err != nil {
				return err
			}
			out = append(out, period)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id=$1`, id)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return period, nil
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+periodColumns+` FROM accounting_periods ORDER BY fiscal_year, period_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, period)
	}
	return out, rows.Err()
}

// FindOpenByDate returns the open period covering the supplied date. The end
// bound is exclusive.
func (r *repository) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE status='open' AND start_date <= $1 AND $1 < end_date ORDER BY start_date LIMIT 1`, date)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return period, nil
}

func (r *repository) RangeConflict(ctx context.Context, fiscalYear int, start, end time.Time) (bool, error) {
	var conflict bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM accounting_periods WHERE fiscal_year=$1 AND start_date < $3 AND $2 < end_date)`,
		fiscalYear, start, end).Scan(&conflict)
	if err != nil {
		return false, err
	}
	return conflict, nil
}

func (r *repository) CountDraftEntries(ctx context.Context, periodID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE accounting_period=$1 AND status='draft'`,
		periodID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Transition flips period status conditionally so exactly one concurrent caller
// wins; the loser observes the already-updated row and fails the policy check.
func (r *repository) Transition(ctx context.Context, id int64, from, to PeriodStatus, actor string, at time.Time) (Period, error) {
	var query string
	switch to {
	case PeriodStatusClosed:
		query = `UPDATE accounting_periods SET status=$3, closed_at=$4, closed_by=$5, updated_at=NOW()
WHERE id=$1 AND status=$2 RETURNING ` + periodColumns
	case PeriodStatusLocked:
		query = `UPDATE accounting_periods SET status=$3, locked_at=$4, locked_by=$5, updated_at=NOW()
WHERE id=$1 AND status=$2 RETURNING ` + periodColumns
	default:
		return Period{}, shared.ErrInvalidTransition
	}
	row := r.pool.QueryRow(ctx, query, id, from, to, at, actor)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row exists but is not in the expected source state, or is missing.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return Period{}, getErr
			}
			return Period{}, shared.ErrInvalidTransition
		}
		return Period{}, err
	}
	return period, nil
}
