package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/keystone-erp/keystone/internal/ledger/periods"
	"github.com/keystone-erp/keystone/internal/platform/db"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
	GetWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	DeleteDraft(ctx context.Context, entryID int64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	NextEntryNumber(ctx context.Context) (string, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []Line) error
	ReplaceLines(ctx context.Context, entryID int64, lines []Line) error
	GetEntryForUpdate(ctx context.Context, entryID int64) (JournalEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]Line, error)
	UpdateDraft(ctx context.Context, entry JournalEntry) error
	MarkPosted(ctx context.Context, entryID int64, at time.Time, by string) error
	MarkReversed(ctx context.Context, entryID, reversedBy int64, reason string) error
	MarkCancelled(ctx context.Context, entryID int64) error
	ApplyBalanceDelta(ctx context.Context, accountID int64, delta float64) error
	GetPostingAccount(ctx context.Context, accountID int64) (PostingAccount, error)
	LinkSource(ctx context.Context, ref SourceRef, entryID int64) error
	UnlinkSource(ctx context.Context, entryID int64) error

	// Period operations needed within posting transactions.
	GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error)
}

// PostingAccount is the slice of an account a posting needs to see.
type PostingAccount struct {
	ID               int64
	AccountCode      string
	IsDetailAccount  bool
	Status           string
	AllowManualEntry bool
	Removed          bool
}

// Postable reports whether the account accepts journal lines.
func (a PostingAccount) Postable() bool {
	return a.IsDetailAccount && a.Status == "active" && !a.Removed
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `id, entry_number, transaction_date, posting_date, entry_type, source_type,
source_model, source_document, accounting_period, total_amount, status, is_posted, posted_at,
posted_by, reversal_of, reversed_by, reversal_reason, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.EntryNumber, &e.TransactionDate, &e.PostingDate, &e.EntryType,
		&e.SourceType, &e.SourceModel, &e.SourceDocument, &e.AccountingPeriod, &e.TotalAmount,
		&e.Status, &e.IsPosted, &e.PostedAt, &e.PostedBy, &e.ReversalOf, &e.ReversedBy,
		&e.ReversalReason, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE TRUE`
	args := []any{}
	if filter.PeriodID != 0 {
		args = append(args, filter.PeriodID)
		query += fmt.Sprintf(` AND accounting_period=$%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	query += ` ORDER BY entry_number DESC`
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
	var entries []JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *repository) GetWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.pool, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// DeleteDraft removes an entry only while it is still a draft. Lines go with
// it via ON DELETE CASCADE.
func (r *repository) DeleteDraft(ctx context.Context, entryID int64) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM journal_entries WHERE id=$1 AND status='draft'`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM journal_entries WHERE id=$1)`, entryID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return shared.ErrNotDraft
		}
		return shared.ErrJournalNotFound
	}
	return nil
}

// WithTx executes fn within a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextEntryNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.tx.QueryRow(ctx, `SELECT nextval('journal_entry_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("JE-%06d", seq), nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(entry_number, transaction_date, posting_date, entry_type, source_type, source_model,
 source_document, accounting_period, total_amount, status, is_posted, posted_at, posted_by,
 reversal_of, reversal_reason)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING `+entryColumns,
		entry.EntryNumber, entry.TransactionDate, entry.PostingDate, entry.EntryType,
		entry.SourceType, entry.SourceModel, entry.SourceDocument, entry.AccountingPeriod,
		toNumeric(entry.TotalAmount), entry.Status, entry.IsPosted, entry.PostedAt,
		nullString(entry.PostedBy), entry.ReversalOf, nullString(entry.ReversalReason))
	return scanEntry(row)
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []Line) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines
(entry_id, debit_account, credit_account, amount, description)
VALUES ($1,$2,$3,$4,$5)`,
			entryID, line.DebitAccount, line.CreditAccount, toNumeric(line.Amount), line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID int64, lines []Line) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	return r.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]Line, error) {
	return queryLines(ctx, r.tx, entryID)
}

func (r *txRepository) UpdateDraft(ctx context.Context, entry JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET
transaction_date=$2, entry_type=$3, source_type=$4, source_model=$5, source_document=$6,
accounting_period=$7, total_amount=$8, updated_at=NOW()
WHERE id=$1 AND status='draft'`,
		entry.ID, entry.TransactionDate, entry.EntryType, entry.SourceType, entry.SourceModel,
		entry.SourceDocument, entry.AccountingPeriod, toNumeric(entry.TotalAmount))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotDraft
	}
	return nil
}

// MarkPosted flips draft to posted conditionally so that exactly one of two
// concurrent posters succeeds.
func (r *txRepository) MarkPosted(ctx context.Context, entryID int64, at time.Time, by string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status='posted', is_posted=TRUE, posting_date=$2, posted_at=$2, posted_by=$3, updated_at=NOW()
WHERE id=$1 AND status='draft'`, entryID, at, nullString(by))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyPosted
	}
	return nil
}

func (r *txRepository) MarkReversed(ctx context.Context, entryID, reversedBy int64, reason string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status='reversed', reversed_by=$2, reversal_reason=$3, updated_at=NOW()
WHERE id=$1 AND status='posted'`, entryID, reversedBy, nullString(reason))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyReversed
	}
	return nil
}

func (r *txRepository) MarkCancelled(ctx context.Context, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status='cancelled', updated_at=NOW() WHERE id=$1 AND status='draft'`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotDraft
	}
	return nil
}

// ApplyBalanceDelta increments the running balance inside the posting
// transaction; the increment happens in SQL, never read-modify-write.
func (r *txRepository) ApplyBalanceDelta(ctx context.Context, accountID int64, delta float64) error {
	cmd, err := r.tx.Exec(ctx,
		`UPDATE accounts SET current_balance = current_balance + $2, updated_at=NOW() WHERE id=$1 AND removed=FALSE`,
		accountID, toNumeric(delta))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) GetPostingAccount(ctx context.Context, accountID int64) (PostingAccount, error) {
	var a PostingAccount
	err := r.tx.QueryRow(ctx, `SELECT id, account_code, is_detail_account, status, allow_manual_entry, removed
FROM accounts WHERE id=$1`, accountID).
		Scan(&a.ID, &a.AccountCode, &a.IsDetailAccount, &a.Status, &a.AllowManualEntry, &a.Removed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostingAccount{}, shared.ErrAccountNotFound
		}
		return PostingAccount{}, err
	}
	return a, nil
}

func (r *txRepository) LinkSource(ctx context.Context, ref SourceRef, entryID int64) error {
	if ref.SourceDocument == nil {
		return nil
	}
	_, err := r.tx.Exec(ctx,
		`INSERT INTO source_links (source_type, source_model, source_document, entry_id) VALUES ($1,$2,$3,$4)`,
		ref.SourceType, ref.SourceModel, ref.SourceDocument, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrSourceConflict
		}
		return err
	}
	return nil
}

// UnlinkSource drops the idempotency link for one entry, freeing its source
// document to be booked again. Runs when a draft edit changes the source.
func (r *txRepository) UnlinkSource(ctx context.Context, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM source_links WHERE entry_id=$1`, entryID)
	return err
}

// GetPeriodForUpdate fetches the period with a row lock. Duplicates the
// periods repository query because it must run on this transaction.
func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, fiscal_year, period_number, period_type, start_date, end_date, status,
is_current, closed_at, closed_by, locked_at, locked_by, created_at, updated_at
FROM accounting_periods WHERE id=$1 FOR UPDATE`, periodID).
		Scan(&p.ID, &p.FiscalYear, &p.PeriodNumber, &p.PeriodType, &p.StartDate, &p.EndDate,
			&p.Status, &p.IsCurrent, &p.ClosedAt, &p.ClosedBy, &p.LockedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, shared.ErrPeriodNotFound
		}
		return periods.Period{}, err
	}
	return p, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, entryID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, debit_account, credit_account, amount, description
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.DebitAccount, &line.CreditAccount,
			&line.Amount, &line.Description); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Helpers

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
