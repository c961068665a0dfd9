package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// Repository persists chart of accounts nodes.
type Repository interface {
	Insert(ctx context.Context, account Account) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	List(ctx context.Context, activeOnly bool) ([]Account, error)
	ApplyBalanceDelta(ctx context.Context, id int64, delta float64) error
	HasPostedLines(ctx context.Context, id int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status AccountStatus) error
	SoftDelete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `id, account_code, account_name, account_type, account_sub_type, normal_balance,
opening_balance, current_balance, parent_account, level, is_detail_account, allow_manual_entry,
status, removed, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.AccountCode, &a.AccountName, &a.AccountType, &a.AccountSubType,
		&a.NormalBalance, &a.OpeningBalance, &a.CurrentBalance, &a.ParentAccount, &a.Level,
		&a.IsDetailAccount, &a.AllowManualEntry, &a.Status, &a.Removed, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Insert(ctx context.Context, account Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts
(account_code, account_name, account_type, account_sub_type, normal_balance, opening_balance,
 current_balance, parent_account, level, is_detail_account, allow_manual_entry, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING `+accountColumns,
		account.AccountCode, account.AccountName, account.AccountType, account.AccountSubType,
		account.NormalBalance, toNumeric(account.OpeningBalance), toNumeric(account.CurrentBalance),
		account.ParentAccount, account.Level, account.IsDetailAccount, account.AllowManualEntry,
		account.Status)
	inserted, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return inserted, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 AND removed=FALSE`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_code=$1 AND removed=FALSE`, code)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE removed=FALSE`
	if activeOnly {
		query += ` AND status='active'`
	}
	query += ` ORDER BY account_code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// ApplyBalanceDelta increments current_balance in a single UPDATE so concurrent
// postings against the same account cannot lose updates.
func (r *repository) ApplyBalanceDelta(ctx context.Context, id int64, delta float64) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE accounts SET current_balance = current_balance + $2, updated_at=NOW() WHERE id=$1 AND removed=FALSE`,
		id, toNumeric(delta))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) HasPostedLines(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE (l.debit_account = $1 OR l.credit_account = $1) AND e.is_posted)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status AccountStatus) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE accounts SET status=$2, updated_at=NOW() WHERE id=$1 AND removed=FALSE`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE accounts SET removed=TRUE, updated_at=NOW() WHERE id=$1 AND removed=FALSE`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
