package integration

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// Mapping binds a collaborator module's posting key to a ledger account, e.g.
// ("invoice", "accounts_receivable") -> account 1201.
type Mapping struct {
	ID        int64  `json:"id"`
	Module    string `json:"module"`
	Key       string `json:"key"`
	AccountID int64  `json:"accountId"`
}

// MappingRepository stores and resolves module-key account bindings.
type MappingRepository interface {
	Upsert(ctx context.Context, mapping Mapping) (Mapping, error)
	Resolve(ctx context.Context, module, key string) (int64, error)
	List(ctx context.Context, module string) ([]Mapping, error)
}

type mappingRepository struct {
	pool *pgxpool.Pool
}

// NewMappingRepository constructs the pgx-backed registry.
func NewMappingRepository(pool *pgxpool.Pool) MappingRepository {
	return &mappingRepository{pool: pool}
}

func (r *mappingRepository) Upsert(ctx context.Context, mapping Mapping) (Mapping, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO account_mappings (module, key, account_id)
VALUES ($1,$2,$3)
ON CONFLICT (module, key) DO UPDATE SET account_id=EXCLUDED.account_id
RETURNING id`, mapping.Module, mapping.Key, mapping.AccountID).Scan(&mapping.ID)
	if err != nil {
		return Mapping{}, err
	}
	return mapping, nil
}

func (r *mappingRepository) Resolve(ctx context.Context, module, key string) (int64, error) {
	var accountID int64
	err := r.pool.QueryRow(ctx,
		`SELECT account_id FROM account_mappings WHERE module=$1 AND key=$2`, module, key).
		Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrMappingNotFound
		}
		return 0, err
	}
	return accountID, nil
}

func (r *mappingRepository) List(ctx context.Context, module string) ([]Mapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, module, key, account_id FROM account_mappings
WHERE ($1='' OR module=$1) ORDER BY module, key`, module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.ID, &m.Module, &m.Key, &m.AccountID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
