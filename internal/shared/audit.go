// Package shared holds cross-cutting helpers used by every ledger surface.
package shared

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditColumns is the audit_logs column list Record writes, in bind order.
// The schema test in scripts/seed keeps the DDL in lockstep with it.
var AuditColumns = []string{"actor", "action", "entity", "entity_id", "meta", "occurred_at"}

var auditInsertSQL = `INSERT INTO audit_logs (` + strings.Join(AuditColumns, ", ") +
	`) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`

// AuditLog is one compliance record: who did what to which entity, with
// free-form metadata such as amounts and entry numbers.
type AuditLog struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends records to the audit_logs table. Postings, reversals,
// period transitions and report approvals all flow through it.
type AuditLogger struct {
	pool *pgxpool.Pool
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists one audit entry. A zero At timestamps the record
// server-side.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if log.Actor == "" {
		log.Actor = "system"
	}
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err = l.pool.Exec(ctx, auditInsertSQL,
		log.Actor, log.Action, log.Entity, log.EntityID, meta, at)
	return err
}
