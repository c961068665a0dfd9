package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/keystone-erp/keystone/internal/ledger/periods"
	internalshared "github.com/keystone-erp/keystone/internal/shared"
)

// cacheTTL bounds how long a report document is served from Redis before
// falling back to the database.
const cacheTTL = 15 * time.Minute

// PeriodPort resolves the fiscal period a report covers.
type PeriodPort interface {
	GetByID(ctx context.Context, id int64) (periods.Period, error)
}

// AuditPort records report lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// GenerateInput wraps report generation parameters.
type GenerateInput struct {
	ReportType ReportType
	PeriodID   int64
	Parameters Parameters
	Actor      string
}

// Validate rejects unknown or non-generatable report kinds.
func (in GenerateInput) Validate() error {
	if in.PeriodID == 0 {
		return fmt.Errorf("ledger: accounting period required")
	}
	if !in.ReportType.Generatable() {
		return fmt.Errorf("ledger: report type %q has no generator", in.ReportType)
	}
	return nil
}

// Service generates and manages financial report snapshots. Concurrent
// identical generation requests collapse into one via singleflight; generated
// documents are cached in Redis and served from there on read.
type Service struct {
	repo  Repository
	times PeriodPort
	cache *redis.Client
	audit AuditPort
	group singleflight.Group
	now   func() time.Time
}

// NewService constructs the report generator.
func NewService(repo Repository, periodPort PeriodPort, cache *redis.Client, audit AuditPort) *Service {
	return &Service{repo: repo, times: periodPort, cache: cache, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Generate builds a new immutable snapshot for the period. Regeneration never
// touches earlier documents; each call that reaches the builder persists a
// fresh report.
func (s *Service) Generate(ctx context.Context, input GenerateInput) (FinancialReport, error) {
	if err := input.Validate(); err != nil {
		return FinancialReport{}, err
	}
	key := fmt.Sprintf("%s:%d", input.ReportType, input.PeriodID)
	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.generate(ctx, input)
	})
	if err != nil {
		return FinancialReport{}, err
	}
	return result.(FinancialReport), nil
}

func (s *Service) generate(ctx context.Context, input GenerateInput) (FinancialReport, error) {
	period, err := s.times.GetByID(ctx, input.PeriodID)
	if err != nil {
		return FinancialReport{}, err
	}
	rows, err := s.repo.SnapshotBalances(ctx)
	if err != nil {
		return FinancialReport{}, err
	}
	var report FinancialReport
	switch input.ReportType {
	case ReportTypeBalanceSheet:
		report = BuildBalanceSheet(period, rows, input.Parameters)
	case ReportTypeIncomeStatement:
		report = BuildIncomeStatement(period, rows, input.Parameters)
	case ReportTypeTrialBalance:
		report = BuildTrialBalance(period, rows, input.Parameters)
	default:
		return FinancialReport{}, fmt.Errorf("ledger: report type %q has no generator", input.ReportType)
	}
	report.GeneratedAt = s.now()
	report.GeneratedBy = input.Actor

	inserted, err := s.repo.Insert(ctx, report)
	if err != nil {
		return FinancialReport{}, err
	}
	s.cacheSet(ctx, inserted)
	s.record(ctx, input.Actor, "report.generate", inserted.ID, map[string]any{
		"reportNumber": inserted.ReportNumber,
		"reportType":   inserted.ReportType,
	})
	return inserted, nil
}

// Get serves a report, preferring the Redis copy.
func (s *Service) Get(ctx context.Context, reportID int64) (FinancialReport, error) {
	if cached, ok := s.cacheGet(ctx, reportID); ok {
		return cached, nil
	}
	report, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return FinancialReport{}, err
	}
	s.cacheSet(ctx, report)
	return report, nil
}

// List returns report headers matching the filter. Lines are not loaded.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]FinancialReport, error) {
	return s.repo.List(ctx, filter)
}

// Approve moves a generated report to approved.
func (s *Service) Approve(ctx context.Context, reportID int64, actor string) (FinancialReport, error) {
	report, err := s.repo.Approve(ctx, reportID, s.now(), actor)
	if err != nil {
		return FinancialReport{}, err
	}
	s.cacheSet(ctx, report)
	s.record(ctx, actor, "report.approve", report.ID, map[string]any{"reportNumber": report.ReportNumber})
	return report, nil
}

// Publish moves an approved report to published.
func (s *Service) Publish(ctx context.Context, reportID int64, actor string) (FinancialReport, error) {
	report, err := s.repo.Publish(ctx, reportID, s.now(), actor)
	if err != nil {
		return FinancialReport{}, err
	}
	s.cacheSet(ctx, report)
	s.record(ctx, actor, "report.publish", report.ID, map[string]any{"reportNumber": report.ReportNumber})
	return report, nil
}

// Warm regenerates the trial balance cache entry for a period. Used by the
// background warmup job; failures are the caller's to log.
func (s *Service) Warm(ctx context.Context, periodID int64) error {
	_, err := s.Generate(ctx, GenerateInput{
		ReportType: ReportTypeTrialBalance,
		PeriodID:   periodID,
		Parameters: Parameters{IncludeZeroBalance: false, DetailAccountsOnly: true},
		Actor:      "system",
	})
	return err
}

// The cache is best effort: Redis being down degrades to DB reads.

func cacheKey(reportID int64) string {
	return fmt.Sprintf("report:%d", reportID)
}

func (s *Service) cacheGet(ctx context.Context, reportID int64) (FinancialReport, bool) {
	if s.cache == nil {
		return FinancialReport{}, false
	}
	payload, err := s.cache.Get(ctx, cacheKey(reportID)).Bytes()
	if err != nil {
		return FinancialReport{}, false
	}
	var report FinancialReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return FinancialReport{}, false
	}
	return report, true
}

func (s *Service) cacheSet(ctx context.Context, report FinancialReport) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, cacheKey(report.ID), payload, cacheTTL).Err()
}

func (s *Service) record(ctx context.Context, actor, action string, reportID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "financial_report",
		EntityID: fmt.Sprintf("%d", reportID),
		Meta:     meta,
		At:       s.now(),
	})
}
