package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/keystone-erp/keystone/internal/ledger/periods"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

type stubRepo struct {
	rows    []BalanceRow
	reports map[int64]FinancialReport
	nextID  int64
}

func newStubRepo(rows []BalanceRow) *stubRepo {
	return &stubRepo{rows: rows, reports: map[int64]FinancialReport{}}
}

func (s *stubRepo) SnapshotBalances(_ context.Context) ([]BalanceRow, error) {
	return s.rows, nil
}

func (s *stubRepo) Insert(_ context.Context, report FinancialReport) (FinancialReport, error) {
	s.nextID++
	report.ID = s.nextID
	s.reports[report.ID] = report
	return report, nil
}

func (s *stubRepo) GetByID(_ context.Context, reportID int64) (FinancialReport, error) {
	report, ok := s.reports[reportID]
	if !ok {
		return FinancialReport{}, shared.ErrReportNotFound
	}
	return report, nil
}

func (s *stubRepo) List(_ context.Context, filter ListFilter) ([]FinancialReport, error) {
	var out []FinancialReport
	for _, report := range s.reports {
		if filter.ReportType != "" && report.ReportType != filter.ReportType {
			continue
		}
		out = append(out, report)
	}
	return out, nil
}

func (s *stubRepo) Approve(_ context.Context, reportID int64, at time.Time, actor string) (FinancialReport, error) {
	report, ok := s.reports[reportID]
	if !ok {
		return FinancialReport{}, shared.ErrReportNotFound
	}
	if report.Status != ReportStatusGenerated {
		return FinancialReport{}, shared.ErrInvalidTransition
	}
	report.Status = ReportStatusApproved
	report.ApprovedAt = &at
	report.ApprovedBy = actor
	s.reports[reportID] = report
	return report, nil
}

func (s *stubRepo) Publish(_ context.Context, reportID int64, at time.Time, actor string) (FinancialReport, error) {
	report, ok := s.reports[reportID]
	if !ok {
		return FinancialReport{}, shared.ErrReportNotFound
	}
	if report.Status != ReportStatusApproved {
		return FinancialReport{}, shared.ErrInvalidTransition
	}
	report.Status = ReportStatusPublished
	report.PublishedAt = &at
	report.PublishedBy = actor
	s.reports[reportID] = report
	return report, nil
}

type stubPeriods struct {
	period periods.Period
}

func (s *stubPeriods) GetByID(_ context.Context, id int64) (periods.Period, error) {
	if id != s.period.ID {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return s.period, nil
}

func newTestService(t *testing.T, rows []BalanceRow) (*Service, *stubRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newStubRepo(rows)
	svc := NewService(repo, &stubPeriods{period: marchPeriod()}, client, nil)
	return svc, repo
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Generate(context.Background(), GenerateInput{ReportType: ReportTypeCashFlow, PeriodID: 7})
	if err == nil {
		t.Fatalf("cash_flow has no generator and must be rejected")
	}
}

func TestRegenerateProducesNewDocument(t *testing.T) {
	svc, repo := newTestService(t, balanceSheetRows())

	first, err := svc.Generate(context.Background(), GenerateInput{ReportType: ReportTypeBalanceSheet, PeriodID: 7, Actor: "a"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := svc.Generate(context.Background(), GenerateInput{ReportType: ReportTypeBalanceSheet, PeriodID: 7, Actor: "b"})
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("regeneration must produce a new document")
	}
	if first.ReportNumber != second.ReportNumber {
		t.Fatalf("both snapshots cover the same period and share the display number")
	}
	if len(repo.reports) != 2 {
		t.Fatalf("expected two persisted snapshots, got %d", len(repo.reports))
	}
}

func TestApprovePublishLifecycle(t *testing.T) {
	svc, _ := newTestService(t, balanceSheetRows())
	report, err := svc.Generate(context.Background(), GenerateInput{ReportType: ReportTypeBalanceSheet, PeriodID: 7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Skipping approval is not allowed.
	if _, err := svc.Publish(context.Background(), report.ID, "cfo"); !errors.Is(err, shared.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	approved, err := svc.Approve(context.Background(), report.ID, "controller")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != ReportStatusApproved || approved.ApprovedBy != "controller" {
		t.Fatalf("approve did not stamp, got %s/%s", approved.Status, approved.ApprovedBy)
	}
	if _, err := svc.Approve(context.Background(), report.ID, "again"); !errors.Is(err, shared.ErrInvalidTransition) {
		t.Fatalf("double approve should fail, got %v", err)
	}

	published, err := svc.Publish(context.Background(), report.ID, "cfo")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.Status != ReportStatusPublished || published.PublishedBy != "cfo" {
		t.Fatalf("publish did not stamp")
	}
}

func TestGetServesCachedCopy(t *testing.T) {
	svc, repo := newTestService(t, balanceSheetRows())
	report, err := svc.Generate(context.Background(), GenerateInput{ReportType: ReportTypeBalanceSheet, PeriodID: 7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// The snapshot is immutable even if the backing row changes underneath.
	mutated := repo.reports[report.ID]
	mutated.ReportNumber = "MUTATED"
	repo.reports[report.ID] = mutated

	got, err := svc.Get(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReportNumber != report.ReportNumber {
		t.Fatalf("expected the cached snapshot, got %s", got.ReportNumber)
	}
}

func TestGetFallsBackToRepository(t *testing.T) {
	repo := newStubRepo(balanceSheetRows())
	svc := NewService(repo, &stubPeriods{period: marchPeriod()}, nil, nil)

	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, shared.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}

	report, err := svc.Generate(context.Background(), GenerateInput{ReportType: ReportTypeTrialBalance, PeriodID: 7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := svc.Get(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("get without cache: %v", err)
	}
	if got.ID != report.ID {
		t.Fatalf("wrong report returned")
	}
}

func TestWriteCSV(t *testing.T) {
	report := BuildBalanceSheet(marchPeriod(), balanceSheetRows(), Parameters{})
	var sb strings.Builder
	if err := WriteCSV(&sb, report); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	out := sb.String()
	if !strings.HasPrefix(out, "reportNumber,accountCode") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "BS-2026-03,1101,Cash") {
		t.Fatalf("missing cash line: %q", out)
	}
	if !strings.Contains(out, "\"-1,500.00\"") && !strings.Contains(out, "-1,500.00") {
		t.Fatalf("amounts should use grouping separators: %q", out)
	}
}
