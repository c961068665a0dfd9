package periods

import (
	"context"
	"time"

	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// Service owns the accounting period lifecycle. Closing and locking are
// one-directional; a period never regresses to an earlier state.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the period controller.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create registers a single period after checking overlap within the fiscal year.
func (s *Service) Create(ctx context.Context, in CreateInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	conflict, err := s.repo.RangeConflict(ctx, in.FiscalYear, in.StartDate, in.EndDate)
	if err != nil {
		return Period{}, err
	}
	if conflict {
		return Period{}, shared.ErrPeriodOverlap
	}
	return s.repo.Insert(ctx, in)
}

// CreateYear generates the full set of periods for a fiscal year: twelve
// monthly, four quarterly, or one annual window, all half-open and contiguous.
func (s *Service) CreateYear(ctx context.Context, in CreateYearInput) ([]Period, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	yearStart := time.Date(in.FiscalYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)
	conflict, err := s.repo.RangeConflict(ctx, in.FiscalYear, yearStart, yearEnd)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, shared.ErrPeriodOverlap
	}
	return s.repo.InsertBatch(ctx, YearWindows(in.FiscalYear, PeriodType(in.PeriodType)))
}

// YearWindows produces the period windows covering a fiscal year.
func YearWindows(fiscalYear int, periodType PeriodType) []CreateInput {
	start := time.Date(fiscalYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	var count, months int
	switch periodType {
	case PeriodTypeQuarterly:
		count, months = 4, 3
	case PeriodTypeAnnually:
		count, months = 1, 12
	default:
		count, months = 12, 1
	}
	out := make([]CreateInput, 0, count)
	for i := 0; i < count; i++ {
		periodStart := start.AddDate(0, i*months, 0)
		out = append(out, CreateInput{
			FiscalYear:   fiscalYear,
			PeriodNumber: i + 1,
			PeriodType:   string(periodType),
			StartDate:    periodStart,
			EndDate:      periodStart.AddDate(0, months, 0),
		})
	}
	return out
}

// Get returns one period.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all periods in fiscal order.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// FindOpenByDate locates the open period covering a transaction date.
func (s *Service) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.FindOpenByDate(ctx, date)
}

// Close transitions an open period to closed. Draft entries must be resolved
// first: a draft can no longer be posted once its period closes, so leaving
// drafts behind would strand them.
func (s *Service) Close(ctx context.Context, in TransitionInput) (Period, error) {
	period, err := s.repo.GetByID(ctx, in.PeriodID)
	if err != nil {
		return Period{}, err
	}
	if err := shared.ValidatePeriodTransition(string(period.Status), shared.PeriodStatusClosed); err != nil {
		return Period{}, err
	}
	drafts, err := s.repo.CountDraftEntries(ctx, in.PeriodID)
	if err != nil {
		return Period{}, err
	}
	if drafts > 0 {
		return Period{}, shared.ErrPeriodHasDrafts
	}
	return s.repo.Transition(ctx, in.PeriodID, PeriodStatusOpen, PeriodStatusClosed, in.Actor, s.now())
}

// Lock transitions a closed period to locked.
func (s *Service) Lock(ctx context.Context, in TransitionInput) (Period, error) {
	period, err := s.repo.GetByID(ctx, in.PeriodID)
	if err != nil {
		return Period{}, err
	}
	if err := shared.ValidatePeriodTransition(string(period.Status), shared.PeriodStatusLocked); err != nil {
		return Period{}, err
	}
	return s.repo.Transition(ctx, in.PeriodID, PeriodStatusClosed, PeriodStatusLocked, in.Actor, s.now())
}
