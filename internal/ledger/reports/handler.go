package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/keystone-erp/keystone/internal/observability"
	"github.com/keystone-erp/keystone/internal/platform/httpx"
)

// Handler exposes report generation and lifecycle over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: metrics}
}

// MountRoutes attaches financial report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/balance-sheet", h.generate(ReportTypeBalanceSheet))
	r.Post("/income-statement", h.generate(ReportTypeIncomeStatement))
	r.Post("/trial-balance", h.generate(ReportTypeTrialBalance))
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/export", h.Export)
	r.Patch("/{id}/approve", h.Approve)
	r.Patch("/{id}/publish", h.Publish)
}

type generateRequest struct {
	AccountingPeriod   int64          `json:"accountingPeriod"`
	IncludeZeroBalance bool           `json:"includeZeroBalance"`
	DetailAccountsOnly bool           `json:"detailAccountsOnly"`
	ComparisonPeriod   *int64         `json:"comparisonPeriod"`
	Custom             map[string]any `json:"custom"`
}

func (h *Handler) generate(reportType ReportType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body generateRequest
		if err := httpx.DecodeJSON(r, &body); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
			return
		}
		report, err := h.service.Generate(r.Context(), GenerateInput{
			ReportType: reportType,
			PeriodID:   body.AccountingPeriod,
			Parameters: Parameters{
				IncludeZeroBalance: body.IncludeZeroBalance,
				DetailAccountsOnly: body.DetailAccountsOnly,
				ComparisonPeriod:   body.ComparisonPeriod,
				Custom:             body.Custom,
			},
			Actor: r.Header.Get("X-Actor"),
		})
		if err != nil {
			h.logger.Error("generate report", slog.String("type", string(reportType)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		h.metrics.RecordLedgerOp("report.generate")
		httpx.JSON(w, http.StatusCreated, report)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ListFilter{
		ReportType: ReportType(query.Get("type")),
		Status:     ReportStatus(query.Get("status")),
	}
	if periodID, err := strconv.ParseInt(query.Get("period"), 10, 64); err == nil {
		filter.PeriodID = periodID
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list reports", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s.csv"`, report.ReportNumber))
	if err := WriteCSV(w, report); err != nil {
		h.logger.Error("export report", slog.Int64("id", id), slog.Any("error", err))
	}
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Publish)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, reportID int64, actor string) (FinancialReport, error),
) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	report, err := fn(r.Context(), id, r.Header.Get("X-Actor"))
	if err != nil {
		h.logger.Error("report transition", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid report id")
		return 0, false
	}
	return id, true
}
