package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/exporter"
	"etlinspector/internal/middleware"
	api "etlinspector/pkg/contracts/api/v1"
	"etlinspector/pkg/contracts/domain"
)

type reportCtxKey struct{}

// ReportsHandler serves the report history and downloads.
type ReportsHandler struct {
	service  AnalysisService
	exporter ReportExporter
	validate *middleware.Validator
	errors   *apierrors.ErrorHandler
	logger   *slog.Logger
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(service AnalysisService, exp ReportExporter, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsHandler{
		service:  service,
		exporter: exp,
		validate: middleware.NewValidator(),
		errors:   errHandler,
		logger:   logger.With(slog.String("handler", "reports")),
	}
}

// Routes returns the /reports routes.
func (h *ReportsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.errors.Wrap(h.ListReports))
	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.ReportCtx)
		r.Get("/", h.errors.Wrap(h.GetReport))
		r.Get("/export", h.errors.Wrap(h.ExportReport))
	})
	return r
}

// ReportCtx loads the report named by {id} into the request context.
func (h *ReportsHandler) ReportCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, err := h.service.GetReport(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), reportCtxKey{}, report)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func reportFromContext(ctx context.Context) (domain.Report, error) {
	report, ok := ctx.Value(reportCtxKey{}).(domain.Report)
	if !ok {
		return domain.Report{}, fmt.Errorf("report missing from request context")
	}
	return report, nil
}

// ListReports handles GET /api/v1/reports?limit=
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) error {
	req := api.ListReportsRequest{Limit: 50}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return apierrors.ErrValidation("limit", "limit must be an integer")
		}
		req.Limit = limit
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	reports, err := h.service.ListReports(r.Context(), req.Limit)
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []domain.ReportSummary{}
	}
	render.JSON(w, r, api.ReportList{Reports: reports, Count: len(reports)})
	return nil
}

// GetReport handles GET /api/v1/reports/{id}
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) error {
	report, err := reportFromContext(r.Context())
	if err != nil {
		return err
	}
	render.JSON(w, r, report)
	return nil
}

// ExportReport handles GET /api/v1/reports/{id}/export?format=
func (h *ReportsHandler) ExportReport(w http.ResponseWriter, r *http.Request) error {
	report, err := reportFromContext(r.Context())
	if err != nil {
		return err
	}

	req := api.ExportRequest{ReportID: report.ID, Format: r.URL.Query().Get("format")}
	if req.Format == "" {
		req.Format = string(exporter.FormatJSON)
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		return err
	}

	// Headers go out only after a successful render.
	var buf bytes.Buffer
	if err := h.exporter.Export(r.Context(), &buf, format, report); err != nil {
		return err
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(report.ID)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "Export download interrupted",
			slog.String("report_id", report.ID),
			slog.String("error", err.Error()))
	}
	return nil
}
