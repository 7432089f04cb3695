package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/middleware"
	"etlinspector/internal/services"
	api "etlinspector/pkg/contracts/api/v1"
)

// AnalysisHandler serves synchronous analyses and the check catalogue.
type AnalysisHandler struct {
	service AnalysisService
	uploads *UploadParser
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisService, uploads *UploadParser, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service: service,
		uploads: uploads,
		errors:  errHandler,
		logger:  logger.With(slog.String("handler", "analysis")),
	}
}

// Routes mounts POST /analyze and GET /checks.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.RequireContentType(MultipartForm)).Post("/analyze", h.errors.Wrap(h.Analyze))
	r.Get("/checks", h.errors.Wrap(h.Checks))
	return r
}

// Analyze handles POST /api/v1/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) error {
	upload, err := h.uploads.Parse(w, r)
	if err != nil {
		return err
	}
	defer upload.Remove()

	report, err := h.service.Analyze(r.Context(), services.AnalyzeRequest{
		Path:     upload.Path,
		Source:   upload.Name,
		Sheet:    upload.Form.Sheet,
		Checks:   upload.Form.Checks,
		Parallel: upload.Form.Parallel,
	})
	if err != nil {
		return err
	}

	h.logger.InfoContext(r.Context(), "Analysis served",
		slog.String("report_id", report.ID),
		slog.String("source", report.Source),
		slog.Int("issues", len(report.Issues)))
	render.JSON(w, r, report)
	return nil
}

// Checks handles GET /api/v1/checks
func (h *AnalysisHandler) Checks(w http.ResponseWriter, r *http.Request) error {
	infos := h.service.Checks()
	list := api.CheckList{Checks: make([]api.CheckInfo, len(infos))}
	for i, info := range infos {
		list.Checks[i] = api.CheckInfo{
			Name:        info.Name,
			Category:    info.Category,
			Description: info.Description,
		}
	}
	render.JSON(w, r, list)
	return nil
}
