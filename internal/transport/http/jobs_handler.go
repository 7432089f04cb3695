package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/infrastructure"
	"etlinspector/internal/middleware"
	"etlinspector/internal/operations"
	api "etlinspector/pkg/contracts/api/v1"
	"etlinspector/pkg/contracts/domain"
)

// JobsHandler queues background analyses and reports their state.
type JobsHandler struct {
	queue   JobQueue
	uploads *UploadParser
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(queue JobQueue, uploads *UploadParser, errHandler *apierrors.ErrorHandler, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{
		queue:   queue,
		uploads: uploads,
		errors:  errHandler,
		logger:  logger.With(slog.String("handler", "jobs")),
	}
}

// Routes returns the /jobs routes.
func (h *JobsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.RequireContentType(MultipartForm)).Post("/", h.errors.Wrap(h.CreateJob))
	r.Get("/", h.errors.Wrap(h.ListJobs))
	r.Get("/stats", h.errors.Wrap(h.Stats))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.errors.Wrap(h.GetJob))
		r.Delete("/", h.errors.Wrap(h.CancelJob))
	})
	return r
}

// CreateJob handles POST /api/v1/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) error {
	upload, err := h.uploads.Parse(w, r)
	if err != nil {
		return err
	}

	traceID := infrastructure.GetTraceID(r.Context())
	if traceID == "" {
		traceID = middleware.GetRequestID(r.Context())
	}
	job, err := h.queue.Enqueue(r.Context(), operations.JobRequest{
		Path:     upload.Path,
		Source:   upload.Name,
		Sheet:    upload.Form.Sheet,
		Checks:   upload.Form.Checks,
		Parallel: upload.Form.Parallel,
		TraceID:  traceID,
		Cleanup:  upload.Remove,
	})
	if err != nil {
		upload.Remove()
		return err
	}

	statusURL := "/api/v1/jobs/" + job.ID
	w.Header().Set("Location", statusURL)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.JobAccepted{
		JobID:     job.ID,
		Status:    job.Status,
		StatusURL: statusURL,
	})
	return nil
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) error {
	job, err := h.queue.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	render.JSON(w, r, job)
	return nil
}

// CancelJob handles DELETE /api/v1/jobs/{id}
func (h *JobsHandler) CancelJob(w http.ResponseWriter, r *http.Request) error {
	job, err := h.queue.CancelJob(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	h.logger.InfoContext(r.Context(), "Job cancellation requested",
		slog.String("job_id", job.ID),
		slog.String("status", string(job.Status)))
	render.JSON(w, r, job)
	return nil
}

// ListJobs handles GET /api/v1/jobs?status=&limit=
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) error {
	filter := domain.JobFilter{Status: domain.JobStatus(r.URL.Query().Get("status"))}
	switch filter.Status {
	case "", domain.JobStatusQueued, domain.JobStatusRunning, domain.JobStatusCompleted,
		domain.JobStatusFailed, domain.JobStatusCancelled:
	default:
		return apierrors.ErrValidation("status", "status must be one of: queued, running, completed, failed, cancelled")
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return apierrors.ErrValidation("limit", "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}

	jobs, err := h.queue.ListJobs(filter)
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	render.JSON(w, r, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
	return nil
}

// Stats handles GET /api/v1/jobs/stats
func (h *JobsHandler) Stats(w http.ResponseWriter, r *http.Request) error {
	render.JSON(w, r, h.queue.Stats())
	return nil
}
