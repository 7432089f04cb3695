package http

import (
	"context"
	"io"
	"net/http"

	"etlinspector/internal/detector"
	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/exporter"
	"etlinspector/internal/operations"
	"etlinspector/internal/services"
	"etlinspector/pkg/contracts/domain"
)

// AnalysisService is the part of services.AnalysisService the handlers use.
type AnalysisService interface {
	Analyze(ctx context.Context, req services.AnalyzeRequest) (domain.Report, error)
	GetReport(ctx context.Context, id string) (domain.Report, error)
	ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error)
	Checks() []detector.Info
}

// JobQueue is the part of operations.JobQueue the handlers use.
type JobQueue interface {
	Enqueue(ctx context.Context, req operations.JobRequest) (*domain.Job, error)
	GetJob(id string) (*domain.Job, error)
	CancelJob(id string) (*domain.Job, error)
	ListJobs(filter domain.JobFilter) ([]*domain.Job, error)
	Stats() operations.QueueStats
}

// ReportExporter renders a report in a download format.
type ReportExporter interface {
	Export(ctx context.Context, w io.Writer, f exporter.Format, report domain.Report) error
}

// ErrorMappings maps the service sentinels to problem documents. Pass them
// to errors.NewErrorHandler.
func ErrorMappings() []apierrors.Mapping {
	return []apierrors.Mapping{
		{Target: services.ErrReportNotFound, Status: http.StatusNotFound, Type: apierrors.TypeReportNotFound, Title: "Report Not Found"},
		{Target: services.ErrJobNotFound, Status: http.StatusNotFound, Type: apierrors.TypeJobNotFound, Title: "Job Not Found"},
		{Target: services.ErrJobNotCancellable, Status: http.StatusConflict, Type: apierrors.TypeConflict, Title: "Job Not Cancellable"},
		{Target: services.ErrQueueFull, Status: http.StatusServiceUnavailable, Type: apierrors.TypeServiceDown, Title: "Job Queue Full"},
		{Target: operations.ErrQueueStopped, Status: http.StatusServiceUnavailable, Type: apierrors.TypeServiceDown, Title: "Job Queue Stopped"},
		{Target: services.ErrInvalidRequest, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Invalid Request"},
	}
}
