package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"etlinspector/internal/cache"
	"etlinspector/internal/dataset"
	"etlinspector/internal/detector"
	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/events"
	"etlinspector/internal/infrastructure"
	"etlinspector/internal/ingest"
	"etlinspector/internal/suggestions"
	"etlinspector/internal/validation"
	"etlinspector/pkg/contracts/domain"
)

// ProgressFunc receives coarse progress (0-100) while an analysis runs.
type ProgressFunc func(progress int, message string)

// AnalyzeRequest describes one analysis. Exactly one of Path or Dataset
// must be set.
type AnalyzeRequest struct {
	// Path is a local file or a sheets:// URI.
	Path string
	// Dataset is an already loaded table.
	Dataset *dataset.Dataset
	// Source overrides the report's source name, e.g. the original upload
	// name when Path is a temp file.
	Source string
	Sheet  string
	// Checks restricts the run. Empty means the configured default.
	Checks   []string
	Parallel bool
	Progress ProgressFunc
}

// AnalysisDeps wires an AnalysisService. Only Validator may be left nil
// when callers validate themselves; every other nil field gets a default.
type AnalysisDeps struct {
	Validator *validation.FileValidator
	Catalogue *suggestions.Catalogue
	Store     ReportStore
	Cache     cache.ReportCache
	Publisher events.Publisher
	Metrics   *infrastructure.BusinessMetrics
	Tracer    trace.Tracer
	Logger    *slog.Logger
	// Options are the default detection options.
	Options detector.Options
	// Ingest are the default reader options.
	Ingest ingest.Options
}

// AnalysisService runs the full analysis pipeline.
type AnalysisService struct {
	validator *validation.FileValidator
	engine    *detector.Engine
	catalogue *suggestions.Catalogue
	store     ReportStore
	cache     cache.ReportCache
	publisher events.Publisher
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
	options   detector.Options
	ingest    ingest.Options
}

// NewAnalysisService creates the service and its detection engine.
func NewAnalysisService(deps AnalysisDeps) *AnalysisService {
	s := &AnalysisService{
		validator: deps.Validator,
		catalogue: deps.Catalogue,
		store:     deps.Store,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		logger:    deps.Logger,
		options:   deps.Options,
		ingest:    deps.Ingest,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "analysis"))
	if s.catalogue == nil {
		s.catalogue = suggestions.Default()
	}
	if s.store == nil {
		s.store = NewMemoryReportStore(0)
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.tracer == nil {
		s.tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)
	}

	s.engine = detector.NewEngine(
		detector.WithLogger(s.logger),
		detector.WithSuggester(s.catalogue),
		detector.WithSkipHook(func(check, column string, err error) {
			s.metrics.RecordCheckSkipped(context.Background(), check)
		}),
	)
	return s
}

// Engine exposes the detection engine, e.g. for the check catalogue.
func (s *AnalysisService) Engine() *detector.Engine {
	return s.engine
}

// Checks lists the registered checks.
func (s *AnalysisService) Checks() []detector.Info {
	return s.engine.Catalogue()
}

// Analyze runs the pipeline for one request and returns the stored report.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (domain.Report, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analysis.Analyze",
		trace.WithAttributes(
			attribute.String("analysis.source", req.sourceName()),
			attribute.StringSlice("analysis.checks", req.Checks),
		))
	defer span.End()

	report, cached, err := s.analyze(ctx, req)
	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordAnalysis(ctx, "failure", duration)
		s.logger.WarnContext(ctx, "Analysis failed",
			slog.String("source", req.sourceName()),
			slog.String("error", err.Error()))
		return domain.Report{}, err
	}

	status := "success"
	if cached {
		status = "cached"
	}
	s.metrics.RecordAnalysis(ctx, status, duration)
	span.SetAttributes(
		attribute.String("analysis.report_id", report.ID),
		attribute.Int("analysis.issues", len(report.Issues)),
		attribute.Bool("analysis.cached", cached),
	)
	s.logger.InfoContext(ctx, "Analysis finished",
		slog.String("report_id", report.ID),
		slog.String("source", report.Source),
		slog.Int("rows", report.Rows),
		slog.Int("issues", len(report.Issues)),
		slog.Bool("cached", cached),
		slog.Duration("duration", duration))
	return report, nil
}

func (s *AnalysisService) analyze(ctx context.Context, req AnalyzeRequest) (domain.Report, bool, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(int, string) {}
	}

	opts, err := s.detectOptions(req)
	if err != nil {
		return domain.Report{}, false, err
	}

	ds, err := s.load(ctx, req)
	if err != nil {
		return domain.Report{}, false, err
	}
	progress(30, fmt.Sprintf("Loaded %d rows", ds.NumRows()))

	fingerprint := ds.Fingerprint()
	key := cache.Key(fingerprint, opts.Checks, fmt.Sprintf("%+v", opts.Thresholds))
	// A cache hit reuses the findings only. Every analysis still gets its
	// own ID, source and history entry.
	report, cached := s.lookup(ctx, key)
	if cached {
		progress(80, "Findings served from cache")
		report.Source = ds.Name()
	} else {
		progress(40, "Running checks")
		report, err = s.engine.Detect(ctx, ds, opts)
		if err != nil {
			return domain.Report{}, false, fmt.Errorf("detect %s: %w", ds.Name(), err)
		}
		s.metrics.RecordIssues(ctx, report)
		infrastructure.AddSpanEvent(ctx, "checks.completed", attribute.Int("issues", len(report.Issues)))
		progress(80, fmt.Sprintf("Found %d issues", len(report.Issues)))
	}

	report.ID = uuid.NewString()
	report.Sheet = req.Sheet
	if req.Source != "" {
		report.Source = req.Source
	}
	report.Suggestions = s.catalogue.ForReport(report)
	report.GeneratedAt = time.Now().UTC()

	if err := s.store.Create(ctx, report); err != nil {
		return domain.Report{}, false, apierrors.NewStorageError("store report", err).
			WithContext("report_id", report.ID)
	}
	progress(90, "Report stored")

	if !cached {
		if err := s.cache.Put(ctx, key, report); err != nil {
			s.logger.WarnContext(ctx, "Failed to cache report",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	if err := s.publisher.PublishReportCompleted(ctx, report); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish report event",
			slog.String("report_id", report.ID), slog.String("error", err.Error()))
	}
	progress(100, "Analysis complete")
	return report, cached, nil
}

// detectOptions merges the request with the defaults and rejects unknown
// checks before any file is read.
func (s *AnalysisService) detectOptions(req AnalyzeRequest) (detector.Options, error) {
	opts := s.options
	if len(req.Checks) > 0 {
		opts.Checks = req.Checks
	}
	if req.Parallel {
		opts.Parallel = true
	}

	known := s.engine.Catalogue()
	names := make([]string, len(known))
	for i, info := range known {
		names[i] = info.Name
	}
	for _, name := range opts.Checks {
		if !slices.Contains(names, name) {
			return detector.Options{}, fmt.Errorf("check %q: %w", name, detector.ErrUnknownCheck)
		}
	}
	if len(opts.Checks) == 0 {
		opts.Checks = names
	}
	return opts, nil
}

func (s *AnalysisService) load(ctx context.Context, req AnalyzeRequest) (*dataset.Dataset, error) {
	switch {
	case req.Dataset != nil:
		return req.Dataset, nil
	case req.Path == "":
		return nil, fmt.Errorf("%w: no file or dataset given", ErrInvalidRequest)
	}

	if s.validator != nil && !strings.HasPrefix(req.Path, ingest.SheetsScheme) {
		if err := s.validator.ValidateFile(req.Path); err != nil {
			return nil, err
		}
	}

	opts := s.ingest
	if req.Sheet != "" {
		opts.Sheet = req.Sheet
	}
	ds, err := ingest.Open(ctx, req.Path, opts)
	if err != nil {
		return nil, apierrors.NewParsingError("read "+req.sourceName(), err)
	}
	return ds, nil
}

// lookup consults the cache. Cache failures count as misses.
func (s *AnalysisService) lookup(ctx context.Context, key string) (domain.Report, bool) {
	report, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Report cache lookup failed",
			slog.String("key", key), slog.String("error", err.Error()))
		ok = false
	}
	if _, isNoop := s.cache.(cache.Noop); !isNoop {
		s.metrics.RecordCacheLookup(ctx, ok)
	}
	return report, ok
}

// GetReport loads a stored report.
func (s *AnalysisService) GetReport(ctx context.Context, id string) (domain.Report, error) {
	report, err := s.store.FindByID(ctx, id)
	if isNotFound(err) {
		return domain.Report{}, fmt.Errorf("%s: %w", id, ErrReportNotFound)
	}
	if err != nil {
		return domain.Report{}, err
	}
	return report, nil
}

// ListReports returns the newest reports first.
func (s *AnalysisService) ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	return s.store.List(ctx, limit)
}

func (r AnalyzeRequest) sourceName() string {
	switch {
	case r.Source != "":
		return r.Source
	case r.Dataset != nil:
		return r.Dataset.Name()
	default:
		return r.Path
	}
}
