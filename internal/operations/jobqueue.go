package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"etlinspector/internal/config"
	"etlinspector/internal/infrastructure"
	"etlinspector/internal/services"
	"etlinspector/pkg/contracts/domain"
)

// ErrQueueStopped is returned by Enqueue after Stop.
var ErrQueueStopped = errors.New("job queue is stopped")

// JobRequest is the input of one background analysis.
type JobRequest struct {
	// Path is the file to analyse. The queue owns it once Enqueue succeeds.
	Path     string
	Source   string
	Sheet    string
	Checks   []string
	Parallel bool
	TraceID  string
	// Cleanup runs once the job is finished or discarded.
	Cleanup func()
}

type queuedJob struct {
	id  string
	req JobRequest
}

// QueueStats is a point-in-time view of the queue.
type QueueStats struct {
	Workers  int `json:"workers"`
	Queued   int `json:"queued"`
	Capacity int `json:"capacity"`
	Running  int `json:"running"`
}

// QueueOption customises a JobQueue.
type QueueOption func(*JobQueue)

// WithMetrics records active jobs and cancellations.
func WithMetrics(m *infrastructure.BusinessMetrics) QueueOption {
	return func(q *JobQueue) { q.metrics = m }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) QueueOption {
	return func(q *JobQueue) {
		if t != nil {
			q.tracer = t
		}
	}
}

// JobQueue manages async job execution
type JobQueue struct {
	mu          sync.Mutex
	jobs        chan queuedJob
	workers     int
	timeout     time.Duration
	retention   time.Duration
	wg          sync.WaitGroup
	store       JobStore
	analyzer    Analyzer
	broadcaster *StatusBroadcaster
	metrics     *infrastructure.BusinessMetrics
	tracer      trace.Tracer
	logger      *slog.Logger
	shutdown    chan struct{}
	stopOnce    sync.Once
	cancels     map[string]context.CancelFunc // running jobs
}

// NewJobQueue creates a new job queue. broadcaster may be nil.
func NewJobQueue(cfg config.JobsConfig, store JobStore, analyzer Analyzer, broadcaster *StatusBroadcaster, logger *slog.Logger, opts ...QueueOption) *JobQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &JobQueue{
		jobs:        make(chan queuedJob, cfg.QueueSize),
		workers:     cfg.Workers,
		timeout:     cfg.Timeout,
		retention:   cfg.Retention,
		store:       store,
		analyzer:    analyzer,
		broadcaster: broadcaster,
		tracer:      defaultTracer(),
		logger:      logger.With(slog.String("component", "jobqueue")),
		shutdown:    make(chan struct{}),
		cancels:     make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start begins processing jobs
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.Info("starting job queue",
		slog.Int("workers", q.workers),
		slog.Int("capacity", cap(q.jobs)))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	if q.retention > 0 {
		q.wg.Add(1)
		go q.pruneLoop(ctx)
	}
}

// Stop gracefully shuts down the job queue. Running jobs get until timeout
// to finish and are cancelled after that. Jobs still queued are cancelled.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")
	q.stopOnce.Do(func() { close(q.shutdown) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded, cancelling running jobs")
		q.cancelRunning()
		<-done
		err = fmt.Errorf("timeout waiting for workers to finish")
	}

	q.drain()
	return err
}

// Enqueue records a job and hands it to the workers.
func (q *JobQueue) Enqueue(ctx context.Context, req JobRequest) (*domain.Job, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("%w: no file given", services.ErrInvalidRequest)
	}
	select {
	case <-q.shutdown:
		return nil, ErrQueueStopped
	default:
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = infrastructure.GetTraceID(infrastructure.EnsureTraceID(ctx))
	}
	job := &domain.Job{
		ID:        uuid.NewString(),
		Source:    req.Source,
		Sheet:     req.Sheet,
		Checks:    req.Checks,
		Status:    domain.JobStatusQueued,
		Message:   "Job queued",
		TraceID:   traceID,
		CreatedAt: time.Now().UTC(),
	}

	if err := q.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	q.publish(job)

	select {
	case q.jobs <- queuedJob{id: job.ID, req: req}:
		q.logger.InfoContext(ctx, "job enqueued",
			slog.String("job_id", job.ID),
			slog.String("source", job.Source))
		return job, nil
	default:
		job.Status = domain.JobStatusFailed
		job.Error = services.ErrQueueFull.Error()
		job.Message = "Job rejected"
		completedAt := time.Now().UTC()
		job.CompletedAt = &completedAt
		q.update(job)
		q.publish(job)
		return nil, services.ErrQueueFull
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*domain.Job, error) {
	return q.store.GetJob(id)
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter domain.JobFilter) ([]*domain.Job, error) {
	return q.store.ListJobs(filter)
}

// CancelJob cancels a queued or running job. A queued job is marked
// cancelled immediately; a running job is marked by its worker once the
// analysis stops.
func (q *JobQueue) CancelJob(id string) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.Status, services.ErrJobNotCancellable)
	}

	if cancel, running := q.cancels[id]; running {
		cancel()
		job.Message = "Cancellation requested"
		q.logger.Info("cancelling running job", slog.String("job_id", id))
		return job, nil
	}

	job.Status = domain.JobStatusCancelled
	job.Message = "Job cancelled"
	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt
	q.update(job)
	q.metrics.RecordJobCancellation(context.Background(), "user")
	q.logger.Info("cancelled queued job", slog.String("job_id", id))
	q.publish(job)
	return job, nil
}

// Stats returns queue statistics
func (q *JobQueue) Stats() QueueStats {
	q.mu.Lock()
	running := len(q.cancels)
	q.mu.Unlock()

	return QueueStats{
		Workers:  q.workers,
		Queued:   len(q.jobs),
		Capacity: cap(q.jobs),
		Running:  running,
	}
}

// worker processes jobs from the queue
func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case qj := <-q.jobs:
			q.processJob(ctx, qj, logger)
		}
	}
}

// claim moves a queued job to running and registers its cancel func. It
// returns nil when the job was cancelled while waiting.
func (q *JobQueue) claim(ctx context.Context, id string) (*domain.Job, context.Context, context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil || job.Status != domain.JobStatusQueued {
		return nil, nil, nil
	}

	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if q.timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, q.timeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	q.cancels[id] = cancel

	job.Status = domain.JobStatusRunning
	startedAt := time.Now().UTC()
	job.StartedAt = &startedAt
	job.Progress = 0
	job.Message = "Job started"
	q.update(job)
	return job, jobCtx, cancel
}

// processJob executes a single job
func (q *JobQueue) processJob(ctx context.Context, qj queuedJob, logger *slog.Logger) {
	if qj.req.Cleanup != nil {
		defer qj.req.Cleanup()
	}

	job, jobCtx, cancel := q.claim(ctx, qj.id)
	if job == nil {
		logger.Debug("skipping job that is no longer queued", slog.String("job_id", qj.id))
		return
	}
	defer func() {
		q.mu.Lock()
		delete(q.cancels, job.ID)
		q.mu.Unlock()
		cancel()
	}()

	if job.TraceID != "" {
		jobCtx = infrastructure.WithTraceID(jobCtx, job.TraceID)
	}
	jobCtx, span := traceJob(jobCtx, q.tracer, job)
	logger = logger.With(slog.String("job_id", job.ID))

	q.metrics.RecordActiveJobChange(jobCtx, 1)
	defer q.metrics.RecordActiveJobChange(context.Background(), -1)

	logger.InfoContext(jobCtx, "processing job started")
	q.publish(job)

	var runErr error
	defer func() {
		// Recover from any panics to prevent server crash
		if r := recover(); r != nil {
			logger.Error("job processing panicked", slog.Any("panic", r))
			runErr = fmt.Errorf("job processing panicked: %v", r)
			q.finish(job, domain.JobStatusFailed, "Internal error occurred", runErr)
		}
		finishJobSpan(span, job, runErr)
	}()

	report, err := q.analyzer.Analyze(jobCtx, services.AnalyzeRequest{
		Path:     qj.req.Path,
		Source:   qj.req.Source,
		Sheet:    qj.req.Sheet,
		Checks:   qj.req.Checks,
		Parallel: qj.req.Parallel,
		Progress: func(progress int, message string) {
			if progress >= 100 {
				return
			}
			job.Progress = progress
			job.Message = message
			q.update(job)
			q.publish(job)
		},
	})
	runErr = err

	switch {
	case err == nil:
		job.ReportID = report.ID
		job.Progress = 100
		q.finish(job, domain.JobStatusCompleted, "Analysis complete", nil)
		logger.InfoContext(jobCtx, "processing job completed", slog.String("report_id", report.ID))
	case errors.Is(err, context.DeadlineExceeded):
		q.metrics.RecordJobCancellation(jobCtx, "timeout")
		q.finish(job, domain.JobStatusFailed, "Job timed out", err)
		logger.WarnContext(jobCtx, "job timed out", slog.Duration("timeout", q.timeout))
	case errors.Is(err, context.Canceled):
		reason := "user"
		if ctx.Err() != nil {
			reason = "shutdown"
		}
		q.metrics.RecordJobCancellation(context.Background(), reason)
		q.finish(job, domain.JobStatusCancelled, "Job cancelled", nil)
		logger.InfoContext(jobCtx, "job cancelled", slog.String("reason", reason))
	default:
		q.finish(job, domain.JobStatusFailed, "Job failed", err)
		logger.ErrorContext(jobCtx, "job failed", slog.String("error", err.Error()))
	}
}

// finish moves the job to a terminal state, stores and broadcasts it.
func (q *JobQueue) finish(job *domain.Job, status domain.JobStatus, message string, err error) {
	job.Status = status
	job.Message = message
	if err != nil {
		job.Error = err.Error()
	}
	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt
	q.update(job)
	q.publish(job)
}

func (q *JobQueue) update(job *domain.Job) {
	if err := q.store.UpdateJob(job); err != nil {
		q.logger.Error("failed to update job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	}
}

func (q *JobQueue) publish(job *domain.Job) {
	if q.broadcaster != nil {
		q.broadcaster.Publish(*job)
	}
}

func (q *JobQueue) cancelRunning() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, cancel := range q.cancels {
		cancel()
	}
}

// drain cancels jobs that were still queued at shutdown.
func (q *JobQueue) drain() {
	for {
		select {
		case qj := <-q.jobs:
			if job, err := q.store.GetJob(qj.id); err == nil && job.Status == domain.JobStatusQueued {
				q.finish(job, domain.JobStatusCancelled, "Server shutting down", nil)
				q.metrics.RecordJobCancellation(context.Background(), "shutdown")
			}
			if qj.req.Cleanup != nil {
				qj.req.Cleanup()
			}
		default:
			return
		}
	}
}

// pruneLoop removes finished jobs older than the retention period.
func (q *JobQueue) pruneLoop(ctx context.Context) {
	defer q.wg.Done()

	pruner, ok := q.store.(interface{ PruneFinished(time.Time) []string })
	if !ok {
		return
	}

	interval := max(q.retention/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.shutdown:
			return
		case <-ticker.C:
			removed := pruner.PruneFinished(time.Now().Add(-q.retention))
			for _, id := range removed {
				if q.broadcaster != nil {
					q.broadcaster.Forget(id)
				}
			}
			if len(removed) > 0 {
				q.logger.Debug("pruned finished jobs", slog.Int("count", len(removed)))
			}
		}
	}
}
