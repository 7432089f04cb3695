package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlinspector/internal/config"
	"etlinspector/internal/services"
	"etlinspector/pkg/contracts/domain"
	"etlinspector/pkg/contracts/events"
)

type analyzerFunc func(ctx context.Context, req services.AnalyzeRequest) (domain.Report, error)

func (f analyzerFunc) Analyze(ctx context.Context, req services.AnalyzeRequest) (domain.Report, error) {
	return f(ctx, req)
}

type recordingHub struct {
	mu       sync.Mutex
	messages []events.JobMessage
}

func (h *recordingHub) BroadcastJSON(v interface{}) error {
	msg, ok := v.(events.JobMessage)
	if !ok {
		return fmt.Errorf("unexpected message %T", v)
	}
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
	return nil
}

func (h *recordingHub) statuses(jobID string) []domain.JobStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.JobStatus
	for _, m := range h.messages {
		if m.JobID == jobID {
			out = append(out, m.Status)
		}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueue(t *testing.T, cfg config.JobsConfig, analyzer Analyzer) (*JobQueue, *MemoryJobStore, *recordingHub) {
	t.Helper()
	hub := &recordingHub{}
	broadcaster := NewStatusBroadcaster(hub, quietLogger())
	t.Cleanup(broadcaster.Stop)
	store := NewMemoryJobStore()
	return NewJobQueue(cfg, store, analyzer, broadcaster, quietLogger()), store, hub
}

func waitForStatus(t *testing.T, q *JobQueue, id string, want domain.JobStatus) *domain.Job {
	t.Helper()
	var job *domain.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = q.GetJob(id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return job
}

// blockingAnalyzer waits for its context and reports when it has started.
func blockingAnalyzer(started chan<- struct{}) analyzerFunc {
	return func(ctx context.Context, _ services.AnalyzeRequest) (domain.Report, error) {
		close(started)
		<-ctx.Done()
		return domain.Report{}, fmt.Errorf("detection cancelled: %w", ctx.Err())
	}
}

func TestJobQueue(t *testing.T) {
	t.Run("completes job", func(t *testing.T) {
		var cleaned atomic.Bool
		analyzer := analyzerFunc(func(ctx context.Context, req services.AnalyzeRequest) (domain.Report, error) {
			assert.Equal(t, "/tmp/upload-1.csv", req.Path)
			assert.Equal(t, []string{"null_check"}, req.Checks)
			req.Progress(30, "Loaded 3 rows")
			req.Progress(80, "Found 1 issues")
			return domain.Report{ID: "report-1"}, nil
		})
		q, _, hub := newTestQueue(t, config.JobsConfig{Workers: 2, QueueSize: 4}, analyzer)
		q.Start(context.Background())
		defer q.Stop(time.Second)

		job, err := q.Enqueue(context.Background(), JobRequest{
			Path:    "/tmp/upload-1.csv",
			Source:  "customers.csv",
			Checks:  []string{"null_check"},
			Cleanup: func() { cleaned.Store(true) },
		})
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.Len(t, job.ID, 36)
		assert.NotEmpty(t, job.TraceID)

		done := waitForStatus(t, q, job.ID, domain.JobStatusCompleted)
		assert.Equal(t, "report-1", done.ReportID)
		assert.Equal(t, 100, done.Progress)
		assert.NotNil(t, done.StartedAt)
		assert.NotNil(t, done.CompletedAt)
		assert.Eventually(t, cleaned.Load, time.Second, 5*time.Millisecond)

		statuses := hub.statuses(job.ID)
		require.NotEmpty(t, statuses)
		assert.Equal(t, domain.JobStatusQueued, statuses[0])
		assert.Equal(t, domain.JobStatusCompleted, statuses[len(statuses)-1])
		assert.Contains(t, statuses, domain.JobStatusRunning)
	})

	t.Run("records failure", func(t *testing.T) {
		analyzer := analyzerFunc(func(context.Context, services.AnalyzeRequest) (domain.Report, error) {
			return domain.Report{}, errors.New("read customers.csv: no header row")
		})
		q, _, _ := newTestQueue(t, config.JobsConfig{Workers: 1}, analyzer)
		q.Start(context.Background())
		defer q.Stop(time.Second)

		job, err := q.Enqueue(context.Background(), JobRequest{Path: "x.csv"})
		require.NoError(t, err)

		failed := waitForStatus(t, q, job.ID, domain.JobStatusFailed)
		assert.Equal(t, "read customers.csv: no header row", failed.Error)
		assert.Empty(t, failed.ReportID)
	})

	t.Run("recovers from panic", func(t *testing.T) {
		analyzer := analyzerFunc(func(context.Context, services.AnalyzeRequest) (domain.Report, error) {
			panic("boom")
		})
		q, _, _ := newTestQueue(t, config.JobsConfig{Workers: 1}, analyzer)
		q.Start(context.Background())
		defer q.Stop(time.Second)

		job, err := q.Enqueue(context.Background(), JobRequest{Path: "x.csv"})
		require.NoError(t, err)

		failed := waitForStatus(t, q, job.ID, domain.JobStatusFailed)
		assert.Contains(t, failed.Error, "panicked")
	})

	t.Run("cancels running job", func(t *testing.T) {
		started := make(chan struct{})
		q, _, _ := newTestQueue(t, config.JobsConfig{Workers: 1}, blockingAnalyzer(started))
		q.Start(context.Background())
		defer q.Stop(time.Second)

		job, err := q.Enqueue(context.Background(), JobRequest{Path: "x.csv"})
		require.NoError(t, err)
		<-started

		pending, err := q.CancelJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cancellation requested", pending.Message)

		waitForStatus(t, q, job.ID, domain.JobStatusCancelled)
		assert.Equal(t, 0, q.Stats().Running)
	})

	t.Run("cancels queued job before it starts", func(t *testing.T) {
		var calls atomic.Int32
		var cleaned atomic.Bool
		analyzer := analyzerFunc(func(context.Context, services.AnalyzeRequest) (domain.Report, error) {
			calls.Add(1)
			return domain.Report{ID: "r"}, nil
		})
		q, _, _ := newTestQueue(t, config.JobsConfig{Workers: 1}, analyzer)

		job, err := q.Enqueue(context.Background(), JobRequest{Path: "x.csv", Cleanup: func() { cleaned.Store(true) }})
		require.NoError(t, err)

		cancelled, err := q.CancelJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)

		q.Start(context.Background())
		defer q.Stop(time.Second)

		assert.Eventually(t, cleaned.Load, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(0), calls.Load())

		_, err = q.CancelJob(job.ID)
		assert.ErrorIs(t, err, services.ErrJobNotCancellable)
	})

	t.Run("times out", func(t *testing.T) {
		started := make(chan struct{})
		q, _, _ := newTestQueue(t, config.JobsConfig{Workers: 1, Timeout: 20 * time.Millisecond}, blockingAnalyzer(started))
		q.Start(context.Background())
		defer q.Stop(time.Second)

		job, err := q.Enqueue(context.Background(), JobRequest{Path: "x.csv"})
		require.NoError(t, err)

		failed := waitForStatus(t, q, job.ID, domain.JobStatusFailed)
		assert.Equal(t, "Job timed out", failed.Message)
		assert.Contains(t, failed.Error, "deadline exceeded")
	})

	t.Run("rejects when full", func(t *testing.T) {
		q, store, _ := newTestQueue(t, config.JobsConfig{Workers: 1, QueueSize: 1}, analyzerFunc(nil))

		_, err := q.Enqueue(context.Background(), JobRequest{Path: "a.csv"})
		require.NoError(t, err)
		_, err = q.Enqueue(context.Background(), JobRequest{Path: "b.csv"})
		assert.ErrorIs(t, err, services.ErrQueueFull)

		failed, err := store.ListJobs(domain.JobFilter{Status: domain.JobStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, services.ErrQueueFull.Error(), failed[0].Error)
		assert.Equal(t, QueueStats{Workers: 1, Queued: 1, Capacity: 1}, q.Stats())
	})

	t.Run("validates and refuses after stop", func(t *testing.T) {
		q, store, _ := newTestQueue(t, config.JobsConfig{Workers: 1, QueueSize: 4}, analyzerFunc(nil))

		_, err := q.Enqueue(context.Background(), JobRequest{})
		assert.ErrorIs(t, err, services.ErrInvalidRequest)

		var cleaned atomic.Bool
		queued, err := q.Enqueue(context.Background(), JobRequest{Path: "a.csv", Cleanup: func() { cleaned.Store(true) }})
		require.NoError(t, err)

		require.NoError(t, q.Stop(time.Second))
		assert.True(t, cleaned.Load(), "queued jobs are drained on stop")

		job, err := store.GetJob(queued.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, job.Status)

		_, err = q.Enqueue(context.Background(), JobRequest{Path: "b.csv"})
		assert.ErrorIs(t, err, ErrQueueStopped)
	})

	t.Run("unknown job", func(t *testing.T) {
		q, _, _ := newTestQueue(t, config.JobsConfig{}, analyzerFunc(nil))
		_, err := q.GetJob("missing")
		assert.ErrorIs(t, err, services.ErrJobNotFound)
		_, err = q.CancelJob("missing")
		assert.ErrorIs(t, err, services.ErrJobNotFound)
	})
}

func TestMemoryJobStore(t *testing.T) {
	store := NewMemoryJobStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []domain.JobStatus{domain.JobStatusQueued, domain.JobStatusCompleted, domain.JobStatusCompleted} {
		job := &domain.Job{
			ID:        fmt.Sprintf("job-%d", i),
			Status:    status,
			Checks:    []string{"null_check"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if status.Terminal() {
			completed := job.CreatedAt
			job.CompletedAt = &completed
		}
		require.NoError(t, store.CreateJob(job))
	}
	assert.Error(t, store.CreateJob(&domain.Job{ID: "job-0"}))

	all, err := store.ListJobs(domain.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "job-2", all[0].ID, "newest first")

	done, err := store.ListJobs(domain.JobFilter{Status: domain.JobStatusCompleted, Limit: 1})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "job-2", done[0].ID)

	recent, err := store.ListJobs(domain.JobFilter{Since: base.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	got, err := store.GetJob("job-0")
	require.NoError(t, err)
	got.Checks[0] = "mutated"
	again, _ := store.GetJob("job-0")
	assert.Equal(t, "null_check", again.Checks[0], "store hands out copies")

	removed := store.PruneFinished(base.Add(90 * time.Second))
	assert.Equal(t, []string{"job-1"}, removed)

	require.NoError(t, store.DeleteJob("job-0"))
	assert.ErrorIs(t, store.DeleteJob("job-0"), services.ErrJobNotFound)
	assert.ErrorIs(t, store.UpdateJob(&domain.Job{ID: "job-0"}), services.ErrJobNotFound)
}

func TestStatusBroadcaster(t *testing.T) {
	hub := &recordingHub{}
	sb := NewStatusBroadcaster(hub, quietLogger())
	defer sb.Stop()

	job := domain.Job{ID: "job-1", Status: domain.JobStatusRunning, Progress: 40}
	sb.Publish(job)

	job.Progress = 30
	sb.Publish(job)
	msg, ok := sb.Snapshot("job-1")
	require.True(t, ok)
	assert.Equal(t, 40, msg.Progress, "progress does not regress")

	job.Status = domain.JobStatusCompleted
	job.Progress = 100
	job.ReportID = "report-1"
	sb.Publish(job)

	job.Status = domain.JobStatusRunning
	sb.Publish(job)

	assert.Equal(t, []domain.JobStatus{
		domain.JobStatusRunning,
		domain.JobStatusRunning,
		domain.JobStatusCompleted,
	}, hub.statuses("job-1"), "updates after completion are dropped")

	msg, _ = sb.Snapshot("job-1")
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(
		`{"type":"job:update","job_id":"job-1","status":"completed","progress":100,"report_id":"report-1","timestamp":%q}`,
		msg.Timestamp.Format(time.RFC3339Nano)), string(raw))

	sb.Forget("job-1")
	_, ok = sb.Snapshot("job-1")
	assert.False(t, ok)

	sb.Stop()
	assert.NotPanics(t, func() { sb.Publish(job) })
}
