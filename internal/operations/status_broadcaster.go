package operations

import (
	"log/slog"
	"sync"

	"etlinspector/pkg/contracts/domain"
	"etlinspector/pkg/contracts/events"
)

// StatusBroadcaster is the single authority for job status updates.
// It keeps the last message per job and pushes every accepted change to
// the hub. Updates are applied one at a time by a single goroutine.
type StatusBroadcaster struct {
	mu       sync.RWMutex
	jobs     map[string]events.JobMessage
	hub      WebSocketHub
	logger   *slog.Logger
	updates  chan updateRequest
	stop     chan struct{}
	stopOnce sync.Once
}

type updateRequest struct {
	job  domain.Job
	done chan struct{}
}

// NewStatusBroadcaster creates a new status broadcaster
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		jobs:    make(map[string]events.JobMessage),
		hub:     hub,
		logger:  logger.With(slog.String("component", "status_broadcaster")),
		updates: make(chan updateRequest, 100),
		stop:    make(chan struct{}),
	}

	go sb.processUpdates()

	return sb
}

// processUpdates handles all updates sequentially to avoid race conditions
func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

// handleUpdate applies one job snapshot. Updates for a job that already
// reached a terminal state are dropped, and progress never moves
// backwards while the status is unchanged.
func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	msg := events.NewJobMessage(req.job)

	sb.mu.Lock()
	prev, exists := sb.jobs[msg.JobID]
	if exists && prev.Status.Terminal() {
		sb.mu.Unlock()
		sb.logger.Debug("dropping update for finished job",
			slog.String("job_id", msg.JobID),
			slog.String("status", string(msg.Status)))
		return
	}
	if exists && prev.Status == msg.Status && msg.Progress < prev.Progress {
		msg.Progress = prev.Progress
	}
	sb.jobs[msg.JobID] = msg
	sb.mu.Unlock()

	sb.broadcast(msg)
}

// broadcast sends the message to all connected clients
func (sb *StatusBroadcaster) broadcast(msg events.JobMessage) {
	if sb.hub == nil {
		return
	}

	sb.logger.Debug("broadcasting job update",
		slog.String("job_id", msg.JobID),
		slog.String("status", string(msg.Status)),
		slog.Int("progress", msg.Progress))

	if err := sb.hub.BroadcastJSON(msg); err != nil {
		sb.logger.Warn("failed to broadcast job update",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()))
	}
}

// Publish records the job's current state and broadcasts it. It blocks
// until the update is applied or the broadcaster is stopped.
func (sb *StatusBroadcaster) Publish(job domain.Job) {
	req := updateRequest{job: job, done: make(chan struct{})}

	select {
	case sb.updates <- req:
	case <-sb.stop:
		return
	}
	select {
	case <-req.done:
	case <-sb.stop:
	}
}

// Snapshot returns the last message broadcast for a job.
func (sb *StatusBroadcaster) Snapshot(jobID string) (events.JobMessage, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	msg, ok := sb.jobs[jobID]
	return msg, ok
}

// Forget drops the snapshot of a pruned job.
func (sb *StatusBroadcaster) Forget(jobID string) {
	sb.mu.Lock()
	delete(sb.jobs, jobID)
	sb.mu.Unlock()
}

// Stop shuts down the broadcaster. It is safe to call more than once.
func (sb *StatusBroadcaster) Stop() {
	sb.stopOnce.Do(func() { close(sb.stop) })
}
