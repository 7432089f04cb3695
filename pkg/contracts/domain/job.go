package domain

import "time"

// JobStatus is the lifecycle state of an asynchronous analysis.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is an analysis queued for background execution.
type Job struct {
	ID          string     `json:"id" validate:"required,uuid"`
	Source      string     `json:"source"`
	Sheet       string     `json:"sheet,omitempty"`
	Checks      []string   `json:"checks,omitempty"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress" validate:"min=0,max=100"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	ReportID    string     `json:"report_id,omitempty"`
	TraceID     string     `json:"trace_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobFilter narrows job listings.
type JobFilter struct {
	Status JobStatus
	Since  time.Time
	Limit  int
}
