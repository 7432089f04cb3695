// Package events defines the messages ETL Inspector emits to WebSocket
// clients and to the message bus.
package events

import (
	"time"

	"etlinspector/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeConnection greets a newly registered client.
	MessageTypeConnection MessageType = "connection"
	// MessageTypeJobUpdate carries every job state change.
	MessageTypeJobUpdate MessageType = "job:update"
	MessageTypeError     MessageType = "error"
)

// JobMessage is the only payload streamed for job progress.
type JobMessage struct {
	Type      MessageType      `json:"type"`
	JobID     string           `json:"job_id"`
	Status    domain.JobStatus `json:"status"`
	Progress  int              `json:"progress"`
	ReportID  string           `json:"report_id,omitempty"`
	Message   string           `json:"message,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewJobMessage snapshots a job as a job:update message.
func NewJobMessage(job domain.Job) JobMessage {
	return JobMessage{
		Type:      MessageTypeJobUpdate,
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ReportID:  job.ReportID,
		Message:   job.Message,
		Error:     job.Error,
		Timestamp: time.Now().UTC(),
	}
}

// ConnectionMessage is sent once to each client after registration.
type ConnectionMessage struct {
	Type      MessageType `json:"type"`
	ClientID  string      `json:"client_id"`
	Status    string      `json:"status"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
