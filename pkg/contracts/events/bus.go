package events

import (
	"time"

	"etlinspector/pkg/contracts/domain"
)

// ReportCompleted is published on the message bus after a report is stored.
type ReportCompleted struct {
	ReportID    string                `json:"report_id"`
	Source      string                `json:"source"`
	Fingerprint string                `json:"fingerprint"`
	IssueCount  int                   `json:"issue_count"`
	Priority    domain.ReportPriority `json:"priority"`
	CompletedAt time.Time             `json:"completed_at"`
}

// NewReportCompleted builds the event for r.
func NewReportCompleted(r domain.Report) ReportCompleted {
	completed := r.GeneratedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	return ReportCompleted{
		ReportID:    r.ID,
		Source:      r.Source,
		Fingerprint: r.Fingerprint,
		IssueCount:  len(r.Issues),
		Priority:    r.Priority(),
		CompletedAt: completed,
	}
}
