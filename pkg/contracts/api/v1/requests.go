// Package api contains the request and response bodies of the v1 HTTP API.
package api

import (
	"etlinspector/pkg/contracts/domain"
)

// AnalyzeForm holds the non-file fields of an analyze or job upload.
type AnalyzeForm struct {
	Sheet    string   `json:"sheet,omitempty" form:"sheet" validate:"max=31"`
	Checks   []string `json:"checks,omitempty" form:"checks" validate:"omitempty,dive,check"`
	Parallel bool     `json:"parallel,omitempty" form:"parallel"`
}

// ExportRequest selects the download format of a stored report.
type ExportRequest struct {
	ReportID string `json:"report_id" param:"id" validate:"required"`
	Format   string `json:"format" query:"format" validate:"required,exportformat"`
}

// ListReportsRequest pages through the report history.
type ListReportsRequest struct {
	Limit int `json:"limit" query:"limit" validate:"min=0,max=200"`
}

// JobAccepted is returned with 202 when a job is queued.
type JobAccepted struct {
	JobID     string           `json:"job_id"`
	Status    domain.JobStatus `json:"status"`
	StatusURL string           `json:"status_url"`
}

// ReportList is the body of the history listing.
type ReportList struct {
	Reports []domain.ReportSummary `json:"reports"`
	Count   int                    `json:"count"`
}

// CheckInfo describes one registered check.
type CheckInfo struct {
	Name        string          `json:"name"`
	Category    domain.Category `json:"category"`
	Description string          `json:"description"`
}

// CheckList is the body of the check catalogue.
type CheckList struct {
	Checks []CheckInfo `json:"checks"`
}
