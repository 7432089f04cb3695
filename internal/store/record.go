package store

import (
	"encoding/json"
	"fmt"
	"time"

	"etlinspector/pkg/contracts/domain"
)

// ReportRecord is one stored report. The full report lives in Payload as
// JSON; the other columns exist for listing and aggregation.
type ReportRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Source      string    `gorm:"size:512;index"`
	Sheet       string    `gorm:"size:128"`
	Fingerprint string    `gorm:"size:64;index"`
	Rows        int       `gorm:"not null"`
	Columns     int       `gorm:"not null"`
	IssueCount  int       `gorm:"not null"`
	HighCount   int       `gorm:"not null;default:0"`
	MediumCount int       `gorm:"not null;default:0"`
	LowCount    int       `gorm:"not null;default:0"`
	Priority    string    `gorm:"size:16"`
	Payload     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName pins the table name.
func (ReportRecord) TableName() string {
	return "reports"
}

func newRecord(r domain.Report) (ReportRecord, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return ReportRecord{}, fmt.Errorf("encode report %s: %w", r.ID, err)
	}
	counts := r.CountBySeverity()
	created := r.GeneratedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return ReportRecord{
		ID:          r.ID,
		Source:      r.Source,
		Sheet:       r.Sheet,
		Fingerprint: r.Fingerprint,
		Rows:        r.Rows,
		Columns:     r.Columns,
		IssueCount:  len(r.Issues),
		HighCount:   counts[domain.SeverityHigh],
		MediumCount: counts[domain.SeverityMedium],
		LowCount:    counts[domain.SeverityLow],
		Priority:    string(r.Priority()),
		Payload:     string(payload),
		CreatedAt:   created,
	}, nil
}

// Report decodes the stored payload.
func (rec ReportRecord) Report() (domain.Report, error) {
	var r domain.Report
	if err := json.Unmarshal([]byte(rec.Payload), &r); err != nil {
		return domain.Report{}, fmt.Errorf("decode report %s: %w", rec.ID, err)
	}
	return r, nil
}

// Summary builds the listing form without decoding the payload.
func (rec ReportRecord) Summary() domain.ReportSummary {
	return domain.ReportSummary{
		ID:          rec.ID,
		Source:      rec.Source,
		Fingerprint: rec.Fingerprint,
		Rows:        rec.Rows,
		Columns:     rec.Columns,
		IssueCount:  rec.IssueCount,
		Priority:    domain.ReportPriority(rec.Priority),
		GeneratedAt: rec.CreatedAt,
	}
}
