package domain

import (
	"sort"
	"time"
)

// Report is the ordered list of issues found in one dataset snapshot.
// Issues appear in check order, then in the dataset's column order.
type Report struct {
	ID          string        `json:"id,omitempty" validate:"omitempty,uuid"`
	Source      string        `json:"source"`
	Sheet       string        `json:"sheet,omitempty"`
	Fingerprint string        `json:"fingerprint"`
	Rows        int           `json:"rows" validate:"min=0"`
	Columns     int           `json:"columns" validate:"min=0"`
	Checks      []string      `json:"checks"`
	Issues      []Issue       `json:"issues"`
	Suggestions []Suggestion  `json:"suggestions,omitempty"`
	GeneratedAt time.Time     `json:"generated_at,omitempty"`
	Duration    time.Duration `json:"duration_ns,omitempty"`
}

// ReportPriority is the overall urgency of a report.
type ReportPriority string

const (
	PriorityLow    ReportPriority = "low"
	PriorityMedium ReportPriority = "medium"
	PriorityHigh   ReportPriority = "high"
)

// Priority thresholds on the total number of issues.
const (
	PriorityHighAbove   = 10
	PriorityMediumAbove = 5
)

// Priority ranks the report by how many issues it holds.
func (r Report) Priority() ReportPriority {
	switch n := len(r.Issues); {
	case n > PriorityHighAbove:
		return PriorityHigh
	case n > PriorityMediumAbove:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Clean reports whether no issue was found.
func (r Report) Clean() bool {
	return len(r.Issues) == 0
}

// AffectedColumns returns the distinct column names referenced by issues,
// in first-seen order. Dataset-scoped issues are not counted.
func (r Report) AffectedColumns() []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, issue := range r.Issues {
		if issue.DatasetScoped() {
			continue
		}
		if _, ok := seen[issue.Column]; ok {
			continue
		}
		seen[issue.Column] = struct{}{}
		cols = append(cols, issue.Column)
	}
	return cols
}

// CountBySeverity tallies issues per severity.
func (r Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, issue := range r.Issues {
		counts[issue.Severity]++
	}
	return counts
}

// Categories returns the distinct categories present, sorted by their
// position in the check order.
func (r Report) Categories() []Category {
	seen := make(map[Category]struct{})
	var cats []Category
	for _, issue := range r.Issues {
		if _, ok := seen[issue.Category]; ok {
			continue
		}
		seen[issue.Category] = struct{}{}
		cats = append(cats, issue.Category)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].Order() < cats[j].Order()
	})
	return cats
}

// IssuesFor returns the issues of one category, preserving order.
func (r Report) IssuesFor(c Category) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Category == c {
			out = append(out, issue)
		}
	}
	return out
}

// ReportSummary is the compact listing form used by history endpoints.
type ReportSummary struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Fingerprint string         `json:"fingerprint"`
	Rows        int            `json:"rows"`
	Columns     int            `json:"columns"`
	IssueCount  int            `json:"issue_count"`
	Priority    ReportPriority `json:"priority"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Summary builds the listing form of the report.
func (r Report) Summary() ReportSummary {
	return ReportSummary{
		ID:          r.ID,
		Source:      r.Source,
		Fingerprint: r.Fingerprint,
		Rows:        r.Rows,
		Columns:     r.Columns,
		IssueCount:  len(r.Issues),
		Priority:    r.Priority(),
		GeneratedAt: r.GeneratedAt,
	}
}
