package detector

import (
	"fmt"
	"strconv"
	"strings"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

// DuplicateCheck counts rows that repeat an earlier row exactly. It reports
// at most one dataset-scoped issue.
type DuplicateCheck struct{}

func NewDuplicateCheck() *DuplicateCheck {
	return &DuplicateCheck{}
}

func (c *DuplicateCheck) Name() string {
	return DuplicateCheckName
}

func (c *DuplicateCheck) Category() domain.Category {
	return domain.CategoryDuplicates
}

func (c *DuplicateCheck) Description() string {
	return "Counts rows identical to an earlier row across every column."
}

func (c *DuplicateCheck) InspectDataset(ds *dataset.Dataset, th Thresholds) (domain.Issue, bool, error) {
	rows := ds.NumRows()
	if rows < 2 || ds.NumColumns() == 0 {
		return domain.Issue{}, false, nil
	}

	seen := make(map[string]struct{}, rows)
	var dups int
	var key strings.Builder
	for i := 0; i < rows; i++ {
		key.Reset()
		for _, v := range ds.Row(i) {
			writeCellKey(&key, v)
		}
		k := key.String()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}

	if dups == 0 {
		return domain.Issue{}, false, nil
	}

	sev := domain.SeverityMedium
	if float64(dups)/float64(rows) > th.normalized().HighRatio {
		sev = domain.SeverityHigh
	}

	pct := percent(dups, rows)
	details := []domain.Detail{
		detail("duplicate_rows", dups),
		detail("percent", fmt.Sprintf("%.2f", pct)),
	}
	for _, col := range ds.Columns() {
		if n := repeatedValues(col); n > 0 {
			details = append(details, detail("column."+col.Name, n))
		}
	}

	return newIssue(c, "", sev, dups,
		fmt.Sprintf("%d duplicate rows (%.2f%% of %d)", dups, pct, rows),
		details...,
	), true, nil
}

// writeCellKey encodes a cell unambiguously: nulls get a marker, strings a
// length prefix so that adjacent cells cannot run together.
func writeCellKey(b *strings.Builder, v dataset.Value) {
	if v.Null {
		b.WriteString("N;")
		return
	}
	b.WriteString(strconv.Itoa(len(v.Raw)))
	b.WriteByte(':')
	b.WriteString(v.Raw)
}

func repeatedValues(col dataset.Column) int {
	seen := make(map[string]struct{}, col.Len())
	var b strings.Builder
	n := 0
	for _, v := range col.Values {
		b.Reset()
		writeCellKey(&b, v)
		k := b.String()
		if _, ok := seen[k]; ok {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}
