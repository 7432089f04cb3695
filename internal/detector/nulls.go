package detector

import (
	"fmt"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

// NullCheck counts null and blank cells per column.
type NullCheck struct{}

func NewNullCheck() *NullCheck {
	return &NullCheck{}
}

func (c *NullCheck) Name() string {
	return NullCheckName
}

func (c *NullCheck) Category() domain.Category {
	return domain.CategoryNulls
}

func (c *NullCheck) Description() string {
	return "Counts null and blank cells per column; severity grows with the affected share."
}

func (c *NullCheck) InspectColumn(col dataset.Column, rows int, th Thresholds) (domain.Issue, bool, error) {
	if rows == 0 {
		return domain.Issue{}, false, nil
	}

	var nulls, blanks int
	for _, v := range col.Values {
		switch {
		case v.Null:
			nulls++
		case v.Blank():
			blanks++
		}
	}

	total := nulls + blanks
	if total == 0 {
		return domain.Issue{}, false, nil
	}

	ratio := float64(total) / float64(rows)
	pct := percent(total, rows)
	return newIssue(c, col.Name, th.SeverityForRatio(ratio), total,
		fmt.Sprintf("%d of %d values are null or blank (%.2f%%)", total, rows, pct),
		detail("null", nulls),
		detail("blank", blanks),
		detail("percent", fmt.Sprintf("%.2f", pct)),
	), true, nil
}
