package detector

import (
	"fmt"
	"strings"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

// WhitespaceCheck flags text cells with leading, trailing or repeated
// internal spaces.
type WhitespaceCheck struct{}

func NewWhitespaceCheck() *WhitespaceCheck {
	return &WhitespaceCheck{}
}

func (c *WhitespaceCheck) Name() string {
	return WhitespaceCheckName
}

func (c *WhitespaceCheck) Category() domain.Category {
	return domain.CategoryWhitespace
}

func (c *WhitespaceCheck) Description() string {
	return "Flags text values with leading or trailing whitespace and values with repeated internal spaces."
}

func (c *WhitespaceCheck) InspectColumn(col dataset.Column, rows int, th Thresholds) (domain.Issue, bool, error) {
	if !col.Textual() {
		return domain.Issue{}, false, ErrSkipColumn
	}
	th = th.normalized()

	var edges, doubles, affected int
	var examples []string
	for _, v := range col.Values {
		if v.Null {
			continue
		}
		edge := v.Raw != strings.TrimSpace(v.Raw)
		double := strings.Contains(v.Raw, "  ")
		if edge {
			edges++
		}
		if double {
			doubles++
		}
		if edge || double {
			affected++
			if len(examples) < th.MaxExamples {
				examples = append(examples, fmt.Sprintf("%q", truncate(v.Raw, th.ExampleLength)))
			}
		}
	}

	if affected == 0 {
		return domain.Issue{}, false, nil
	}

	sev := domain.SeverityLow
	if float64(affected)/float64(max(rows, 1)) > th.MediumRatio {
		sev = domain.SeverityMedium
	}

	details := []domain.Detail{
		detail("leading_trailing", edges),
		detail("repeated_spaces", doubles),
	}
	for _, ex := range examples {
		details = append(details, detail("example", ex))
	}

	return newIssue(c, col.Name, sev, affected,
		fmt.Sprintf("%d values with leading or trailing whitespace, %d with repeated spaces", edges, doubles),
		details...,
	), true, nil
}
