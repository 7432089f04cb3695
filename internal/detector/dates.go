package detector

import (
	"fmt"
	"strings"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

// DateFormatCheck flags date columns that mix several layouts.
type DateFormatCheck struct{}

func NewDateFormatCheck() *DateFormatCheck {
	return &DateFormatCheck{}
}

func (c *DateFormatCheck) Name() string {
	return DateFormatCheckName
}

func (c *DateFormatCheck) Category() domain.Category {
	return domain.CategoryDateFormats
}

func (c *DateFormatCheck) Description() string {
	return "Flags date columns where more than one date layout is in use."
}

func (c *DateFormatCheck) InspectColumn(col dataset.Column, _ int, _ Thresholds) (domain.Issue, bool, error) {
	if col.Kind() != dataset.KindDate {
		return domain.Issue{}, false, ErrSkipColumn
	}

	counts := make(map[string]int)
	for _, v := range col.Values {
		if v.Blank() {
			continue
		}
		if f, ok := dataset.MatchDateFormat(v.Raw); ok {
			counts[f.Name]++
		}
	}
	if len(counts) < 2 {
		return domain.Issue{}, false, nil
	}

	var dominant string
	var dominantN, total int
	var parts []string
	var details []domain.Detail
	for _, f := range dataset.DateFormats {
		n, ok := counts[f.Name]
		if !ok {
			continue
		}
		total += n
		if n > dominantN {
			dominant, dominantN = f.Name, n
		}
		parts = append(parts, fmt.Sprintf("%s (%d)", f.Name, n))
		details = append(details, detail("format."+f.Name, n))
	}
	details = append([]domain.Detail{detail("dominant", dominant)}, details...)

	return newIssue(c, col.Name, domain.SeverityMedium, total-dominantN,
		fmt.Sprintf("%d date formats in use: %s", len(counts), strings.Join(parts, ", ")),
		details...,
	), true, nil
}
