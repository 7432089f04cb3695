package detector

import (
	"fmt"
	"strings"
	"unicode"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

// allowedPunctuation joins letters, digits and whitespace in the allow-list.
const allowedPunctuation = ".,@-_"

const maxReportedRunes = 10

// SpecialCharCheck flags text cells holding characters outside the
// allow-list.
type SpecialCharCheck struct{}

func NewSpecialCharCheck() *SpecialCharCheck {
	return &SpecialCharCheck{}
}

func (c *SpecialCharCheck) Name() string {
	return SpecialCharCheckName
}

func (c *SpecialCharCheck) Category() domain.Category {
	return domain.CategorySpecialCharacters
}

func (c *SpecialCharCheck) Description() string {
	return "Flags text values containing characters other than letters, digits, whitespace and . , @ - _"
}

// AllowedRune reports whether r is accepted in text values.
func AllowedRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || strings.ContainsRune(allowedPunctuation, r)
}

func (c *SpecialCharCheck) InspectColumn(col dataset.Column, rows int, th Thresholds) (domain.Issue, bool, error) {
	if !col.Textual() {
		return domain.Issue{}, false, ErrSkipColumn
	}
	th = th.normalized()

	var count int
	var examples []string
	var runes []rune
	seenRune := make(map[rune]bool)

	for _, v := range col.Values {
		if v.Null {
			continue
		}
		bad := false
		for _, r := range v.Raw {
			if AllowedRune(r) {
				continue
			}
			bad = true
			if !seenRune[r] && len(runes) < maxReportedRunes {
				seenRune[r] = true
				runes = append(runes, r)
			}
		}
		if !bad {
			continue
		}
		count++
		if len(examples) < th.MaxExamples {
			examples = append(examples, truncate(v.Raw, th.ExampleLength))
		}
	}

	if count == 0 {
		return domain.Issue{}, false, nil
	}

	details := []domain.Detail{detail("characters", quoteRunes(runes))}
	for _, ex := range examples {
		details = append(details, detail("example", ex))
	}

	return newIssue(c, col.Name, th.SeverityForRatio(float64(count)/float64(max(rows, 1))), count,
		fmt.Sprintf("%d values contain special characters (%s)", count, quoteRunes(runes)),
		details...,
	), true, nil
}

func quoteRunes(rs []rune) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%q", r)
	}
	return strings.Join(parts, " ")
}
