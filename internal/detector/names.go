package detector

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"etlinspector/internal/dataset"
	"etlinspector/internal/suggestions"
	"etlinspector/pkg/contracts/domain"
)

// Column name faults.
const (
	FaultSpaces       = "contains spaces"
	FaultSpecialChars = "contains special characters"
	FaultLeadingDigit = "starts with a digit"
	FaultTooLong      = "is too long"
)

// ColumnNameCheck flags column names that are awkward in downstream schemas.
type ColumnNameCheck struct{}

func NewColumnNameCheck() *ColumnNameCheck {
	return &ColumnNameCheck{}
}

func (c *ColumnNameCheck) Name() string {
	return ColumnNameCheckName
}

func (c *ColumnNameCheck) Category() domain.Category {
	return domain.CategoryColumnNames
}

func (c *ColumnNameCheck) Description() string {
	return "Flags column names with spaces or special characters, a leading digit, or excessive length."
}

// NameFaults lists what is wrong with a column name.
func NameFaults(name string, maxLen int) []string {
	var faults []string
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		faults = append(faults, FaultSpaces)
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '_')
	}) >= 0 {
		faults = append(faults, FaultSpecialChars)
	}
	if first, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(first) {
		faults = append(faults, FaultLeadingDigit)
	}
	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		faults = append(faults, FaultTooLong)
	}
	return faults
}

func (c *ColumnNameCheck) InspectColumn(col dataset.Column, _ int, th Thresholds) (domain.Issue, bool, error) {
	th = th.normalized()
	faults := NameFaults(col.Name, th.MaxNameLength)
	if len(faults) == 0 {
		return domain.Issue{}, false, nil
	}

	details := make([]domain.Detail, 0, len(faults)+1)
	for _, f := range faults {
		details = append(details, detail("fault", f))
	}
	details = append(details, detail("suggested_name", suggestions.CleanColumnName(col.Name)))

	return newIssue(c, col.Name, domain.SeverityMedium, len(faults),
		fmt.Sprintf("column name %q %s", col.Name, strings.Join(faults, ", ")),
		details...,
	), true, nil
}
