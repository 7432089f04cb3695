package detector

import (
	"errors"
	"fmt"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

// Check names in execution order.
const (
	NullCheckName            = "null_check"
	TypeConsistencyCheckName = "type_consistency_check"
	DuplicateCheckName       = "duplicate_check"
	SpecialCharCheckName     = "special_char_check"
	WhitespaceCheckName      = "whitespace_check"
	DateFormatCheckName      = "date_format_check"
	ColumnNameCheckName      = "column_name_check"
)

// CheckNames lists every built-in check in execution order.
var CheckNames = []string{
	NullCheckName,
	TypeConsistencyCheckName,
	DuplicateCheckName,
	SpecialCharCheckName,
	WhitespaceCheckName,
	DateFormatCheckName,
	ColumnNameCheckName,
}

var (
	// ErrSkipColumn tells the engine a check does not apply to a column.
	ErrSkipColumn = errors.New("check does not apply to column")
	// ErrUnknownCheck is returned for check names that are not registered.
	ErrUnknownCheck = errors.New("unknown check")
	// ErrNilDataset is returned when Detect is called without data.
	ErrNilDataset = errors.New("dataset is nil")
)

// Check is a named data-quality rule.
type Check interface {
	Name() string
	Category() domain.Category
	Description() string
}

// ColumnCheck inspects one column at a time. It returns ok=false when the
// column is fine.
type ColumnCheck interface {
	Check
	InspectColumn(col dataset.Column, rows int, th Thresholds) (issue domain.Issue, ok bool, err error)
}

// DatasetCheck inspects the dataset as a whole.
type DatasetCheck interface {
	Check
	InspectDataset(ds *dataset.Dataset, th Thresholds) (issue domain.Issue, ok bool, err error)
}

// Info describes a check for catalogue listings.
type Info struct {
	Name        string          `json:"name"`
	Category    domain.Category `json:"category"`
	Description string          `json:"description"`
}

func infoOf(c Check) Info {
	return Info{Name: c.Name(), Category: c.Category(), Description: c.Description()}
}

func newIssue(c Check, column string, sev domain.Severity, count int, description string, details ...domain.Detail) domain.Issue {
	return domain.Issue{
		Check:       c.Name(),
		Category:    c.Category(),
		Column:      column,
		Description: description,
		Severity:    sev,
		Count:       count,
		Details:     details,
	}
}

func detail(key string, value any) domain.Detail {
	return domain.Detail{Key: key, Value: fmt.Sprint(value)}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
