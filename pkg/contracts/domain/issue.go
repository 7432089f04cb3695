package domain

import "fmt"

// Severity grades how badly an issue affects an ETL load.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities from low (1) to high (3). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Category groups issues by the kind of data-quality problem.
type Category string

const (
	CategoryNulls             Category = "nulls"
	CategoryTypeConsistency   Category = "type_consistency"
	CategoryDuplicates        Category = "duplicates"
	CategorySpecialCharacters Category = "special_characters"
	CategoryWhitespace        Category = "whitespace"
	CategoryDateFormats       Category = "date_formats"
	CategoryColumnNames       Category = "column_names"
)

// AllCategories lists categories in check order.
var AllCategories = []Category{
	CategoryNulls,
	CategoryTypeConsistency,
	CategoryDuplicates,
	CategorySpecialCharacters,
	CategoryWhitespace,
	CategoryDateFormats,
	CategoryColumnNames,
}

// Order returns the position of the category in check order, or
// len(AllCategories) when unknown.
func (c Category) Order() int {
	for i, known := range AllCategories {
		if c == known {
			return i
		}
	}
	return len(AllCategories)
}

var categoryTitles = map[Category]string{
	CategoryNulls:             "Null or blank values",
	CategoryTypeConsistency:   "Inconsistent types",
	CategoryDuplicates:        "Duplicate rows",
	CategorySpecialCharacters: "Special characters",
	CategoryWhitespace:        "Extra whitespace",
	CategoryDateFormats:       "Mixed date formats",
	CategoryColumnNames:       "Problematic column names",
}

// Title is the human-readable name of the category.
func (c Category) Title() string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return string(c)
}

// Detail is one piece of ordered evidence attached to an issue.
type Detail struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Issue is a single detected data-quality problem. Issues are values:
// once a check emits one, nothing modifies it in place.
type Issue struct {
	Check               string   `json:"check"`
	Category            Category `json:"category"`
	Column              string   `json:"column,omitempty"`
	Description         string   `json:"description"`
	Severity            Severity `json:"severity"`
	Count               int      `json:"count"`
	Details             []Detail `json:"details,omitempty"`
	SuggestedToolConfig string   `json:"suggested_tool_config"`
}

// DatasetScoped reports whether the issue applies to the whole dataset
// rather than a single column.
func (i Issue) DatasetScoped() bool {
	return i.Column == ""
}

// WithToolConfig returns a copy of the issue carrying the given
// remediation text.
func (i Issue) WithToolConfig(cfg string) Issue {
	out := i
	if len(i.Details) > 0 {
		out.Details = append([]Detail(nil), i.Details...)
	}
	out.SuggestedToolConfig = cfg
	return out
}

// Detail returns the value stored under key, if any.
func (i Issue) Detail(key string) (string, bool) {
	for _, d := range i.Details {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}

// Location renders the column name, or "all columns" for dataset-scoped issues.
func (i Issue) Location() string {
	if i.DatasetScoped() {
		return "all columns"
	}
	return i.Column
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", i.Severity, i.Check, i.Location(), i.Description)
}
