package detector

import (
	"fmt"

	"etlinspector/pkg/contracts/domain"
)

// Default thresholds.
const (
	DefaultMediumRatio   = 0.10
	DefaultHighRatio     = 0.50
	DefaultMaxNameLength = 50
	DefaultMaxExamples   = 3
	DefaultExampleLength = 50
)

// Thresholds tune severities and evidence sizes. Zero fields fall back to
// the defaults.
type Thresholds struct {
	MediumRatio   float64 `json:"medium_ratio" yaml:"medium_ratio"`
	HighRatio     float64 `json:"high_ratio" yaml:"high_ratio"`
	MaxNameLength int     `json:"max_name_length" yaml:"max_name_length"`
	MaxExamples   int     `json:"max_examples" yaml:"max_examples"`
	ExampleLength int     `json:"example_length" yaml:"example_length"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MediumRatio:   DefaultMediumRatio,
		HighRatio:     DefaultHighRatio,
		MaxNameLength: DefaultMaxNameLength,
		MaxExamples:   DefaultMaxExamples,
		ExampleLength: DefaultExampleLength,
	}
}

func (t Thresholds) normalized() Thresholds {
	d := DefaultThresholds()
	if t.MediumRatio <= 0 {
		t.MediumRatio = d.MediumRatio
	}
	if t.HighRatio <= 0 {
		t.HighRatio = d.HighRatio
	}
	if t.MaxNameLength <= 0 {
		t.MaxNameLength = d.MaxNameLength
	}
	if t.MaxExamples <= 0 {
		t.MaxExamples = d.MaxExamples
	}
	if t.ExampleLength <= 0 {
		t.ExampleLength = d.ExampleLength
	}
	return t
}

// Validate checks that ratios are ordered and within (0, 1].
func (t Thresholds) Validate() error {
	t = t.normalized()
	if t.MediumRatio > 1 || t.HighRatio > 1 {
		return fmt.Errorf("severity ratios must not exceed 1 (medium=%.2f high=%.2f)", t.MediumRatio, t.HighRatio)
	}
	if t.MediumRatio >= t.HighRatio {
		return fmt.Errorf("medium ratio %.2f must be below high ratio %.2f", t.MediumRatio, t.HighRatio)
	}
	return nil
}

// SeverityForRatio grades a proportion of affected cells: above HighRatio is
// high, above MediumRatio is medium, anything else is low.
func (t Thresholds) SeverityForRatio(ratio float64) domain.Severity {
	t = t.normalized()
	switch {
	case ratio > t.HighRatio:
		return domain.SeverityHigh
	case ratio > t.MediumRatio:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// Options selects checks and tunes a detection run.
type Options struct {
	// Checks names the checks to run. Empty means all registered checks.
	Checks     []string
	Thresholds Thresholds
	// Parallel evaluates checks concurrently. Output order is unchanged.
	Parallel bool
}

// DefaultOptions enables every check with default thresholds.
func DefaultOptions() Options {
	return Options{Thresholds: DefaultThresholds()}
}
