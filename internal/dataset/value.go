package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the nominal scalar type of a value or column.
type Kind string

const (
	KindText    Kind = "text"
	KindNumeric Kind = "numeric"
	KindDate    Kind = "date"
	KindBoolean Kind = "boolean"
)

// kindPrecedence breaks ties when two kinds have the same count.
var kindPrecedence = []Kind{KindNumeric, KindDate, KindBoolean, KindText}

// NullTokens are raw cell values treated as missing by readers.
var NullTokens = []string{"", "NA", "NaN", "null", "NULL"}

// Value is a single cell.
type Value struct {
	Raw  string
	Null bool
}

// Null returns a missing value.
func Null() Value {
	return Value{Null: true}
}

// Text wraps a raw string without null-token interpretation.
func Text(s string) Value {
	return Value{Raw: s}
}

// Parse turns a raw cell into a Value, mapping null tokens to Null.
func Parse(raw string) Value {
	for _, tok := range NullTokens {
		if raw == tok {
			return Null()
		}
	}
	return Value{Raw: raw}
}

// Values parses each raw string with Parse.
func Values(raw ...string) []Value {
	out := make([]Value, len(raw))
	for i, s := range raw {
		out[i] = Parse(s)
	}
	return out
}

// Blank reports whether the value is null or whitespace only.
func (v Value) Blank() bool {
	return v.Null || strings.TrimSpace(v.Raw) == ""
}

// String returns the raw text, or the empty string for null.
func (v Value) String() string {
	if v.Null {
		return ""
	}
	return v.Raw
}

// Kind classifies a non-null value. Null and blank values report text.
func (v Value) Kind() Kind {
	if v.Blank() {
		return KindText
	}
	s := strings.TrimSpace(v.Raw)
	if isNumeric(s) {
		return KindNumeric
	}
	if isBoolean(s) {
		return KindBoolean
	}
	if isDate(s) {
		return KindDate
	}
	return KindText
}

func isNumeric(s string) bool {
	unsigned := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(unsigned, "0x") || strings.HasPrefix(unsigned, "0X") {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func isBoolean(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

// timestampLayouts classify a value as a date without taking part in
// format-mix detection.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"01-02-06",
	"1/2/06 15:04",
}

func isDate(s string) bool {
	if _, ok := MatchDateFormat(s); ok {
		return true
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
