package dataset

import (
	"strings"
	"time"
)

// DateFormat is a calendar-date layout recognised in raw cells.
type DateFormat struct {
	Name   string
	Layout string
}

// DateFormats is the catalogue used for date classification and for
// format-mix detection. A value belongs to the first format that parses it,
// so day-first wins over month-first for ambiguous values like 03/04/2024.
var DateFormats = []DateFormat{
	{Name: "YYYY-MM-DD", Layout: "2006-1-2"},
	{Name: "DD/MM/YYYY", Layout: "2/1/2006"},
	{Name: "MM/DD/YYYY", Layout: "1/2/2006"},
	{Name: "YYYY/MM/DD", Layout: "2006/1/2"},
	{Name: "DD-MM-YYYY", Layout: "2-1-2006"},
	{Name: "MM-DD-YYYY", Layout: "1-2-2006"},
	{Name: "DD.MM.YYYY", Layout: "2.1.2006"},
	{Name: "YYYY.MM.DD", Layout: "2006.1.2"},
}

// MatchDateFormat returns the first catalogue format that parses s.
func MatchDateFormat(s string) (DateFormat, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 8 || len(s) > 10 {
		return DateFormat{}, false
	}
	for _, f := range DateFormats {
		if _, err := time.Parse(f.Layout, s); err == nil {
			return f, true
		}
	}
	return DateFormat{}, false
}
