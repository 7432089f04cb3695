package suggestions

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum       = regexp.MustCompile(`[^a-zA-Z0-9]`)
	repeatedUnders = regexp.MustCompile(`_+`)
	leadingDigit   = regexp.MustCompile(`^[0-9]`)
)

const (
	fallbackField   = "column"
	leadingDigitTag = "col_"
)

// StripAccents removes combining marks after NFD decomposition, so "Ação"
// becomes "Acao".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanColumnName turns a header into a lower snake_case identifier:
// accents are stripped, runs of other characters become one underscore,
// a leading digit gets a "col_" prefix and an empty result becomes
// "column".
func CleanColumnName(name string) string {
	s := StripAccents(name)
	s = nonAlnum.ReplaceAllString(s, "_")
	s = repeatedUnders.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if leadingDigit.MatchString(s) {
		s = leadingDigitTag + s
	}
	if s == "" {
		s = fallbackField
	}
	return strings.ToLower(s)
}

// RenameMap maps each name to its cleaned form, disambiguating collisions
// with numeric suffixes in input order.
func RenameMap(names []string) map[string]string {
	out := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, n := range names {
		clean := CleanColumnName(n)
		if k := used[clean]; k > 0 {
			used[clean] = k + 1
			clean = clean + "_" + strconv.Itoa(k+1)
		} else {
			used[clean] = 1
		}
		out[n] = clean
	}
	return out
}
