package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"etlinspector/internal/dataset"
)

// ReadXLSX reads one worksheet of an Office Open XML workbook. Numeric
// cells are taken as their stored value so number formats such as
// "#,##0.00" or currency do not turn them into text. Date and time styled
// cells keep the text Excel shows.
func ReadXLSX(ctx context.Context, r io.Reader, name string, opts Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, name, err)
	}
	defer rows.Close()

	c := newCollector(opts)
	styles := newStyleCache(f, sheet)
	rowNum := 0
	for rows.Next() {
		rowNum++
		if c.seen%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of %s: %w", c.seen+1, name, err)
		}
		if err := styles.formatDates(rowNum, cols); err != nil {
			return nil, fmt.Errorf("failed to read row %d of %s: %w", rowNum, name, err)
		}
		if c.add(cols) {
			break
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %q of %s: %w", sheet, name, err)
	}

	slog.Debug("Workbook sheet read",
		slog.String("file", name),
		slog.String("sheet", sheet),
		slog.Int("rows", c.seen))

	return c.build(name, opts)
}

// styleCache remembers which cell styles carry a date or time format.
type styleCache struct {
	f      *excelize.File
	sheet  string
	isDate map[int]bool
}

func newStyleCache(f *excelize.File, sheet string) *styleCache {
	return &styleCache{f: f, sheet: sheet, isDate: make(map[int]bool)}
}

// formatDates replaces raw serial numbers in date-styled cells with their
// displayed text.
func (s *styleCache) formatDates(row int, cols []string) error {
	for i, raw := range cols {
		if raw == "" {
			continue
		}
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		dated, err := s.dateStyled(cell)
		if err != nil {
			return err
		}
		if !dated {
			continue
		}
		if cols[i], err = s.f.GetCellValue(s.sheet, cell); err != nil {
			return err
		}
	}
	return nil
}

func (s *styleCache) dateStyled(cell string) (bool, error) {
	id, err := s.f.GetCellStyle(s.sheet, cell)
	if err != nil {
		return false, err
	}
	if dated, ok := s.isDate[id]; ok {
		return dated, nil
	}
	dated := false
	if style, err := s.f.GetStyle(id); err == nil {
		dated = IsDateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	s.isDate[id] = dated
	return dated, nil
}

// builtinDateFmts are the built-in number format IDs that render dates or
// times, including the East Asian variants.
var builtinDateFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// IsDateNumFmt reports whether a built-in format ID or a custom format
// code displays a date or a time.
func IsDateNumFmt(id int, custom *string) bool {
	if custom == nil {
		return builtinDateFmts[id]
	}
	var b strings.Builder
	quoted, bracket, escaped := false, false, false
	for _, r := range *custom {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && !quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		case r == ';':
			// only the first section decides
			return strings.ContainsAny(strings.ToLower(b.String()), "ydhms")
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ydhms")
}

// Sheets lists the worksheet names of a workbook.
func Sheets(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func pickSheet(f *excelize.File, want string) (string, error) {
	list := f.GetSheetList()
	if len(list) == 0 {
		return "", ErrEmptyFile
	}
	if want == "" {
		return list[0], nil
	}
	for _, s := range list {
		if s == want {
			return s, nil
		}
	}
	return "", fmt.Errorf("%q (have %v): %w", want, list, ErrSheetNotFound)
}
