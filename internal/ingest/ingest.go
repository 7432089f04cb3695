package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"etlinspector/internal/dataset"
)

var (
	// ErrUnsupportedFormat is returned for sources no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyFile is returned when a source holds no rows at all.
	ErrEmptyFile = errors.New("empty file")
	// ErrNoHeader is returned when every row of a source is blank.
	ErrNoHeader = errors.New("no header row")
	// ErrSheetNotFound is returned when a named worksheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// SheetsScheme prefixes Google Sheets sources: sheets://<spreadsheet-id>/<range>.
const SheetsScheme = "sheets://"

// Options controls how a source is read.
type Options struct {
	// Sheet names the worksheet to read. Empty means the first one.
	Sheet string
	// MaxRows caps the number of data rows. Zero means no limit.
	MaxRows int
	// Delimiter forces the CSV field separator. Zero means detect.
	Delimiter rune
	// Sheets reads sheets:// sources. Nil disables them.
	Sheets *SheetsReader
}

// Open reads the source at path, picking a reader by extension.
func Open(ctx context.Context, path string, opts Options) (*dataset.Dataset, error) {
	if strings.HasPrefix(path, SheetsScheme) {
		if opts.Sheets == nil {
			return nil, fmt.Errorf("%s: google sheets reader not configured: %w", path, ErrUnsupportedFormat)
		}
		id, rng, err := ParseSheetsURI(path)
		if err != nil {
			return nil, err
		}
		return opts.Sheets.Read(ctx, id, rng, opts)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xlsm", ".csv", ".tsv", ".txt":
	case ".xls":
		return nil, fmt.Errorf("%s: legacy .xls workbooks must be saved as .xlsx: %w", filepath.Base(path), ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%s (extension %q): %w", filepath.Base(path), ext, ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	switch ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(ctx, f, name, opts)
	case ".tsv":
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
	}
	return ReadCSV(ctx, f, name, opts)
}

// Build turns raw rows into a dataset. The first row with a non-blank cell
// is the header.
func Build(name string, rows [][]string, opts Options) (*dataset.Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}

	headerAt := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}

	width := len(rows[headerAt])
	data := make([][]string, 0, len(rows)-headerAt-1)
	for _, row := range rows[headerAt+1:] {
		if blankRow(row) {
			continue
		}
		if opts.MaxRows > 0 && len(data) >= opts.MaxRows {
			break
		}
		data = append(data, row)
		width = max(width, len(row))
	}

	header := make([]string, width)
	copy(header, rows[headerAt])
	return dataset.New(name, DedupeHeader(header), data), nil
}

// DedupeHeader trims names and suffixes repeats with ".1", ".2" and so
// on. Blank names are left for the dataset to rename.
func DedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			out[i] = h
			continue
		}
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			out[i] = h
			continue
		}
		candidate := h + "." + strconv.Itoa(n)
		for {
			if _, taken := seen[candidate]; !taken {
				break
			}
			n++
			candidate = h + "." + strconv.Itoa(n)
		}
		seen[h] = n + 1
		seen[candidate] = 1
		out[i] = candidate
	}
	return out
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// checkEvery is how many rows readers process between context checks.
const checkEvery = 1024

// collector gathers non-blank rows and stops once MaxRows data rows follow
// the header.
type collector struct {
	rows [][]string
	seen int
	max  int
}

func newCollector(opts Options) *collector {
	return &collector{max: opts.MaxRows}
}

// add records a row and reports whether enough rows have been read.
func (c *collector) add(row []string) bool {
	c.seen++
	if blankRow(row) {
		return false
	}
	c.rows = append(c.rows, row)
	return c.max > 0 && len(c.rows) > c.max
}

func (c *collector) build(name string, opts Options) (*dataset.Dataset, error) {
	if c.seen == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if len(c.rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}
	return Build(name, c.rows, opts)
}
