package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"etlinspector/internal/dataset"
)

// SheetsReader reads ranges from Google Sheets with a service account.
type SheetsReader struct {
	service *sheets.Service
}

// NewSheetsReader builds a reader from a service-account credentials file.
func NewSheetsReader(ctx context.Context, credentialsFile string) (*SheetsReader, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("sheets credentials file %s is empty", credentialsFile)
	}

	service, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsReader{service: service}, nil
}

// NewSheetsReaderWithService wraps an existing service, e.g. one pointed at
// a test server.
func NewSheetsReaderWithService(service *sheets.Service) *SheetsReader {
	return &SheetsReader{service: service}
}

// Read fetches readRange of spreadsheetID as formatted values.
func (r *SheetsReader) Read(ctx context.Context, spreadsheetID, readRange string, opts Options) (*dataset.Dataset, error) {
	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from sheets: %w", readRange, err)
	}

	name := readRange
	if i := strings.IndexByte(readRange, '!'); i > 0 {
		name = readRange[:i]
	}
	return Build(name, ValuesToRows(resp.Values, opts.MaxRows), opts)
}

// ValuesToRows converts a Sheets value grid to strings. Cells the API
// omits or returns as nil become empty strings. A positive maxRows keeps
// the header plus that many rows.
func ValuesToRows(values [][]interface{}, maxRows int) [][]string {
	limit := len(values)
	if maxRows > 0 && maxRows+1 < limit {
		limit = maxRows + 1
	}
	rows := make([][]string, 0, limit)
	for _, row := range values[:limit] {
		out := make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			if s, ok := cell.(string); ok {
				out[j] = s
				continue
			}
			out[j] = fmt.Sprint(cell)
		}
		rows = append(rows, out)
	}
	return rows
}

// ParseSheetsURI splits sheets://<spreadsheet-id>/<range>. The range
// defaults to the first sheet's used area ("A:ZZ").
func ParseSheetsURI(uri string) (spreadsheetID, readRange string, err error) {
	rest, ok := strings.CutPrefix(uri, SheetsScheme)
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%q is not a %s URI: %w", uri, SheetsScheme, ErrUnsupportedFormat)
	}
	spreadsheetID, readRange, _ = strings.Cut(rest, "/")
	if spreadsheetID == "" {
		return "", "", fmt.Errorf("%q has no spreadsheet id: %w", uri, ErrUnsupportedFormat)
	}
	if readRange == "" {
		readRange = "A:ZZ"
	}
	return spreadsheetID, readRange, nil
}
