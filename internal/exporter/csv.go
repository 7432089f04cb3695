package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"etlinspector/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IssueHeaders is the header row of the issue CSV.
var IssueHeaders = []string{"check", "category", "column", "severity", "count", "description", "suggested_tool_config"}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to w.
func WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes a CSV file, creating its directory if needed.
func WriteCSVFile(path string, options WriteOptions) error {
	slog.Info("Writing CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteCSV(file, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// IssueRecords flattens a report's issues into CSV records matching
// IssueHeaders.
func IssueRecords(report domain.Report) [][]string {
	records := make([][]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		records = append(records, []string{
			issue.Check,
			string(issue.Category),
			issue.Column,
			string(issue.Severity),
			strconv.Itoa(issue.Count),
			issue.Description,
			issue.SuggestedToolConfig,
		})
	}
	return records
}

// WriteIssuesCSV writes the issue table with a BOM.
func WriteIssuesCSV(w io.Writer, report domain.Report) error {
	return WriteCSV(w, WriteOptions{
		Headers:   IssueHeaders,
		Records:   IssueRecords(report),
		BOMPrefix: true,
	})
}
