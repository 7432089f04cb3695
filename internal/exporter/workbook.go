package exporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"etlinspector/pkg/contracts/domain"
)

// Sheet names of the exported workbook.
const (
	SheetProblems = "Problems"
	SheetNiFi     = "NiFi Suggestions"
	SheetGroovy   = "Groovy Suggestions"
	SheetSummary  = "Summary"
)

var (
	problemHeaders = []string{"Column", "Problem Type", "Details", "ETL Impact", "Suggestion"}
	nifiHeaders    = []string{"Problem", "Processor", "Description"}
	groovyHeaders  = []string{"Problem", "Suggestion"}
	summaryHeaders = []string{"Metric", "Value"}
)

// WriteWorkbook writes the report as an xlsx workbook. The suggestion
// sheets are left out when the report carries no suggestions.
func WriteWorkbook(w io.Writer, report domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetProblems); err != nil {
		return err
	}
	if err := writeSheet(f, SheetProblems, problemHeaders, problemRows(report), header); err != nil {
		return err
	}

	if rows := nifiRows(report); len(rows) > 0 {
		if err := writeSheet(f, SheetNiFi, nifiHeaders, rows, header); err != nil {
			return err
		}
	}
	if rows := groovyRows(report); len(rows) > 0 {
		if err := writeSheet(f, SheetGroovy, groovyHeaders, rows, header); err != nil {
			return err
		}
	}
	if err := writeSheet(f, SheetSummary, summaryHeaders, summaryRows(report), header); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, style int) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
	}

	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, 28); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func problemRows(report domain.Report) [][]any {
	remedy := make(map[domain.Category]string, len(report.Suggestions))
	for _, s := range report.Suggestions {
		if len(s.Remedies) > 0 {
			remedy[s.Category] = s.Remedies[0]
		}
	}

	rows := make([][]any, 0, len(report.Issues))
	for _, issue := range report.Issues {
		rows = append(rows, []any{
			issue.Location(),
			issue.Category.Title(),
			issue.Description,
			string(issue.Severity),
			remedy[issue.Category],
		})
	}
	return rows
}

func nifiRows(report domain.Report) [][]any {
	var rows [][]any
	for _, s := range report.Suggestions {
		for _, p := range s.Processors {
			rows = append(rows, []any{s.Problem, p.Name, p.Description})
		}
	}
	return rows
}

func groovyRows(report domain.Report) [][]any {
	var rows [][]any
	for _, s := range report.Suggestions {
		for _, r := range s.Remedies {
			rows = append(rows, []any{s.Problem, r})
		}
	}
	return rows
}

func summaryRows(report domain.Report) [][]any {
	generated := ""
	if !report.GeneratedAt.IsZero() {
		generated = report.GeneratedAt.UTC().Format(time.RFC3339)
	}
	return [][]any{
		{"Source", report.Source},
		{"Sheet", report.Sheet},
		{"Rows", report.Rows},
		{"Columns", report.Columns},
		{"Total Problems", len(report.Issues)},
		{"Affected Columns", len(report.AffectedColumns())},
		{"Priority", string(report.Priority())},
		{"Checks", strings.Join(report.Checks, ", ")},
		{"Generated At", generated},
	}
}
