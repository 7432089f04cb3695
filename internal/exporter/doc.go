// Package exporter renders issue reports for people and tools.
//
// Supported formats:
//
// text: an aligned summary table for terminals.
//
// json: the report as indented JSON, suggestions included.
//
// csv: one row per issue, prefixed with a UTF-8 BOM so Excel detects the
// encoding.
//
// xlsx: a workbook with Problems, NiFi Suggestions, Groovy Suggestions and
// Summary sheets.
//
// html: a standalone page built with html/template.
//
// pdf: the html page printed by headless Chrome. Needs a Chrome binary.
//
// Example usage:
//
//	format, err := exporter.ParseFormat("xlsx")
//	if err != nil {
//		return err
//	}
//	exp := exporter.New(exporter.WithPDFRenderer(exporter.NewChromePDF("", 30*time.Second)))
//	err = exp.Export(ctx, w, format, report)
package exporter
