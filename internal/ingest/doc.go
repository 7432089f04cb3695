// Package ingest turns spreadsheet sources into datasets.
//
// Workbooks (.xlsx, .xlsm) are read with excelize, delimited text (.csv,
// .tsv, .txt) with encoding/csv, and Google Sheets ranges through the
// Sheets v4 API. Every reader feeds the same header logic: the first row
// holding a non-blank cell is the header, duplicate names get a ".N"
// suffix, blank names become "Unnamed: N", and fully blank data rows are
// dropped.
//
// Basic usage:
//
//	ds, err := ingest.Open(ctx, "clients.xlsx", ingest.Options{MaxRows: 100000})
//	if errors.Is(err, ingest.ErrUnsupportedFormat) {
//		// reject the upload
//	}
package ingest
