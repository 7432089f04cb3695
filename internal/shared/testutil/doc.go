// Package testutil holds helpers shared by the package tests: a slog
// handler that records what was logged, and writers for CSV and workbook
// fixtures.
package testutil
