package exporter

import (
	"encoding/json"
	"io"

	"etlinspector/pkg/contracts/domain"
)

// WriteJSON encodes the report with two-space indentation.
func WriteJSON(w io.Writer, report domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}
