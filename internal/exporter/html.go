package exporter

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"etlinspector/pkg/contracts/domain"
)

//go:embed templates/report.html.tmpl
var reportTemplate string

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(reportTemplate))

// WriteHTML renders the report as a standalone HTML page.
func WriteHTML(w io.Writer, report domain.Report) error {
	if err := htmlReport.Execute(w, report); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

func renderHTML(report domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
