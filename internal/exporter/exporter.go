package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"etlinspector/pkg/contracts/domain"
)

// Exporter writes reports in any supported format.
type Exporter struct {
	pdf PDFRenderer
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPDFRenderer enables the pdf format.
func WithPDFRenderer(r PDFRenderer) Option {
	return func(e *Exporter) {
		e.pdf = r
	}
}

// New creates an exporter. Without a PDF renderer, pdf export fails with
// ErrPDFUnavailable.
func New(opts ...Option) *Exporter {
	e := &Exporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes report to w in format f.
func (e *Exporter) Export(ctx context.Context, w io.Writer, f Format, report domain.Report) error {
	switch f {
	case FormatText:
		return WriteText(w, report)
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatCSV:
		return WriteIssuesCSV(w, report)
	case FormatXLSX:
		return WriteWorkbook(w, report)
	case FormatHTML:
		return WriteHTML(w, report)
	case FormatPDF:
		if e.pdf == nil {
			return ErrPDFUnavailable
		}
		html, err := renderHTML(report)
		if err != nil {
			return err
		}
		pdf, err := e.pdf.RenderPDF(ctx, html)
		if err != nil {
			return err
		}
		_, err = w.Write(pdf)
		return err
	default:
		return fmt.Errorf("%q: %w", f, ErrUnknownFormat)
	}
}

// Bytes renders the report into memory.
func (e *Exporter) Bytes(ctx context.Context, f Format, report domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Export(ctx, &buf, f, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFile renders the report to path. Nothing is written when
// rendering fails.
func (e *Exporter) ExportFile(ctx context.Context, path string, f Format, report domain.Report) error {
	data, err := e.Bytes(ctx, f, report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
