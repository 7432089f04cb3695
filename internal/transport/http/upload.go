package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/middleware"
	"etlinspector/internal/validation"
	api "etlinspector/pkg/contracts/api/v1"
)

// multipartOverhead is the room left for form fields and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

// Upload is a validated file spooled to disk together with its form fields.
type Upload struct {
	// Path is the spooled copy. It keeps the original extension.
	Path string
	// Name is the client's file name without directories.
	Name string
	Size int64
	Form api.AnalyzeForm
}

// Remove deletes the spooled file.
func (u *Upload) Remove() {
	if u == nil || u.Path == "" {
		return
	}
	_ = os.Remove(u.Path)
}

// MultipartForm is the only media type accepted by the upload routes.
const MultipartForm = "multipart/form-data"

// UploadParser reads analyze and job uploads.
type UploadParser struct {
	files  *validation.FileValidator
	forms  *middleware.Validator
	dir    string
	logger *slog.Logger
}

// NewUploadParser spools uploads into dir, which is created on demand.
func NewUploadParser(files *validation.FileValidator, dir string, logger *slog.Logger) *UploadParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadParser{
		files:  files,
		forms:  middleware.NewValidator(),
		dir:    dir,
		logger: logger.With(slog.String("component", "upload")),
	}
}

// Parse reads the multipart "file" field and the sheet, checks and
// parallel fields. The caller owns the returned upload and must Remove it.
func (p *UploadParser) Parse(w http.ResponseWriter, r *http.Request) (*Upload, error) {
	if max := p.files.MaxBytes(); max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, apierrors.InvalidRequestWithError(err)
	}
	defer r.MultipartForm.RemoveAll()

	form, err := p.parseForm(r)
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, apierrors.ErrMissingFile
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if err := p.files.ValidateContent(name, header.Size, file); err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	path, err := p.spool(name, file)
	if err != nil {
		return nil, err
	}

	p.logger.DebugContext(r.Context(), "Upload received",
		slog.String("file", name),
		slog.Int64("size", header.Size),
		slog.String("path", path))
	return &Upload{Path: path, Name: name, Size: header.Size, Form: form}, nil
}

func (p *UploadParser) parseForm(r *http.Request) (api.AnalyzeForm, error) {
	form := api.AnalyzeForm{Sheet: strings.TrimSpace(r.FormValue("sheet"))}

	for _, raw := range r.MultipartForm.Value["checks"] {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				form.Checks = append(form.Checks, name)
			}
		}
	}

	if raw := r.FormValue("parallel"); raw != "" {
		parallel, err := strconv.ParseBool(raw)
		if err != nil {
			return api.AnalyzeForm{}, apierrors.ErrValidation("parallel", "parallel must be a boolean")
		}
		form.Parallel = parallel
	}

	if err := p.forms.Struct(form); err != nil {
		return api.AnalyzeForm{}, err
	}
	return form, nil
}

func (p *UploadParser) spool(name string, src io.Reader) (string, error) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	dst, err := os.CreateTemp(p.dir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return dst.Name(), nil
}
