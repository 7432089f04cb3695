package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"etlinspector/internal/detector"
	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/operations"
	"etlinspector/internal/services"
	"etlinspector/internal/validation"
	"etlinspector/pkg/contracts/domain"
)

type mockAnalysis struct {
	mock.Mock
}

func (m *mockAnalysis) Analyze(ctx context.Context, req services.AnalyzeRequest) (domain.Report, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Report), args.Error(1)
}

func (m *mockAnalysis) GetReport(ctx context.Context, id string) (domain.Report, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Report), args.Error(1)
}

func (m *mockAnalysis) ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	args := m.Called(ctx, limit)
	reports, _ := args.Get(0).([]domain.ReportSummary)
	return reports, args.Error(1)
}

func (m *mockAnalysis) Checks() []detector.Info {
	return m.Called().Get(0).([]detector.Info)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, req operations.JobRequest) (*domain.Job, error) {
	args := m.Called(ctx, req)
	job, _ := args.Get(0).(*domain.Job)
	return job, args.Error(1)
}

func (m *mockQueue) GetJob(id string) (*domain.Job, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*domain.Job)
	return job, args.Error(1)
}

func (m *mockQueue) CancelJob(id string) (*domain.Job, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*domain.Job)
	return job, args.Error(1)
}

func (m *mockQueue) ListJobs(filter domain.JobFilter) ([]*domain.Job, error) {
	args := m.Called(filter)
	jobs, _ := args.Get(0).([]*domain.Job)
	return jobs, args.Error(1)
}

func (m *mockQueue) Stats() operations.QueueStats {
	return m.Called().Get(0).(operations.QueueStats)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(quietLogger(), false, ErrorMappings()...)
}

func newUploadParser(t *testing.T, maxBytes int64) (*UploadParser, string) {
	t.Helper()
	dir := t.TempDir()
	return NewUploadParser(validation.NewFileValidator(quietLogger(), maxBytes), dir, quietLogger()), dir
}

// multipartRequest builds a POST with an optional "file" part and extra fields.
func multipartRequest(t *testing.T, target, filename, content string, fields map[string][]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func serve(router chi.Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func sampleReport(id string) domain.Report {
	return domain.Report{
		ID:      id,
		Source:  "customers.csv",
		Rows:    3,
		Columns: 2,
		Issues: []domain.Issue{{
			Check:       "null_check",
			Category:    domain.CategoryNulls,
			Column:      "email",
			Count:       1,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("Column %s has %d null values", "email", 1),
		}},
	}
}

func httptestGet(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}
