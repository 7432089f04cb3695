package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"etlinspector/internal/detector"
	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/services"
	"etlinspector/pkg/contracts/domain"
)

const customersCSV = "id,email\n1,a@b.com\n2,\n3,c@d.com\n"

func TestAnalysisHandler_Analyze(t *testing.T) {
	svc := new(mockAnalysis)
	uploads, dir := newUploadParser(t, 1<<20)
	h := NewAnalysisHandler(svc, uploads, newErrorHandler(), quietLogger())

	var spooled string
	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(req services.AnalyzeRequest) bool {
		return req.Source == "customers.csv" &&
			req.Sheet == "" &&
			req.Parallel &&
			assert.ObjectsAreEqual([]string{"null_check", "duplicate_check"}, req.Checks)
	})).Run(func(args mock.Arguments) {
		spooled = args.Get(1).(services.AnalyzeRequest).Path
		content, err := os.ReadFile(spooled)
		require.NoError(t, err)
		assert.Equal(t, customersCSV, string(content))
		assert.Equal(t, ".csv", filepath.Ext(spooled))
	}).Return(sampleReport("r-1"), nil)

	req := multipartRequest(t, "/analyze", "customers.csv", customersCSV, map[string][]string{
		"checks":   {"null_check, duplicate_check"},
		"parallel": {"true"},
	})
	rec := serve(h.Routes(), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "r-1", body["id"])
	assert.Len(t, body["issues"], 1)
	svc.AssertExpectations(t)

	assert.NoFileExists(t, spooled)
	assert.Zero(t, dirEntries(t, dir), "upload must be removed after the analysis")
}

func TestAnalysisHandler_RepeatedCheckFields(t *testing.T) {
	svc := new(mockAnalysis)
	uploads, _ := newUploadParser(t, 1<<20)
	h := NewAnalysisHandler(svc, uploads, newErrorHandler(), quietLogger())

	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(req services.AnalyzeRequest) bool {
		return assert.ObjectsAreEqual([]string{"null_check", "whitespace_check"}, req.Checks) && req.Sheet == "Q1"
	})).Return(sampleReport("r-2"), nil)

	req := multipartRequest(t, "/analyze", "customers.csv", customersCSV, map[string][]string{
		"checks": {"null_check", "whitespace_check"},
		"sheet":  {" Q1 "},
	})
	rec := serve(h.Routes(), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		maxBytes   int64
		filename   string
		content    string
		fields     map[string][]string
		wantStatus int
		wantType   string
	}{
		{"missing file", 1 << 20, "", "", nil, http.StatusBadRequest, apierrors.TypeValidation},
		{"unknown check", 1 << 20, "a.csv", customersCSV, map[string][]string{"checks": {"bogus_check"}}, http.StatusBadRequest, apierrors.TypeValidation},
		{"bad parallel", 1 << 20, "a.csv", customersCSV, map[string][]string{"parallel": {"maybe"}}, http.StatusBadRequest, apierrors.TypeValidation},
		{"unsupported extension", 1 << 20, "notes.txt", "hello", nil, http.StatusUnsupportedMediaType, apierrors.TypeUnsupportedMedia},
		{"empty file", 1 << 20, "a.csv", "", nil, http.StatusBadRequest, apierrors.TypeInvalidFile},
		{"too large", 10, "a.csv", customersCSV, nil, http.StatusRequestEntityTooLarge, apierrors.TypePayloadTooLarge},
		{"corrupt workbook", 1 << 20, "book.xlsx", "not a zip", nil, http.StatusBadRequest, apierrors.TypeInvalidFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAnalysis)
			uploads, dir := newUploadParser(t, tt.maxBytes)
			h := NewAnalysisHandler(svc, uploads, newErrorHandler(), quietLogger())

			rec := serve(h.Routes(), multipartRequest(t, "/analyze", tt.filename, tt.content, tt.fields))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decodeJSON(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/analyze", body["instance"])
			svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
			assert.Zero(t, dirEntries(t, dir))
		})
	}
}

func TestAnalysisHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"unknown check", fmt.Errorf("check %q: %w", "x", detector.ErrUnknownCheck), http.StatusBadRequest, apierrors.TypeUnknownCheck},
		{"invalid request", services.ErrInvalidRequest, http.StatusBadRequest, apierrors.TypeValidation},
		{"internal", fmt.Errorf("store report: %w", os.ErrPermission), http.StatusInternalServerError, apierrors.TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAnalysis)
			uploads, dir := newUploadParser(t, 1<<20)
			h := NewAnalysisHandler(svc, uploads, newErrorHandler(), quietLogger())
			svc.On("Analyze", mock.Anything, mock.Anything).Return(domain.Report{}, tt.err)

			rec := serve(h.Routes(), multipartRequest(t, "/analyze", "a.csv", customersCSV, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, decodeJSON(t, rec)["type"])
			assert.Zero(t, dirEntries(t, dir))
		})
	}
}

func TestAnalysisHandler_Checks(t *testing.T) {
	svc := new(mockAnalysis)
	uploads, _ := newUploadParser(t, 1<<20)
	h := NewAnalysisHandler(svc, uploads, newErrorHandler(), quietLogger())

	svc.On("Checks").Return([]detector.Info{
		{Name: "null_check", Category: domain.CategoryNulls, Description: "Counts null values"},
		{Name: "duplicate_check", Category: domain.CategoryDuplicates, Description: "Counts duplicate rows"},
	})

	rec := serve(h.Routes(), httptestGet("/checks"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"checks":[
		{"name":"null_check","category":"nulls","description":"Counts null values"},
		{"name":"duplicate_check","category":"duplicates","description":"Counts duplicate rows"}
	]}`, rec.Body.String())
}
