package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"etlinspector/internal/dataset"
	"etlinspector/internal/detector"
	"etlinspector/internal/infrastructure"
	"etlinspector/internal/ingest"
	"etlinspector/internal/validation"
	"etlinspector/pkg/contracts/domain"
)

type mockCache struct{ mock.Mock }

func (m *mockCache) Get(ctx context.Context, key string) (domain.Report, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.Report), args.Bool(1), args.Error(2)
}
func (m *mockCache) Put(ctx context.Context, key string, r domain.Report) error {
	return m.Called(ctx, key, r).Error(0)
}
func (m *mockCache) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockCache) Close() error                   { return nil }

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishReportCompleted(ctx context.Context, r domain.Report) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockPublisher) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockPublisher) Close()                         {}

type mockStore struct{ mock.Mock }

func (m *mockStore) Create(ctx context.Context, r domain.Report) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockStore) FindByID(ctx context.Context, id string) (domain.Report, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Report), args.Error(1)
}
func (m *mockStore) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.ReportSummary), args.Error(1)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const customersCSV = "id,email,Client Name!!\n1,a@b.com,Ann\n2,,Bob\n3,c@d.com,Cy\n3,c@d.com,Cy\n"

func newTestService(t *testing.T, deps AnalysisDeps) *AnalysisService {
	t.Helper()
	deps.Logger = quietLogger()
	if deps.Validator == nil {
		deps.Validator = validation.NewFileValidator(deps.Logger, 1<<20)
	}
	deps.Options = detector.DefaultOptions()
	return NewAnalysisService(deps)
}

func TestAnalyze_FullPipeline(t *testing.T) {
	c := new(mockCache)
	c.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(domain.Report{}, false, nil)
	c.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	p := new(mockPublisher)
	p.On("PublishReportCompleted", mock.Anything, mock.Anything).Return(nil)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	svc := newTestService(t, AnalysisDeps{Cache: c, Publisher: p, Metrics: metrics})

	var steps []int
	report, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Path:     writeCSV(t, customersCSV),
		Source:   "upload.csv",
		Progress: func(pct int, _ string) { steps = append(steps, pct) },
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "upload.csv", report.Source)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, detector.CheckNames, report.Checks)
	assert.NotEmpty(t, report.Suggestions)
	assert.False(t, report.GeneratedAt.IsZero())
	assert.Equal(t, []int{30, 40, 80, 90, 100}, steps)

	var checks []string
	for _, issue := range report.Issues {
		checks = append(checks, issue.Check)
		assert.NotEmpty(t, issue.SuggestedToolConfig)
	}
	assert.Contains(t, checks, "null_check")
	assert.Contains(t, checks, "duplicate_check")
	assert.Contains(t, checks, "column_name_check")

	stored, err := svc.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Issues, stored.Issues)

	c.AssertExpectations(t)
	p.AssertCalled(t, "PublishReportCompleted", mock.Anything, mock.MatchedBy(func(r domain.Report) bool {
		return r.ID == report.ID
	}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["etl_analyses_total"])
	assert.True(t, names["etl_issues_detected_total"])
	assert.True(t, names["etl_report_cache_lookups_total"])
}

func TestAnalyze_CacheHitSkipsDetection(t *testing.T) {
	cached := domain.Report{
		ID:     "cached-1",
		Source: "earlier.csv",
		Rows:   4,
		Issues: []domain.Issue{{Check: "null_check", Category: domain.CategoryNulls, Column: "email", Count: 1}},
	}
	c := new(mockCache)
	c.On("Get", mock.Anything, mock.Anything).Return(cached, true, nil)
	s := new(mockStore)
	s.On("Create", mock.Anything, mock.Anything).Return(nil)
	p := new(mockPublisher)
	p.On("PublishReportCompleted", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(t, AnalysisDeps{Cache: c, Store: s, Publisher: p})
	report, err := svc.Analyze(context.Background(), AnalyzeRequest{Path: writeCSV(t, customersCSV), Sheet: "S1"})
	require.NoError(t, err)

	assert.NotEqual(t, "cached-1", report.ID)
	assert.Len(t, report.ID, 36)
	assert.Equal(t, "customers.csv", report.Source)
	assert.Equal(t, "S1", report.Sheet)
	assert.Equal(t, cached.Issues, report.Issues, "findings come from the cache")

	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	s.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(r domain.Report) bool { return r.ID == report.ID }))
	p.AssertNumberOfCalls(t, "PublishReportCompleted", 1)
}

// mapCache is an in-process ReportCache.
type mapCache struct{ reports map[string]domain.Report }

func (m *mapCache) Get(_ context.Context, key string) (domain.Report, bool, error) {
	r, ok := m.reports[key]
	return r, ok, nil
}
func (m *mapCache) Put(_ context.Context, key string, r domain.Report) error {
	m.reports[key] = r
	return nil
}
func (m *mapCache) Ping(context.Context) error { return nil }
func (m *mapCache) Close() error               { return nil }

func TestAnalyze_CacheHitAfterHistoryEviction(t *testing.T) {
	c := &mapCache{reports: make(map[string]domain.Report)}
	svc := newTestService(t, AnalysisDeps{Cache: c, Store: NewMemoryReportStore(1)})
	ctx := context.Background()

	january := func() *dataset.Dataset {
		return dataset.New("sales", []string{"id", "email"}, [][]string{{"1", "a@b.com"}, {"2", ""}})
	}
	first, err := svc.Analyze(ctx, AnalyzeRequest{Dataset: january(), Source: "january.xlsx"})
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, AnalyzeRequest{
		Dataset: dataset.New("other", []string{"code"}, [][]string{{"x"}}),
		Source:  "other.csv",
	})
	require.NoError(t, err)

	second, err := svc.Analyze(ctx, AnalyzeRequest{Dataset: january(), Source: "february.xlsx", Sheet: "Feb"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "february.xlsx", second.Source)
	assert.Equal(t, "Feb", second.Sheet)
	assert.Equal(t, first.Issues, second.Issues)

	stored, err := svc.GetReport(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "february.xlsx", stored.Source)

	_, err = svc.GetReport(ctx, first.ID)
	assert.ErrorIs(t, err, ErrReportNotFound, "evicted by the bounded history")
}

func TestAnalyze_CacheAndBusFailuresAreNotFatal(t *testing.T) {
	c := new(mockCache)
	c.On("Get", mock.Anything, mock.Anything).Return(domain.Report{}, false, errors.New("redis down"))
	c.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	p := new(mockPublisher)
	p.On("PublishReportCompleted", mock.Anything, mock.Anything).Return(errors.New("nats down"))

	svc := newTestService(t, AnalysisDeps{Cache: c, Publisher: p})
	report, err := svc.Analyze(context.Background(), AnalyzeRequest{Path: writeCSV(t, customersCSV)})
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
}

func TestAnalyze_StoreFailureFails(t *testing.T) {
	s := new(mockStore)
	s.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := newTestService(t, AnalysisDeps{Store: s})
	_, err := svc.Analyze(context.Background(), AnalyzeRequest{Path: writeCSV(t, customersCSV)})
	assert.ErrorContains(t, err, "disk full")
}

func TestAnalyze_Errors(t *testing.T) {
	svc := newTestService(t, AnalysisDeps{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  AnalyzeRequest
		want error
	}{
		{"no source", AnalyzeRequest{}, ErrInvalidRequest},
		{"unknown check", AnalyzeRequest{Path: "x.csv", Checks: []string{"spelling_check"}}, detector.ErrUnknownCheck},
		{"unsupported extension", AnalyzeRequest{Path: filepath.Join(t.TempDir(), "notes.docx")}, validation.ErrUnsupportedExtension},
		{"empty file", AnalyzeRequest{Path: writeCSV(t, "")}, validation.ErrEmptyFile},
		{"blank rows only", AnalyzeRequest{Path: writeCSV(t, ",,\n,,\n")}, ingest.ErrNoHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalyze_DatasetAndCheckSelection(t *testing.T) {
	svc := newTestService(t, AnalysisDeps{})
	ds := dataset.New("inline", []string{"email"}, [][]string{{"a@b.com"}, {""}, {"c@d.com"}})

	report, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Dataset: ds,
		Checks:  []string{"null_check"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"null_check"}, report.Checks)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "email", report.Issues[0].Column)
	assert.Equal(t, domain.SeverityMedium, report.Issues[0].Severity)
	assert.Equal(t, 1, report.Issues[0].Count)
}

func TestGetReport_NotFound(t *testing.T) {
	svc := newTestService(t, AnalysisDeps{})
	_, err := svc.GetReport(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestListReports(t *testing.T) {
	s := new(mockStore)
	s.On("List", mock.Anything, 10).Return([]domain.ReportSummary{{ID: "a"}}, nil)

	svc := newTestService(t, AnalysisDeps{Store: s})
	list, err := svc.ListReports(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	s.AssertExpectations(t)
}

func TestChecksCatalogue(t *testing.T) {
	svc := newTestService(t, AnalysisDeps{})
	infos := svc.Checks()
	require.Len(t, infos, len(detector.CheckNames))
	assert.Equal(t, "null_check", infos[0].Name)
}

func TestMemoryReportStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReportStore(2)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(ctx, domain.Report{ID: id}))
	}
	assert.Error(t, s.Create(ctx, domain.Report{ID: "c"}))
	assert.Error(t, s.Create(ctx, domain.Report{}))

	_, err := s.FindByID(ctx, "a")
	assert.True(t, isNotFound(err), "oldest evicted")

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}
