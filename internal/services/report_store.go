package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"etlinspector/internal/store"
	"etlinspector/pkg/contracts/domain"
)

// ReportStore persists finished reports.
type ReportStore interface {
	Create(ctx context.Context, report domain.Report) error
	FindByID(ctx context.Context, id string) (domain.Report, error)
	List(ctx context.Context, limit int) ([]domain.ReportSummary, error)
}

// MemoryReportStore keeps the most recent reports in memory. It backs the
// service when the SQLite history is disabled.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
	order   []string
	max     int
}

// NewMemoryReportStore keeps at most max reports, evicting the oldest.
func NewMemoryReportStore(max int) *MemoryReportStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryReportStore{
		reports: make(map[string]domain.Report),
		max:     max,
	}
}

// Create stores a report.
func (s *MemoryReportStore) Create(_ context.Context, report domain.Report) error {
	if report.ID == "" {
		return store.ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ID]; exists {
		return fmt.Errorf("report %s already exists", report.ID)
	}
	s.reports[report.ID] = report
	s.order = append(s.order, report.ID)
	for len(s.order) > s.max {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// FindByID returns a stored report.
func (s *MemoryReportStore) FindByID(_ context.Context, id string) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return domain.Report{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return report, nil
}

// List returns summaries, newest first.
func (s *MemoryReportStore) List(_ context.Context, limit int) ([]domain.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	out := make([]domain.ReportSummary, 0, min(limit, len(s.order)))
	for _, id := range slices.Backward(s.order) {
		if len(out) >= limit {
			break
		}
		out = append(out, s.reports[id].Summary())
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
