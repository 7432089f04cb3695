package operations

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"etlinspector/internal/services"
	"etlinspector/pkg/contracts/domain"
)

// JobStore interface for job persistence
type JobStore interface {
	CreateJob(job *domain.Job) error
	GetJob(id string) (*domain.Job, error)
	UpdateJob(job *domain.Job) error
	ListJobs(filter domain.JobFilter) ([]*domain.Job, error)
	DeleteJob(id string) error
}

// MemoryJobStore is an in-memory implementation of JobStore
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewMemoryJobStore creates a new in-memory job store
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*domain.Job),
	}
}

// CreateJob creates a new job
func (s *MemoryJobStore) CreateJob(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetJob returns a copy of the stored job.
func (s *MemoryJobStore) GetJob(id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", id, services.ErrJobNotFound)
	}
	return cloneJob(job), nil
}

// UpdateJob updates an existing job
func (s *MemoryJobStore) UpdateJob(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s: %w", job.ID, services.ErrJobNotFound)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *MemoryJobStore) ListJobs(filter domain.JobFilter) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Job
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && job.CreatedAt.Before(filter.Since) {
			continue
		}
		result = append(result, cloneJob(job))
	}

	slices.SortFunc(result, func(a, b *domain.Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// DeleteJob removes a job from the store
func (s *MemoryJobStore) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; !exists {
		return fmt.Errorf("job %s: %w", id, services.ErrJobNotFound)
	}
	delete(s.jobs, id)
	return nil
}

// PruneFinished deletes terminal jobs that completed before cutoff and
// returns their IDs.
func (s *MemoryJobStore) PruneFinished(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, job := range s.jobs {
		if !job.Status.Terminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	c.Checks = slices.Clone(job.Checks)
	return &c
}
