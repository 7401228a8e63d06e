package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/reel-api/internal/domain"
)

// JobStore is the in-memory job registry. All mutation goes through the
// store so concurrent readers (API handlers) and the single writer per
// job (its orchestration goroutine) never share a bare Job pointer.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*domain.Job
}

// NewJobStore creates an empty registry.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[uuid.UUID]*domain.Job),
	}
}

// Save registers a new job.
func (s *JobStore) Save(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, job.ID)
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

// Get returns a copy of the job with the given ID.
func (s *JobStore) Get(id uuid.UUID) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return cloneJob(job), nil
}

// ListByOwner returns copies of all jobs belonging to the owner, newest
// first.
func (s *JobStore) ListByOwner(ownerID uuid.UUID) []*domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Job
	for _, job := range s.jobs {
		if job.OwnerID == ownerID {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UpdateStatus transitions a job to a new non-terminal-originated status.
// Transitions out of a terminal state are rejected: a terminal job never
// changes again.
func (s *JobStore) UpdateStatus(id uuid.UUID, status domain.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, id, job.Status)
	}

	job.Status = status
	job.Message = message
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProgress records a synthetic progress estimate. Updates arriving
// after the job reached a terminal state are dropped silently; the
// estimator's final ticks may race its own teardown.
func (s *JobStore) UpdateProgress(id uuid.UUID, progress domain.ProgressEstimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status.Terminal() {
		return nil
	}
	if progress.Value < job.Progress.Value {
		// Progress is monotonic; never move backwards.
		return nil
	}

	job.Progress = progress
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks a job succeeded with its fetched artifacts and forces
// progress to 100.
func (s *JobStore) Complete(id uuid.UUID, artifacts []domain.Artifact, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, id, job.Status)
	}

	job.Status = domain.JobStatusSucceeded
	job.Artifacts = artifacts
	job.Message = message
	job.Progress = domain.ProgressEstimate{Value: 100, Phase: domain.PhaseFinalizing}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail marks a job failed or cancelled depending on the failure kind,
// leaving no partial artifacts behind so the terminal state is cleanly
// restartable.
func (s *JobStore) Fail(id uuid.UUID, failure *domain.FailureInfo, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, id, job.Status)
	}

	if failure != nil && failure.Kind == domain.FailureCancelled {
		job.Status = domain.JobStatusCancelled
	} else {
		job.Status = domain.JobStatusFailed
	}
	job.Failure = failure
	job.Message = message
	job.Artifacts = nil
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	if job.Artifacts != nil {
		clone.Artifacts = append([]domain.Artifact(nil), job.Artifacts...)
	}
	return &clone
}
