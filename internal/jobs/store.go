package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"dubber/internal/services"
)

// Store keeps job records in memory. Records survive until explicitly
// removed long after their artifacts are gone, so status polling never 404s
// for a job that existed.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create registers a new queued job and returns a copy of it.
func (s *Store) Create(user, filename, targetLanguage, workDir string) Job {
	now := time.Now().UTC()
	job := &Job{
		ID:             uuid.NewString(),
		User:           user,
		Filename:       filename,
		TargetLanguage: targetLanguage,
		Status:         StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
		WorkDir:        workDir,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return *job
}

// Get returns a copy of the job, or ErrNotFound.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "get", "unknown job "+id, nil)
	}
	return *job, nil
}

// Update applies fn to the stored job under the lock and returns the
// resulting copy. Progress never moves backwards and status transitions only
// move forward; fn output violating either is discarded field-wise.
func (s *Store) Update(id string, fn func(*Job)) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "update", "unknown job "+id, nil)
	}

	prevStatus := job.Status
	prevProgress := job.Progress
	fn(job)

	if job.Progress < prevProgress {
		job.Progress = prevProgress
	}
	if job.Progress > 1 {
		job.Progress = 1
	}
	if job.Status.rank() < prevStatus.rank() {
		job.Status = prevStatus
	} else if job.Status != prevStatus && job.Status.rank() == prevStatus.rank() {
		// completed and failed share a rank; terminal states never swap.
		job.Status = prevStatus
	}
	job.UpdatedAt = time.Now().UTC()
	return *job, nil
}

// List returns copies of all jobs, newest first not guaranteed.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		list = append(list, *job)
	}
	return list
}
