package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"dubber/internal/jobs"
	"dubber/internal/logging"
)

// Supervisor owns the goroutine for each running job: it launches runs,
// recovers panics into a failed status, and schedules artifact cleanup after
// completion.
type Supervisor struct {
	logger      *slog.Logger
	pipeline    *Pipeline
	store       *jobs.Store
	autoDelete  bool
	deleteDelay time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSupervisor builds a Supervisor. deleteDelay applies when autoDelete is
// on; artifacts are removed that long after a job reaches a terminal status.
func NewSupervisor(logger *slog.Logger, p *Pipeline, store *jobs.Store, autoDelete bool, deleteDelay time.Duration) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		logger:      logger,
		pipeline:    p,
		store:       store,
		autoDelete:  autoDelete,
		deleteDelay: deleteDelay,
		baseCtx:     ctx,
		cancel:      cancel,
		timers:      make(map[string]*time.Timer),
	}
}

// Pipeline exposes the underlying pipeline for synchronous callers.
func (s *Supervisor) Pipeline() *Pipeline {
	return s.pipeline
}

// Launch starts a job run in its own goroutine and returns immediately.
func (s *Supervisor) Launch(jobID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logger.Error("job panicked",
					logging.String("job_id", jobID),
					logging.Any("panic", recovered))
				s.pipeline.Fail(jobID, fmt.Sprintf("internal error: %v", recovered))
			}
			s.scheduleCleanup(jobID)
		}()
		s.pipeline.Run(s.baseCtx, jobID)
	}()
}

// Stop cancels running jobs, stops pending cleanup timers, and waits for
// goroutines to exit.
func (s *Supervisor) Stop() {
	s.cancel()
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// scheduleCleanup arms the auto-delete timer for a finished job.
func (s *Supervisor) scheduleCleanup(jobID string) {
	if !s.autoDelete {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.timers[jobID]; exists {
		return
	}
	s.timers[jobID] = time.AfterFunc(s.deleteDelay, func() {
		s.deleteArtifacts(jobID)
		s.mu.Lock()
		delete(s.timers, jobID)
		s.mu.Unlock()
	})
}

// deleteArtifacts removes a job's files and marks the record deleted. The
// record itself stays so status polling keeps answering.
func (s *Supervisor) deleteArtifacts(jobID string) {
	job, err := s.store.Get(jobID)
	if err != nil {
		return
	}
	if job.WorkDir != "" {
		if err := os.RemoveAll(job.WorkDir); err != nil {
			s.logger.Warn("artifact cleanup failed",
				logging.String("job_id", jobID), logging.Error(err))
		}
	}
	s.store.Update(jobID, func(j *jobs.Job) { //nolint:errcheck
		j.Status = jobs.StatusDeleted
		j.Artifacts = jobs.Artifacts{}
	})
	s.logger.Info("job artifacts removed", logging.String("job_id", jobID))
}
