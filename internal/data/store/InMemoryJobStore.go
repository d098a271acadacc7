package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

// InMemoryJobStore backs serve when redis is off. Finished jobs expire ttl
// after their EndTime, like the redis keys do.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]jobModel.Job
	ttl  time.Duration
	now  func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

// NewInMemoryJobStore keeps finished jobs forever when ttl is zero.
func NewInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[string]jobModel.Job),
		ttl:  ttl,
		now:  now,
	}
}

func (s *InMemoryJobStore) expired(j jobModel.Job) bool {
	return s.ttl > 0 && !j.EndTime.IsZero() && s.now().Sub(j.EndTime) > s.ttl
}

func (s *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Id] = job.Clone()

	pruned := 0
	for id, j := range s.jobs {
		if s.expired(j) {
			delete(s.jobs, id)
			pruned++
		}
	}
	inMemLogger.Debug("Saved job", "jobId", job.Id, "kind", job.Kind, "step", job.CurrentStep, "pruned", pruned)
	return nil
}

func (s *InMemoryJobStore) GetJob(ctx context.Context, jobID string) (jobModel.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, found := s.jobs[jobID]
	if !found || s.expired(j) {
		return jobModel.Job{}, false
	}
	return j.Clone(), true
}

func (s *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}
