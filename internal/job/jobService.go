package job

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/irbench/internal/domain/jobModel"
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	EventStore        jobModel.EventStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	EventStore        jobModel.EventStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		EventStore:        cfg.EventStore,
	}
}

// Record appends a timestamped progress line to the job's event log. A nil
// event store or a store failure never fails the job.
func (s *Service) Record(ctx context.Context, jobID, format string, args ...any) {
	if s.EventStore == nil {
		return
	}
	line := time.Now().Format(time.RFC3339) + " " + fmt.Sprintf(format, args...)
	_ = s.EventStore.AppendEvent(ctx, jobID, line)
}

// Lookup returns the job and its recent events.
func (s *Service) Lookup(ctx context.Context, jobID string) (jobModel.Job, []string, bool) {
	j, found := s.JobStore.GetJob(ctx, jobID)
	if !found || s.EventStore == nil {
		return j, nil, found
	}
	events, err := s.EventStore.RecentEvents(ctx, jobID)
	if err != nil {
		return j, nil, true
	}
	return j, events, true
}
