package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/job"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.Info("Creating new job", "traceId", newJob.traceId, "jobId", newJob.id, "kind", newJob.kind)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, events []string, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.Lookup(ctxC, id)
	}
	return result, nil, false
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {
	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		Kind:        newJob.kind,
		Params:      newJob.params,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.StepInit,
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.Error("Failed to save queued job", "jobId", _job.Id, "err", err)
	}
	h.service.Record(ctx, _job.Id, "queued %s", _job.Kind)

	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send keeps the queue bounded
	logJH.Info("Queued new job", "jobId", _job.Id)

	// Every eval or querygen job is long running and gets its own worker
	// signal; otherwise a worker is added every RequestsPerNewWorkerCount jobs.
	// Idle workers retire on their own.
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 ||
		_job.Kind == jobModel.JobKindEval || _job.Kind == jobModel.JobKindQueryGen {
		metrics.StartDispatcherSignalCount()
		logJH.Debug("Signalling dispatcher", "requestCount", accurateCount)
		select {
		case h.service.DispatcherChannel <- true:
		default:
		}
	}
}
