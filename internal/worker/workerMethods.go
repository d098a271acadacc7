package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/internal/pipeline"
)

// executeJob runs one job to a terminal state. Every step change is saved so
// GET /status shows where a long eval or querygen run is, and lands in the
// job's event log.
func executeJob(job jobModel.Job) {
	start := time.Now()
	done := metrics.JobStarted(string(job.Kind))
	defer done()

	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.JobExecutionTimeout)
	defer cancel()
	log := logger.WithTrace(ctx).With("jobId", job.Id, "kind", job.Kind)

	job.Status = jobModel.JobStatusRunning
	job.CurrentStep = jobModel.StepInit
	saveJobState(ctx, job)
	_jobService.Record(ctx, job.Id, "started %s", job.Kind)

	ctx = pipeline.WithStepFunc(ctx, func(ctx context.Context, j jobModel.Job) {
		log.Debug("Entered step", "step", j.CurrentStep)
		saveJobState(ctx, j)
		_jobService.Record(ctx, j.Id, "step %s", j.CurrentStep)
	})
	job = runPipeline(ctx, job)

	// the job context may be spent; the final state is still written
	final := context.WithoutCancel(ctx)
	job.EndTime = time.Now()
	took := job.EndTime.Sub(start)
	switch {
	case job.Status == jobModel.JobStatusError && errors.Is(ctx.Err(), context.DeadlineExceeded):
		log.Warn("Job timed out", "step", job.CurrentStep)
		_jobService.Record(final, job.Id, "timed out after %s: %s", config.JobExecutionTimeout, job.Error.Message)
	case job.Status == jobModel.JobStatusError:
		log.Warn("Job failed", "step", job.CurrentStep, "error", job.Error.Message)
		_jobService.Record(final, job.Id, "failed: %s", job.Error.Message)
	default:
		job.Status = jobModel.JobStatusComplete
		log.Info("Job complete", "took", took, "counts", job.Result.Counts)
		_jobService.Record(final, job.Id, "finished in %s", took.Round(time.Millisecond))
	}
	saveJobState(final, job)
	metrics.CaptureJobMetrics(string(job.Kind), string(job.Status), took)
}

// runPipeline turns a panic in a builder, index or client into a failed job
// so the worker survives it.
func runPipeline(ctx context.Context, job jobModel.Job) (out jobModel.Job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.JobPanicked(string(job.Kind))
			logger.Error("Job panicked", "jobId", job.Id, "panic", r, "stack", string(debug.Stack()))
			out = job
			out.Status = jobModel.JobStatusError
			out.CurrentStep = jobModel.StepError
			out.Error = jobModel.JobError{Code: http.StatusInternalServerError, Message: fmt.Sprintf("PANIC: %v", r)}
		}
	}()
	return pipeline.Dispatch(ctx, _pipeline, job)
}

func saveJobState(ctx context.Context, job jobModel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to persist job state", "jobId", job.Id, "err", err)
	}
}
