package pipeline

import (
	"context"

	"github.com/akolanti/irbench/internal/domain/jobModel"
)

type stepKey struct{}

// StepFunc observes a job each time it enters a new step.
type StepFunc func(ctx context.Context, job jobModel.Job)

// WithStepFunc makes EnterStep report to fn for jobs run under ctx.
func WithStepFunc(ctx context.Context, fn StepFunc) context.Context {
	return context.WithValue(ctx, stepKey{}, fn)
}

// EnterStep moves job to step and notifies the StepFunc carried by ctx.
func EnterStep(ctx context.Context, job jobModel.Job, step jobModel.InternalStatus) jobModel.Job {
	job.CurrentStep = step
	if fn, ok := ctx.Value(stepKey{}).(StepFunc); ok && fn != nil {
		fn(ctx, job)
	}
	return job
}
