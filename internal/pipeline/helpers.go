package pipeline

import (
	"errors"
	"net/http"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/pkg/logger_i"
)

var errInvalidParams = errors.New("invalid job parameters")

func complete(job jobModel.Job, result jobModel.JobResult) jobModel.Job {
	job.Result = result
	job.CurrentStep = jobModel.StepComplete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) jobError(log *logger_i.Logger, job jobModel.Job, err error, message string) jobModel.Job {
	log.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message + ": " + err.Error(),
		Retry:   true,
	}
	job.CurrentStep = jobModel.StepError
	job.Status = jobModel.JobStatusError
	return job
}

func invalid(job jobModel.Job, err error) jobModel.Job {
	job.Error = jobModel.JobError{
		Code:    http.StatusBadRequest,
		Message: errors.Join(errInvalidParams, err).Error(),
	}
	job.CurrentStep = jobModel.StepError
	job.Status = jobModel.JobStatusError
	return job
}

// buildOptions defaults to the paragraph variant of the lesson plan category.
func buildOptions(p jobModel.JobParams) (irdataset.BuildOptions, error) {
	variant := irdataset.VariantParagraph
	if p.Variant != "" {
		v, err := irdataset.ParseVariant(p.Variant)
		if err != nil {
			return irdataset.BuildOptions{}, err
		}
		variant = v
	}
	name := p.Category
	if name == "" {
		name = config.LessonPlanCategory
	}
	cat, err := irdataset.CategoryByName(name)
	if err != nil {
		return irdataset.BuildOptions{}, err
	}
	return irdataset.BuildOptions{Variant: variant, Category: cat, LegacyIDs: p.LegacyIDs}, nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
