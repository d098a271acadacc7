package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/irbench/internal/api"
	"github.com/akolanti/irbench/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job, events []string) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	return api.JobResponse{
		Id:   job.Id,
		Kind: string(job.Kind),
		Result: api.Result{
			Status:    string(job.Status),
			Step:      string(job.CurrentStep),
			OutputDir: job.Result.OutputDir,
			Counts:    job.Result.Counts,
			Metrics:   job.Result.Metrics,
		},
		Events:    events,
		Error:     errorPtr,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
	}
}

func ToJobParams(p api.JobParams) jobModel.JobParams {
	return jobModel.JobParams{
		Variant:       p.Variant,
		Category:      p.Category,
		LegacyIDs:     p.LegacyIDs,
		QueriesPerDoc: p.QueriesPerDoc,
		Limit:         p.Limit,
		Dataset:       p.Dataset,
		Retriever:     p.Retriever,
		PageLevel:     p.PageLevel,
		Reindex:       p.Reindex,
		TopK:          p.TopK,
		BatchSize:     p.BatchSize,
		Output:        p.Output,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
