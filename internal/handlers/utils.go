package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/akolanti/irbench/internal/adapter"
	"github.com/akolanti/irbench/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already sent
		logRH.Error("Error encoding response", "err", err)
	}
}

func validateId(id string, traceId string) (jobModel.Job, []string, bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, nil, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "err", ctx.Err())
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}
