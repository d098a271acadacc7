package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/akolanti/irbench/internal/adapter"
	"github.com/akolanti/irbench/internal/adapter/utils"
	"github.com/akolanti/irbench/internal/api"
	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id      string
	traceId string
	kind    jobModel.JobKind
	params  jobModel.JobParams
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostJobHandler godoc
// @Summary      Queue a pipeline job
// @Description  Validates the job kind and parameters, queues the job and returns its id.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        request  body      api.JobRequest       true  "Job kind and parameters"
// @Success      202      {object}  api.InitJobResponse  "Job queued"
// @Failure      400      {object}  api.JobResponse      "Unknown kind or malformed body"
// @Router       /jobs [post]
func PostJobHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid context", "remote", request.RemoteAddr)
		return
	}

	var requestData api.JobRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the job request reader", "err", err)
		}
	}(request.Body)

	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
		logRH.Warn("Bad job request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}
	kind := jobModel.JobKind(requestData.Kind)
	if !kind.Valid() {
		WriteErrorResponse(w, http.StatusBadRequest, "", "unknown job kind "+requestData.Kind)
		return
	}

	newJob := newJobData{
		id:      utils.GetNewUUID(),
		traceId: traceFrom(request),
		kind:    kind,
		params:  adapter.ToJobParams(requestData.Params),
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Returns the job state, its result and the most recent progress events.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "Current job state"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, events, isFound := validateId(idString, traceFrom(r))

	logRH.Debug("Get status request", "path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result, events))
}

func traceFrom(r *http.Request) string {
	trace, _ := r.Context().Value(config.TRACE_ID_KEY).(string)
	return trace
}
