package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akolanti/irbench/internal/api"
	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/store"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/handlers"
	"github.com/akolanti/irbench/internal/job"
	"github.com/akolanti/irbench/internal/middleware"
	"github.com/akolanti/irbench/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "test-token"

func setup(t *testing.T) (http.Handler, *job.Service) {
	t.Helper()
	svc := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store.InitInMemoryJobStore(),
		EventStore:        store.InitInMemoryEventStore(),
	})
	handlers.InitJobHandler(svc)
	middleware.Configure(config.ServerConfig{AuthToken: token})
	return server.Routes(), svc
}

func do(h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJobAPI(t *testing.T) {
	h, svc := setup(t)

	t.Run("health", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/health", "", true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
	})

	t.Run("unauthorized", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/jobs", `{"kind":"build"}`, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.JobChannel)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/jobs", `{"kind":`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/jobs", `{"kind":"index"}`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp api.JobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Message, "index")
	})

	var jobID string
	t.Run("queue and poll", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/jobs", `{"kind":"eval","params":{"variant":"page","retriever":"bm25","page_level":true}}`, true)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var init api.InitJobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &init))
		jobID = init.Id
		assert.Equal(t, "status/"+jobID, init.StatusURL)

		queued := <-svc.JobChannel
		assert.Equal(t, jobID, queued.Id)
		assert.Equal(t, jobModel.JobKindEval, queued.Kind)
		assert.True(t, queued.Params.PageLevel)
		assert.Equal(t, "bm25", queued.Params.Retriever)
		assert.NotEmpty(t, queued.TraceId)
		assert.Len(t, svc.DispatcherChannel, 1, "eval jobs signal the dispatcher")

		rec = do(h, http.MethodGet, "/status/"+jobID, "", true)
		require.Equal(t, http.StatusOK, rec.Code)
		var status api.JobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, string(jobModel.JobStatusQueued), status.Result.Status)
		assert.Equal(t, "eval", status.Kind)
		require.Len(t, status.Events, 1)
		assert.Contains(t, status.Events[0], "queued eval")
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/status/ghost", "", true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/metrics", "", false)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "irbench_http_requests_total")
	})
}

func TestRateLimiter(t *testing.T) {
	l := middleware.NewIPRateLimiter(1, 2)
	a := l.GetLimiter("10.0.0.1")
	assert.Same(t, a, l.GetLimiter("10.0.0.1"))
	assert.True(t, a.Allow())
	assert.True(t, a.Allow())
	assert.False(t, a.Allow())
	assert.True(t, l.GetLimiter("10.0.0.2").Allow())
}
