package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/handlers"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var (
	cfgMu  sync.RWMutex
	srvCfg config.ServerConfig
)

// Configure sets the auth and rate limit settings used by every wrapped handler.
func Configure(cfg config.ServerConfig) {
	cfgMu.Lock()
	srvCfg = cfg
	cfgMu.Unlock()
	setLimits(cfg.RateLimit, cfg.RateBurst)
}

func serverConfig() config.ServerConfig {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return srvCfg
}

var GetHandler = Wrap(handlers.GetHandler, false)

var PostJobHandler = Wrap(handlers.PostJobHandler, true)
var GetStatusHandler = Wrap(handlers.GetStatusHandler, false)

// Wrap runs trace injection and auth before next. Limited handlers are also
// rate limited per client IP.
func Wrap(next http.HandlerFunc, limited bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := processRequest(requestResponseStruct{req: r, writer: rec}, limited)

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}
		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
	}
}

func processRequest(re requestResponseStruct, limited bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "path", re.req.URL.Path)
	re = injectTrace(re)
	if !re.badRequest.isBadRequest {
		re = authenticate(re)
	}
	if !re.badRequest.isBadRequest && limited {
		re = rateLimiter(re)
	}
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
	}
	return re
}
