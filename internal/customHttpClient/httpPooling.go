package customHttpClient

import (
	"net/http"
	"time"

	"github.com/akolanti/irbench/internal/config"
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// NewClient returns a client sharing the pooled transport. The content API,
// the OpenAI-compatible endpoints and the LLM providers all go through it.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}
