package smartcn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/metrics"
	"github.com/akolanti/irbench/pkg/logger_i"
	"golang.org/x/time/rate"
)

var (
	// ErrAuthExpired stops a run: the auth header must be rotated by hand.
	ErrAuthExpired = errors.New("x-nd-auth header expired or invalid")
	ErrNotFound    = errors.New("resource not available on any host")
)

// Client talks to the content API. Every request waits on a shared limiter
// so consecutive calls are spaced by the configured delay.
type Client struct {
	http    *http.Client
	hosts   []string
	auth    string
	limiter *rate.Limiter
	logger  *logger_i.Logger
}

func NewClient(cfg config.SmartcnConfig, httpClient *http.Client) *Client {
	delay := cfg.RequestDelay
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Client{
		http:    httpClient,
		hosts:   cfg.Hosts,
		auth:    cfg.AuthToken,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger_i.NewLogger("smartcn"),
	}
}

// getFromHosts fetches path from each host in turn until one answers 200.
func (c *Client) getFromHosts(ctx context.Context, path string, out any) error {
	var lastErr error = ErrNotFound
	for _, host := range c.hosts {
		body, status, err := c.get(ctx, host+path, false)
		if err != nil {
			lastErr = err
			c.logger.Debug("host failed", "url", host+path, "error", err)
			continue
		}
		if status != http.StatusOK {
			lastErr = fmt.Errorf("%s: status %d", host+path, status)
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s: %w", host+path, err)
		}
		return nil
	}
	return lastErr
}

// getJSON fetches an absolute url.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, status, err := c.get(ctx, url, false)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: status %d", url, status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// download fetches an authenticated file. 401 and 403 map to ErrAuthExpired.
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	body, status, err := c.get(ctx, url, true)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuthExpired
	}
	return nil, fmt.Errorf("%s: status %d", url, status)
}

func (c *Client) get(ctx context.Context, url string, withAuth bool) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	if withAuth && c.auth != "" {
		req.Header.Set(config.SmartcnAuthHeader, c.auth)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.CaptureExecutionMetrics("smartcn", time.Since(start))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
