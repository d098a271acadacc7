package middleware

import (
	"sync"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"golang.org/x/time/rate"
)

var (
	limiterMu       sync.RWMutex
	limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)
)

func currentLimiter() *IPRateLimiter {
	limiterMu.RLock()
	defer limiterMu.RUnlock()
	return limiterInstance
}

// setLimits replaces the per-IP buckets when serve applies server.rate_limit.
func setLimits(perSecond float64, burst int) {
	if perSecond <= 0 {
		perSecond = config.RATE_LIMIT_PER_SECOND
	}
	if burst <= 0 {
		burst = config.BURST_RATE_LIMIT_PER_SECOND
	}
	limiterMu.Lock()
	defer limiterMu.Unlock()
	limiterInstance = NewIPRateLimiter(rate.Limit(perSecond), burst)
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP and forgets IPs
// that have been quiet for idleTTL.
type IPRateLimiter struct {
	mu        sync.Mutex
	ips       map[string]*ipBucket
	rateLimit rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:       make(map[string]*ipBucket),
		rateLimit: r,
		burst:     b,
		idleTTL:   config.RateLimiterIdleTTL,
		now:       time.Now,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	now := i.now()
	i.sweep(now)

	b, ok := i.ips[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(i.rateLimit, i.burst)}
		i.ips[ip] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Tracked reports how many IPs currently hold a bucket.
func (i *IPRateLimiter) Tracked() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

// sweep runs at most once per idleTTL; callers hold i.mu.
func (i *IPRateLimiter) sweep(now time.Time) {
	if now.Sub(i.lastSweep) < i.idleTTL {
		return
	}
	i.lastSweep = now
	for ip, b := range i.ips {
		if now.Sub(b.lastSeen) > i.idleTTL {
			delete(i.ips, ip)
		}
	}
}
