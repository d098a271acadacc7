package middleware

import (
	"testing"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_DropsQuietIPs(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	first := l.GetLimiter("10.0.0.1")
	l.GetLimiter("10.0.0.2")
	assert.Equal(t, 2, l.Tracked())

	now = now.Add(config.RateLimiterIdleTTL / 2)
	assert.Same(t, first, l.GetLimiter("10.0.0.1"))

	now = now.Add(config.RateLimiterIdleTTL + time.Second)
	l.GetLimiter("10.0.0.3")
	assert.Equal(t, 1, l.Tracked(), "both earlier IPs went quiet")
	assert.NotSame(t, first, l.GetLimiter("10.0.0.1"))
}

func TestConfigure_AppliesRateLimit(t *testing.T) {
	Configure(config.ServerConfig{RateLimit: 0.001, RateBurst: 1})
	t.Cleanup(func() { Configure(config.Default().Server) })

	l := currentLimiter().GetLimiter("192.0.2.7")
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	Configure(config.ServerConfig{})
	assert.Equal(t, config.BURST_RATE_LIMIT_PER_SECOND, currentLimiter().GetLimiter("192.0.2.7").Burst())
}
