package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func testConfig() *Config {
	return &Config{
		Enabled:      true,
		DefaultLimit: rate.Limit(1000),
		DefaultBurst: 1000,
		EndpointConfigs: []EndpointConfig{
			{Path: "/runs", Method: "POST", Limit: rate.Every(time.Hour), Burst: 2},
			{Path: "/runs/", Method: "POST", Limit: rate.Every(time.Hour), Burst: 3},
		},
	}
}

func TestLimiterEnforcesBurst(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	assert.True(t, l.Allow("1.2.3.4", "/runs", "POST"))
	assert.True(t, l.Allow("1.2.3.4", "/runs", "POST"))
	assert.False(t, l.Allow("1.2.3.4", "/runs", "POST"), "burst of 2 exhausted")
}

func TestLimiterIsPerClient(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	assert.True(t, l.Allow("1.2.3.4", "/runs", "POST"))
	assert.True(t, l.Allow("1.2.3.4", "/runs", "POST"))
	assert.False(t, l.Allow("1.2.3.4", "/runs", "POST"))

	assert.True(t, l.Allow("5.6.7.8", "/runs", "POST"), "other clients unaffected")
}

func TestLimiterPrefixMatch(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	// /runs/{id}/approve matches the "/runs/" prefix config with burst 3.
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4", "/runs/abc/approve", "POST"))
	}
	assert.False(t, l.Allow("1.2.3.4", "/runs/abc/approve", "POST"))
}

func TestLimiterHealthUnlimited(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 50; i++ {
		assert.True(t, l.Allow("1.2.3.4", "/health", "GET"))
	}
}

func TestLimiterDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("1.2.3.4", "/runs", "POST"))
	}
}

func TestLimiterDefaultForUnmatched(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	assert.True(t, l.Allow("1.2.3.4", "/runs", "GET"), "GET falls back to default limits")
}
