// Package ratelimit provides per-client request rate limiting for the HTTP
// API, built on golang.org/x/time/rate token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EndpointConfig is the rate limit for one endpoint class.
type EndpointConfig struct {
	Path   string // Path pattern; a trailing "/" matches by prefix
	Method string
	Limit  rate.Limit // Sustained requests per second
	Burst  int
}

// Config holds limiter configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    rate.Limit
	DefaultBurst    int
	CleanupInterval time.Duration
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns the standard limits: creation and generation
// endpoints are strict, reads are generous.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    rate.Limit(20),
		DefaultBurst:    40,
		CleanupInterval: 5 * time.Minute,
		EndpointConfigs: []EndpointConfig{
			// Capability-backed operations are the expensive ones.
			{Path: "/runs", Method: "POST", Limit: rate.Every(30 * time.Second), Burst: 3},
			{Path: "/runs/", Method: "POST", Limit: rate.Every(10 * time.Second), Burst: 5},
			{Path: "/assets", Method: "POST", Limit: rate.Every(2 * time.Second), Burst: 10},
		},
	}
}

type clientKey struct {
	clientID string
	path     string
	method   string
}

// Limiter manages one token bucket per client and endpoint class.
type Limiter struct {
	mu       sync.Mutex
	config   *Config
	buckets  map[clientKey]*entry
	stopOnce sync.Once
	stop     chan struct{}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter and starts its idle-bucket cleanup.
func NewLimiter(config *Config) *Limiter {
	l := &Limiter{
		config:  config,
		buckets: make(map[clientKey]*entry),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow reports whether the client may make this request now.
func (l *Limiter) Allow(clientID, path, method string) bool {
	if !l.config.Enabled {
		return true
	}
	if path == "/health" && method == "GET" {
		return true
	}

	limit, burst, matchedPath := l.match(path, method)

	l.mu.Lock()
	key := clientKey{clientID: clientID, path: matchedPath, method: method}
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(limit, burst)}
		l.buckets[key] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

// Stop ends the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) match(path, method string) (rate.Limit, int, string) {
	for _, cfg := range l.config.EndpointConfigs {
		if cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg.Limit, cfg.Burst, cfg.Path
		}
		if len(cfg.Path) > 0 && cfg.Path[len(cfg.Path)-1] == '/' &&
			len(path) > len(cfg.Path) && path[:len(cfg.Path)] == cfg.Path {
			return cfg.Limit, cfg.Burst, cfg.Path
		}
	}
	return l.config.DefaultLimit, l.config.DefaultBurst, ""
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.config.CleanupInterval)
			l.mu.Lock()
			for key, e := range l.buckets {
				if e.lastSeen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
