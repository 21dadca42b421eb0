package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds its bucket limit.
var ErrRateLimited = errors.New("security: rate limit exceeded")

// RateLimit bucket names used by the diagnostics server.
const (
	BucketAssemble = "assemble"
	BucketEngine   = "engine"
)

// RateLimitConfig holds per-minute limits for diagnostics operations.
type RateLimitConfig struct {
	AssemblePerMin int `yaml:"assemble_per_min"`
	EnginePerMin   int `yaml:"engine_per_min"`
}

// Defaults fills zero fields.
func (c *RateLimitConfig) Defaults() {
	if c.AssemblePerMin <= 0 {
		c.AssemblePerMin = 60
	}
	if c.EnginePerMin <= 0 {
		c.EnginePerMin = 10
	}
}

// RateLimiter implements sliding-window rate limiting. Each bucket keeps
// the timestamps of recent events within its window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a limiter from cfg. Zero fields take defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.Defaults()
	return &RateLimiter{
		now: time.Now,
		buckets: map[string]*bucket{
			BucketAssemble: {window: time.Minute, limit: cfg.AssemblePerMin},
			BucketEngine:   {window: time.Minute, limit: cfg.EnginePerMin},
		},
	}
}

// WithClock overrides the clock. Intended for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Allow records one event of kind, or returns ErrRateLimited when the
// bucket is full. Unknown kinds are never limited.
func (rl *RateLimiter) Allow(kind string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	b.evict(now)
	if len(b.events) >= b.limit {
		return ErrRateLimited
	}
	b.events = append(b.events, now)
	return nil
}

// evict drops events older than the window. Events are chronological.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
