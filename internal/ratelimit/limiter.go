package ratelimit

import (
	"sync"
	"time"
)

// Config holds tunables for the admission-control buckets.
type Config struct {
	IPRequestsPerMinute int           // refill rate of the per-IP bucket
	IPBurst             int           // capacity of the per-IP bucket
	TenantRatePerSecond float64       // refill rate of the per-tenant bucket
	TenantBurst         int           // capacity of the per-tenant bucket
	SweepEvery          uint64        // run an eviction sweep every Nth Check call
	IdleEviction        time.Duration // evict buckets idle longer than this
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		IPRequestsPerMinute: 120,
		IPBurst:             30,
		TenantRatePerSecond: 10,
		TenantBurst:         100,
		SweepEvery:          1000,
		IdleEviction:        5 * time.Minute,
	}
}

// sensitiveLimit describes the tighter bucket applied to an abuse-prone
// endpoint, keyed by (client IP, path).
type sensitiveLimit struct {
	capacity int
	rate     float64 // tokens per second
}

// sensitivePaths is the fixed allow-list of endpoints that get their own
// stricter buckets on top of the general per-IP limit.
var sensitivePaths = map[string]sensitiveLimit{
	"/api/v1/auth/login":           {capacity: 5, rate: 0.2},
	"/api/v1/auth/register":        {capacity: 3, rate: 0.1},
	"/api/v1/auth/forgot-password": {capacity: 2, rate: 0.05},
	"/api/v1/payments/initiate":    {capacity: 5, rate: 0.5},
}

// bucket is a lazily refilled token bucket. Refill happens on each consume
// from elapsed time, never via a background timer. Invariant:
// 0 <= tokens <= capacity.
type bucket struct {
	rate       float64
	capacity   int
	tokens     float64
	lastRefill time.Time
}

func newBucket(rate float64, capacity int, now time.Time) *bucket {
	return &bucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     float64(capacity),
		lastRefill: now,
	}
}

// consume refills proportional to elapsed time, caps at capacity, then
// subtracts n if the balance allows. Returns whether it succeeded.
func (b *bucket) consume(n float64, now time.Time) bool {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > float64(b.capacity) {
			b.tokens = float64(b.capacity)
		}
	}
	b.lastRefill = now

	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

// retryAfter is the time in seconds until at least one token is available.
func (b *bucket) retryAfter() float64 {
	if b.rate <= 0 {
		return 0
	}
	wait := (1 - b.tokens) / b.rate
	if wait < 0 {
		return 0
	}
	return wait
}

// Limiter is the in-process admission gate consulted once per inbound
// request. It owns three independent bucket registries (per IP, per
// tenant, per IP+sensitive-path) behind a single mutex so each
// refill-and-consume is atomic under concurrent workers.
//
// State is process-local: a multi-worker deployment gets independent
// limiter state per process. Callers needing shared counting should put a
// keyed external store behind this same Check surface.
type Limiter struct {
	mu sync.Mutex

	cfg             Config
	ipBuckets       map[string]*bucket
	tenantBuckets   map[string]*bucket
	endpointBuckets map[string]*bucket

	calls uint64
	now   func() time.Time
}

// New creates a Limiter with the given config.
func New(cfg Config) *Limiter {
	if cfg.SweepEvery == 0 {
		cfg.SweepEvery = DefaultConfig().SweepEvery
	}
	if cfg.IdleEviction == 0 {
		cfg.IdleEviction = DefaultConfig().IdleEviction
	}
	return &Limiter{
		cfg:             cfg,
		ipBuckets:       make(map[string]*bucket),
		tenantBuckets:   make(map[string]*bucket),
		endpointBuckets: make(map[string]*bucket),
		now:             time.Now,
	}
}

// Check decides whether a request may proceed. It never fails: the result
// is (allowed, retryAfterSeconds), where retryAfter is meaningful only on
// denial and names the wait until the denying bucket holds one token.
//
// Evaluation order is IP bucket, tenant bucket (when tenantID is
// non-empty), then sensitive-endpoint bucket (when path is on the fixed
// allow-list). Earlier buckets keep their debit when a later bucket
// denies; callers only act on the final verdict.
func (l *Limiter) Check(ip, tenantID, path string) (bool, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%l.cfg.SweepEvery == 0 {
		l.sweep(now)
	}

	ipBucket, ok := l.ipBuckets[ip]
	if !ok {
		ipBucket = newBucket(float64(l.cfg.IPRequestsPerMinute)/60.0, l.cfg.IPBurst, now)
		l.ipBuckets[ip] = ipBucket
	}
	if !ipBucket.consume(1, now) {
		return false, ipBucket.retryAfter()
	}

	if tenantID != "" {
		tb, ok := l.tenantBuckets[tenantID]
		if !ok {
			tb = newBucket(l.cfg.TenantRatePerSecond, l.cfg.TenantBurst, now)
			l.tenantBuckets[tenantID] = tb
		}
		if !tb.consume(1, now) {
			return false, tb.retryAfter()
		}
	}

	if limit, ok := sensitivePaths[path]; ok {
		key := ip + "|" + path
		eb, ok := l.endpointBuckets[key]
		if !ok {
			eb = newBucket(limit.rate, limit.capacity, now)
			l.endpointBuckets[key] = eb
		}
		if !eb.consume(1, now) {
			return false, eb.retryAfter()
		}
	}

	return true, 0
}

// sweep evicts buckets across all three registries whose last refill is
// older than the idle threshold, bounding memory growth. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.cfg.IdleEviction)
	for _, m := range []map[string]*bucket{l.ipBuckets, l.tenantBuckets, l.endpointBuckets} {
		for key, b := range m {
			if b.lastRefill.Before(cutoff) {
				delete(m, key)
			}
		}
	}
}

// Size reports the total number of live buckets, for diagnostics.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ipBuckets) + len(l.tenantBuckets) + len(l.endpointBuckets)
}
