package lockout

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Config holds the progressive lockout policy.
type Config struct {
	ShortThreshold  int           // failures before the short lock
	MediumThreshold int           // failures before the medium lock
	LongThreshold   int           // failures before the long lock
	ShortDuration   time.Duration
	MediumDuration  time.Duration
	LongDuration    time.Duration
	InactivityReset time.Duration // idle time after which the streak restarts
}

// DefaultConfig returns the production policy: 5 failures lock for 15
// minutes, 10 for an hour, 20 for a day; a streak resets after an hour of
// inactivity.
func DefaultConfig() Config {
	return Config{
		ShortThreshold:  5,
		MediumThreshold: 10,
		LongThreshold:   20,
		ShortDuration:   15 * time.Minute,
		MediumDuration:  1 * time.Hour,
		LongDuration:    24 * time.Hour,
		InactivityReset: 1 * time.Hour,
	}
}

// entry is the per-identity failure state. Entries are created on the
// first failure and removed only by a successful login.
type entry struct {
	count       int
	lockedUntil time.Time
	lastAttempt time.Time
	ips         map[string]struct{}
}

// Status is a read-only snapshot of one identity's lockout state.
type Status struct {
	Locked            bool     `json:"locked"`
	Attempts          int      `json:"attempts"`
	RemainingAttempts int      `json:"remaining_attempts"`
	RetryAfter        float64  `json:"retry_after,omitempty"`
	IPs               []string `json:"ips,omitempty"`
}

// Tracker defends login against credential stuffing by progressively
// locking an identity after repeated failures, independent of source IP.
// All state is in-process and mutex-guarded; two concurrent failures for
// the same email are both counted.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry
	now     func() time.Time
}

// New creates a Tracker with the given policy.
func New(cfg Config) *Tracker {
	return &Tracker{
		cfg:     cfg,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// normalizeEmail makes the identity key case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecordFailure counts one failed login for email from ip and returns the
// resulting state. If the identity has been quiet longer than the
// inactivity window the streak restarts at one. The lock deadline never
// moves backwards within a continuing streak.
func (t *Tracker) RecordFailure(email, ip string) Status {
	key := normalizeEmail(email)
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{ips: make(map[string]struct{})}
		t.entries[key] = e
	} else if now.Sub(e.lastAttempt) > t.cfg.InactivityReset {
		e.count = 0
		e.lockedUntil = time.Time{}
	}

	e.count++
	e.lastAttempt = now
	if ip != "" {
		e.ips[ip] = struct{}{}
	}

	if d := t.lockDuration(e.count); d > 0 {
		until := now.Add(d)
		if until.After(e.lockedUntil) {
			e.lockedUntil = until
		}
	}

	return t.snapshot(e, now)
}

// RecordSuccess clears all failure state for email. The transition to
// CLEAR is a full reset: the entry is deleted, not zeroed.
func (t *Tracker) RecordSuccess(email string) {
	key := normalizeEmail(email)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// IsLocked reports whether email is currently locked and, if so, the
// remaining lock time in seconds. A lapsed lock reads as unlocked but the
// stale failure count persists until the inactivity reset or a success.
func (t *Tracker) IsLocked(email string) (bool, float64) {
	key := normalizeEmail(email)
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return false, 0
	}
	now := t.now()
	if e.lockedUntil.After(now) {
		return true, e.lockedUntil.Sub(now).Seconds()
	}
	return false, 0
}

// Status returns a diagnostics view of email's state, including the IPs
// that have failed against it.
func (t *Tracker) Status(email string) Status {
	key := normalizeEmail(email)
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return Status{RemainingAttempts: t.cfg.ShortThreshold}
	}
	s := t.snapshot(e, t.now())
	s.IPs = make([]string, 0, len(e.ips))
	for ip := range e.ips {
		s.IPs = append(s.IPs, ip)
	}
	sort.Strings(s.IPs)
	return s
}

// Size reports the number of tracked identities, for diagnostics.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tracker) lockDuration(count int) time.Duration {
	switch {
	case count >= t.cfg.LongThreshold:
		return t.cfg.LongDuration
	case count >= t.cfg.MediumThreshold:
		return t.cfg.MediumDuration
	case count >= t.cfg.ShortThreshold:
		return t.cfg.ShortDuration
	}
	return 0
}

func (t *Tracker) snapshot(e *entry, now time.Time) Status {
	s := Status{Attempts: e.count}
	if remaining := t.cfg.ShortThreshold - e.count; remaining > 0 {
		s.RemainingAttempts = remaining
	}
	if e.lockedUntil.After(now) {
		s.Locked = true
		s.RetryAfter = e.lockedUntil.Sub(now).Seconds()
	}
	return s
}
