package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs   int // Base delay in milliseconds
	RandomDelayMs int // Random delay range in milliseconds
}

// TimingDelay pads authentication failures so "user not found" and
// "wrong password" take approximately the same time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a secure random number in [0, max).
// Uses crypto/rand instead of math/rand for security-sensitive operations.
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint64(randomBytes) % uint64(max)), nil
}

// Wait sleeps for baseDelay plus a random jitter on failure. Successful
// operations are not delayed.
func (td *TimingDelay) Wait(success bool) {
	if success {
		return
	}

	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		jitter, err := cryptoRandIntn(td.config.RandomDelayMs)
		if err == nil {
			delay += time.Duration(jitter) * time.Millisecond
		}
	}
	time.Sleep(delay)
}
