package auth_test

import (
	"testing"
	"time"

	"github.com/diwakar453t/Vincenzo-sub000/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_Wait_OnFailure(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 50,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	timing.Wait(false)

	elapsed := time.Since(startTime)
	// At least the base delay, less than base + max jitter (with headroom)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestTimingDelay_Wait_OnSuccess_NoDelay(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 50,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	timing.Wait(true)

	elapsed := time.Since(startTime)
	assert.Less(t, elapsed, 10*time.Millisecond)
}

func TestTimingDelay_Wait_ZeroConfig(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{})
	startTime := time.Now()

	timing.Wait(false)

	elapsed := time.Since(startTime)
	assert.Less(t, elapsed, 10*time.Millisecond)
}
