package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayStaysWithinCap(t *testing.T) {
	pool := &Pool{policy: RetryPolicy{BaseDelay: time.Second, MaxDelay: 30 * time.Second}}

	for attempts := 0; attempts < 10; attempts++ {
		delay := pool.backoffDelay(attempts)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, 30*time.Second)
	}
}

func TestBackoffDelayGrowsWithAttempts(t *testing.T) {
	pool := &Pool{policy: RetryPolicy{BaseDelay: time.Second, MaxDelay: 30 * time.Second}}

	// jitter makes any single sample noisy, so compare the deterministic
	// ceiling (the delay fed into rand.Int63n) across many samples instead
	// of individual draws.
	var maxAtZero, maxAtFive time.Duration
	for i := 0; i < 200; i++ {
		if d := pool.backoffDelay(0); d > maxAtZero {
			maxAtZero = d
		}
		if d := pool.backoffDelay(5); d > maxAtFive {
			maxAtFive = d
		}
	}
	assert.Greater(t, maxAtFive, maxAtZero)
}

func TestDefaultRetryPolicyMatchesDefaultPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.BaseDelay)
	assert.Equal(t, 30*time.Second, policy.MaxDelay)
	assert.Equal(t, 10*time.Minute, policy.MaxWallTime)
}
