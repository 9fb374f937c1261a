// Package backoff provides capped exponential backoff with jitter for the
// transport reconnect loop.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines the parameters for backoff calculation.
type Policy struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the computed delay.
	Max time.Duration
	// Factor is the exponential growth factor per attempt.
	Factor float64
	// Jitter is the randomization fraction (0.0 to 1.0) added on top of
	// the base delay.
	Jitter float64
}

// Default returns the reconnect policy used when none is configured:
// 500ms initial, 15s cap, doubling, 20% jitter.
func Default() Policy {
	return Policy{
		Initial: 500 * time.Millisecond,
		Max:     15 * time.Second,
		Factor:  2,
		Jitter:  0.2,
	}
}

// Compute calculates the delay for a given attempt. Attempts start at 1.
func Compute(policy Policy, attempt int) time.Duration {
	return ComputeWithRand(policy, attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// ComputeWithRand calculates the delay using a provided random value in
// [0.0, 1.0), so tests can pin deterministic results.
func ComputeWithRand(policy Policy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(policy.Initial) * math.Pow(policy.Factor, exp)
	jitter := base * policy.Jitter * randomValue
	total := math.Min(float64(policy.Max), base+jitter)
	return time.Duration(total)
}

// Sleep waits out the backoff delay for the given attempt, respecting
// context cancellation. Returns ctx.Err() if cancelled mid-sleep.
func Sleep(ctx context.Context, policy Policy, attempt int) error {
	delay := Compute(policy, attempt)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
