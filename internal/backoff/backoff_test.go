package backoff

import (
	"context"
	"testing"
	"time"
)

func TestComputeWithRand(t *testing.T) {
	tests := []struct {
		name        string
		policy      Policy
		attempt     int
		randomValue float64
		want        time.Duration
	}{
		{
			name:        "first attempt no jitter",
			policy:      Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt:     1,
			randomValue: 0.5,
			want:        100 * time.Millisecond,
		},
		{
			name:        "second attempt doubles",
			policy:      Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt:     2,
			randomValue: 0.5,
			want:        200 * time.Millisecond,
		},
		{
			name:        "clamped to max",
			policy:      Policy{Initial: 100 * time.Millisecond, Max: 1 * time.Second, Factor: 2},
			attempt:     10,
			randomValue: 0,
			want:        1 * time.Second,
		},
		{
			name:        "jitter adds fraction of base",
			policy:      Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: 0.5},
			attempt:     1,
			randomValue: 1.0,
			want:        150 * time.Millisecond,
		},
		{
			name:        "attempt below one treated as first",
			policy:      Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt:     0,
			randomValue: 0,
			want:        100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWithRand(tt.policy, tt.attempt, tt.randomValue)
			if got != tt.want {
				t.Errorf("ComputeWithRand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeWithinJitterBounds(t *testing.T) {
	policy := Default()
	for attempt := 1; attempt <= 8; attempt++ {
		got := Compute(policy, attempt)
		lo := ComputeWithRand(policy, attempt, 0)
		hi := ComputeWithRand(policy, attempt, 1)
		if got < lo || got > hi {
			t.Errorf("attempt %d: Compute() = %v outside [%v, %v]", attempt, got, lo, hi)
		}
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := Policy{Initial: 10 * time.Second, Max: 10 * time.Second, Factor: 1}
	if err := Sleep(ctx, policy, 1); err != context.Canceled {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
}

func TestSleepZeroDelay(t *testing.T) {
	if err := Sleep(context.Background(), Policy{}, 1); err != nil {
		t.Errorf("Sleep() with zero policy = %v, want nil", err)
	}
}
