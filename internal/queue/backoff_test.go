package queue

import (
	"testing"
	"time"
)

func TestBackoffDoublesPerAttempt(t *testing.T) {
	b := Backoff{Base: 2 * time.Second, Cap: 5 * time.Minute}
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
	}
	for _, tc := range cases {
		if got := b.Delay(tc.attempts); got != tc.want {
			t.Fatalf("Delay(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}

func TestBackoffIsNonDecreasingAndCapped(t *testing.T) {
	b := Backoff{Base: time.Second, Cap: 30 * time.Second}
	prev := time.Duration(0)
	for attempts := 1; attempts <= 64; attempts++ {
		delay := b.Delay(attempts)
		if delay < prev {
			t.Fatalf("Delay(%d) = %v decreased from %v", attempts, delay, prev)
		}
		if delay > b.Cap {
			t.Fatalf("Delay(%d) = %v exceeds cap %v", attempts, delay, b.Cap)
		}
		prev = delay
	}
	if b.Delay(64) != b.Cap {
		t.Fatalf("large attempt counts should hit the cap, got %v", b.Delay(64))
	}
}

func TestBackoffClampsLowAttempts(t *testing.T) {
	b := Backoff{Base: time.Second, Cap: time.Minute}
	if b.Delay(0) != b.Delay(1) {
		t.Fatalf("Delay(0) = %v, want %v", b.Delay(0), b.Delay(1))
	}
}
