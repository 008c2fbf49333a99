package ratelimit

import (
	"testing"
	"time"
)

func TestKeyedBurst(t *testing.T) {
	k := NewKeyed(1, 3)
	now := time.Unix(1000, 0)
	k.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !k.Allow("u1") {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if k.Allow("u1") {
		t.Error("fourth call inside the burst window should be denied")
	}
	if !k.Allow("u2") {
		t.Error("other keys have their own bucket")
	}

	if d := k.RetryAfter("u1"); d <= 0 || d > time.Second {
		t.Errorf("RetryAfter() = %v, want (0, 1s]", d)
	}

	now = now.Add(time.Second)
	if !k.Allow("u1") {
		t.Error("a token should be back after one second")
	}
}

func TestKeyedSweep(t *testing.T) {
	k := NewKeyed(1, 1)
	now := time.Unix(0, 0)
	k.now = func() time.Time { return now }

	k.Allow("old")
	now = now.Add(DefaultIdleTTL + time.Minute)
	for i := 0; i < 255; i++ {
		k.Allow("fresh")
	}

	if k.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after sweeping idle keys", k.Len())
	}
}
