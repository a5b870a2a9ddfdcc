package ws

import (
	"testing"
	"time"
)

func TestEventRateLimiterCapsWindow(t *testing.T) {
	rl := NewEventRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("A") {
			t.Fatalf("attempt %d blocked inside limit", i)
		}
	}
	if rl.Allow("A") {
		t.Fatal("attempt over limit allowed")
	}
	// Other connections have their own window.
	if !rl.Allow("B") {
		t.Fatal("independent connection blocked")
	}
}

func TestEventRateLimiterWindowSlides(t *testing.T) {
	rl := NewEventRateLimiter(2, 10*time.Millisecond)

	rl.Allow("A")
	rl.Allow("A")
	if rl.Allow("A") {
		t.Fatal("over limit allowed")
	}
	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("A") {
		t.Fatal("still blocked after window passed")
	}
}

func TestEventRateLimiterForget(t *testing.T) {
	rl := NewEventRateLimiter(1, time.Minute)

	rl.Allow("A")
	if rl.Allow("A") {
		t.Fatal("over limit allowed")
	}
	rl.Forget("A")
	if !rl.Allow("A") {
		t.Fatal("blocked after Forget")
	}
}
