package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestLimiterAllowsUpToLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterWithClock(10, time.Hour, func() time.Time { return now })

	for i := 0; i < 10; i++ {
		ok, _, _ := l.Allow("203.0.113.9")
		if !ok {
			t.Fatalf("call %d unexpectedly denied", i+1)
		}
	}

	ok, remaining, _ := l.Allow("203.0.113.9")
	if ok {
		t.Fatal("11th call within window should be denied")
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestLimiterDeniedCallDoesNotConsumeSlot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterWithClock(2, time.Hour, func() time.Time { return now })

	l.Allow("k")
	l.Allow("k")
	for i := 0; i < 5; i++ {
		if ok, _, _ := l.Allow("k"); ok {
			t.Fatal("denied call consumed a slot")
		}
	}

	// One slot frees up once the first timestamp leaves the window; repeated
	// denials above must not have extended it.
	now = now.Add(61 * time.Minute)
	if ok, _, _ := l.Allow("k"); !ok {
		t.Fatal("call after window expiry should be allowed")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterWithClock(10, time.Hour, func() time.Time { return now })

	for i := 0; i < 10; i++ {
		l.Allow("client")
		now = now.Add(time.Minute)
	}
	if ok, _, _ := l.Allow("client"); ok {
		t.Fatal("expected denial while window full")
	}

	// 61 minutes after the first call, that call has aged out.
	now = time.Date(2026, 3, 1, 13, 1, 0, 0, time.UTC)
	if ok, _, _ := l.Allow("client"); !ok {
		t.Fatal("expected allowance after first call aged out")
	}
}

func TestLimiterIdentitiesAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterWithClock(1, time.Hour, func() time.Time { return now })

	if ok, _, _ := l.Allow("a"); !ok {
		t.Fatal("first call for a denied")
	}
	if ok, _, _ := l.Allow("a"); ok {
		t.Fatal("second call for a allowed")
	}
	if ok, _, _ := l.Allow("b"); !ok {
		t.Fatal("first call for b denied")
	}
}

func TestLimiterConcurrentSameIdentity(t *testing.T) {
	l := NewLimiter(10, time.Hour)

	var wg sync.WaitGroup
	allowed := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := l.Allow("shared"); ok {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for range allowed {
		count++
	}
	if count != 10 {
		t.Errorf("allowed %d concurrent calls, want exactly 10", count)
	}
}
