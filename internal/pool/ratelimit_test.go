package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterAllowsUpToLimitPerWindow(t *testing.T) {
	l := NewWindowLimiter(3, time.Hour)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if _, ok := l.reserve(now); !ok {
			t.Fatalf("reservation %d denied under limit", i+1)
		}
	}
	next, ok := l.reserve(now)
	if ok {
		t.Fatal("reservation over limit allowed")
	}
	if want := now.Add(time.Hour); !next.Equal(want) {
		t.Fatalf("rollover at %v, want %v", next, want)
	}
}

func TestLimiterResetsOnNewWindow(t *testing.T) {
	l := NewWindowLimiter(1, 50*time.Millisecond)
	now := time.Now()
	if _, ok := l.reserve(now); !ok {
		t.Fatal("first reservation denied")
	}
	if _, ok := l.reserve(now); ok {
		t.Fatal("second reservation in same window allowed")
	}
	if _, ok := l.reserve(now.Add(60 * time.Millisecond)); !ok {
		t.Fatal("reservation in fresh window denied")
	}
}

func TestLimiterZeroLimitDisablesGate(t *testing.T) {
	l := NewWindowLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		if err := l.Wait(t.Context()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}

func TestWaitBlocksUntilWindowRolls(t *testing.T) {
	l := NewWindowLimiter(1, 40*time.Millisecond)
	if err := l.Wait(t.Context()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := l.Wait(t.Context()); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("second start after %v, want the window to roll first", elapsed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := NewWindowLimiter(1, time.Hour)
	if err := l.Wait(t.Context()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestUpdateRestartsWindow(t *testing.T) {
	l := NewWindowLimiter(1, time.Hour)
	now := time.Now()
	if _, ok := l.reserve(now); !ok {
		t.Fatal("first reservation denied")
	}
	l.Update(2, time.Hour)
	if _, ok := l.reserve(now); !ok {
		t.Fatal("reservation denied after update")
	}
	if _, ok := l.reserve(now); !ok {
		t.Fatal("second reservation denied under new limit")
	}
}
