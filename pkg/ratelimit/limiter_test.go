package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestPerMinute(t *testing.T) {
	if PerMinute(0) != rate.Inf {
		t.Error("Expected unlimited rate for zero budget")
	}
	if got := PerMinute(120); got != rate.Limit(2) {
		t.Errorf("Expected 2 req/s, got %v", got)
	}
}

func TestHostLimiterSeparatesHosts(t *testing.T) {
	hl := NewHostLimiter(1, 1)
	ctx := context.Background()

	if err := hl.WaitURL(ctx, "https://www.dice.com/jobs"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	// Other host has its own full bucket
	start := time.Now()
	if err := hl.WaitURL(ctx, "https://example.com/job"); err != nil {
		t.Fatalf("second host wait failed: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Expected second host not to be throttled")
	}

	// Same host is now throttled for about a minute
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := hl.WaitURL(shortCtx, "https://www.dice.com/job-detail/1"); err == nil {
		t.Error("Expected throttled wait to fail under a short deadline")
	}
}

func TestPacerSkipsDelayBeforeFirstFetch(t *testing.T) {
	p := NewPacer(time.Second, 0, 1)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx, "https://www.dice.com/job-detail/x"); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}

	if len(slept) != 2 {
		t.Fatalf("Expected 2 delays for 3 fetches, got %d", len(slept))
	}
	for _, d := range slept {
		if d != time.Second {
			t.Errorf("Expected 1s delay, got %v", d)
		}
	}
}

func TestPacerHonoursCancellation(t *testing.T) {
	p := NewPacer(time.Hour, 0, 1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := p.Wait(ctx, "https://www.dice.com/a"); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := p.Wait(ctx, "https://www.dice.com/b"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
