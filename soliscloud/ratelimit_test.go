package soliscloud

import (
	"context"
	"testing"
	"time"
)

func TestLimiterCeiling(t *testing.T) {
	limiter := NewLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("burst calls took %s, expected immediate", elapsed)
	}

	// The third call exceeds the window ceiling and must suspend, not
	// fail.
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("over-ceiling wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("third call completed in %s, expected it to wait for the window", elapsed)
	}
}

func TestLimiterCancelReleasesSlot(t *testing.T) {
	limiter := NewLimiter(1, 200*time.Millisecond)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected cancellation while waiting on the gate")
	}

	// The cancelled waiter must not leak its slot: a later call with a
	// generous deadline acquires within one window.
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := limiter.Wait(ctx2); err != nil {
		t.Fatalf("post-cancel wait: %v", err)
	}
}

func TestNopLimiter(t *testing.T) {
	if err := (NopLimiter{}).Wait(context.Background()); err != nil {
		t.Fatalf("nop wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (NopLimiter{}).Wait(ctx); err == nil {
		t.Fatal("nop limiter must still observe cancellation")
	}
}
