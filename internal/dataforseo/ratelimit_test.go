package dataforseo

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiter_RejectsZero(t *testing.T) {
	if _, err := NewRateLimiter(0); err == nil {
		t.Error("NewRateLimiter(0) should fail")
	}
	if _, err := NewRateLimiter(-5); err == nil {
		t.Error("NewRateLimiter(-5) should fail")
	}
}

func TestRateLimiter_AvailableSlots(t *testing.T) {
	rl, err := NewRateLimiter(3)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}

	if got := rl.AvailableSlots(); got != 3 {
		t.Errorf("AvailableSlots() = %d, want 3", got)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.WaitForSlot(ctx); err != nil {
			t.Fatalf("WaitForSlot() error = %v", err)
		}
	}

	if got := rl.AvailableSlots(); got != 0 {
		t.Errorf("AvailableSlots() after exhaustion = %d, want 0", got)
	}
}

func TestRateLimiter_WaitsForWindow(t *testing.T) {
	rl, err := NewRateLimiter(2)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}
	rl.window = 100 * time.Millisecond

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := rl.WaitForSlot(ctx); err != nil {
			t.Fatalf("WaitForSlot() error = %v", err)
		}
	}

	// Third grant must wait until the oldest stamp leaves the window.
	if err := rl.WaitForSlot(ctx); err != nil {
		t.Fatalf("WaitForSlot() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("third WaitForSlot() returned after %v, want >= ~100ms", elapsed)
	}
}

func TestRateLimiter_WaitCanceled(t *testing.T) {
	rl, err := NewRateLimiter(1)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}

	ctx := context.Background()
	if err := rl.WaitForSlot(ctx); err != nil {
		t.Fatalf("WaitForSlot() error = %v", err)
	}

	canceled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := rl.WaitForSlot(canceled); err == nil {
		t.Error("WaitForSlot() with exhausted window and canceled context should fail")
	}
}

func TestRateLimiter_PrunesOldStamps(t *testing.T) {
	rl, err := NewRateLimiter(2)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}

	base := time.Now()
	now := base
	rl.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := rl.WaitForSlot(ctx); err != nil {
			t.Fatalf("WaitForSlot() error = %v", err)
		}
	}
	if got := rl.AvailableSlots(); got != 0 {
		t.Fatalf("AvailableSlots() = %d, want 0", got)
	}

	now = base.Add(61 * time.Second)
	if got := rl.AvailableSlots(); got != 2 {
		t.Errorf("AvailableSlots() after window = %d, want 2", got)
	}
}
