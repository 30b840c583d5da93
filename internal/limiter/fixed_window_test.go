package limiter

import (
	"errors"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
)

func newFixedWindow(t *testing.T, limit int, window time.Duration, vc *clock.VirtualClock) *FixedWindow {
	t.Helper()
	fw, err := NewFixedWindow(limit, window, WithClock(vc))
	if err != nil {
		t.Fatalf("NewFixedWindow() error = %v", err)
	}
	return fw
}

func TestNewFixedWindow_InvalidConfig(t *testing.T) {
	if _, err := NewFixedWindow(0, time.Minute); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestFixedWindow_ExhaustLimit(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := newFixedWindow(t, 3, time.Minute, vc)

	for i := 0; i < 3; i++ {
		d := fw.Admit()
		if !d.Allowed {
			t.Errorf("call %d should be allowed", i+1)
		}
		if d.Remaining != 2-i {
			t.Errorf("Remaining = %d, want %d", d.Remaining, 2-i)
		}
	}

	d := fw.Admit()
	if d.Allowed {
		t.Error("4th call should be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", d.Remaining)
	}
}

func TestFixedWindow_ResetsAtWindowBoundary(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := newFixedWindow(t, 3, time.Minute, vc)

	for i := 0; i < 3; i++ {
		fw.TryAcquire()
	}
	if fw.TryAcquire() {
		t.Fatal("should be denied")
	}

	vc.Advance(time.Minute)
	d := fw.Admit()
	if !d.Allowed {
		t.Error("should be allowed in new window")
	}
	if d.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", d.Remaining)
	}
}

func TestFixedWindow_MidWindowRequests(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := newFixedWindow(t, 5, time.Minute, vc)

	fw.TryAcquire()
	fw.TryAcquire()
	vc.Advance(30 * time.Second)
	fw.TryAcquire()
	fw.TryAcquire()
	fw.TryAcquire()

	if fw.TryAcquire() {
		t.Error("should be denied: same window, 5 used")
	}
}

func TestFixedWindow_RetryAtIsNextWindow(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := newFixedWindow(t, 1, time.Minute, vc)

	fw.TryAcquire()
	vc.Advance(15 * time.Second)
	d := fw.Admit()
	if d.Allowed {
		t.Fatal("should be denied")
	}

	nextWindow := epoch.Add(time.Minute)
	if !d.RetryAt.Equal(nextWindow) {
		t.Errorf("RetryAt = %v, want %v", d.RetryAt, nextWindow)
	}
	if got := fw.TimeUntilAvailable(); got != 45*time.Second {
		t.Errorf("TimeUntilAvailable() = %v, want 45s", got)
	}
}

func TestFixedWindow_Wait(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := newFixedWindow(t, 1, time.Second, vc)
	fw.TryAcquire()

	done := make(chan error, 1)
	go func() { done <- fw.Wait(ctx) }()

	if err := driveClock(t, vc, DefaultWindowPoll, done); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestFixedWindow_ImplementsAdmitter(t *testing.T) {
	var _ Admitter = &FixedWindow{}
}
