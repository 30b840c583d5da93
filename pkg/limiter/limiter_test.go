package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/pkg/clock"
)

func TestTokenBucketPublicAPI(t *testing.T) {
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tb, err := NewTokenBucket(2, 1, WithClock(vc))
	if err != nil {
		t.Fatalf("NewTokenBucket() error = %v", err)
	}

	if !tb.TryAcquire() || !tb.TryAcquire() {
		t.Fatal("first two calls should be admitted")
	}
	if tb.TryAcquire() {
		t.Fatal("third call should be denied")
	}
	vc.Advance(time.Second)
	if !tb.TryAcquire() {
		t.Fatal("one token should have refilled")
	}
}

func TestGroupPublicAPI(t *testing.T) {
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	g, err := NewGroup(Config{Algorithm: AlgorithmSlidingWindow, Rate: 1, Window: time.Minute}, WithClock(vc))
	if err != nil {
		t.Fatalf("NewGroup() error = %v", err)
	}

	ctx := context.Background()
	if !g.Allow(ctx, "user1").Allowed || g.Allow(ctx, "user1").Allowed {
		t.Fatal("user1 should get exactly one call")
	}
	if !g.Allow(ctx, "user2").Allowed {
		t.Fatal("user2 should be independent")
	}
}

func TestInvalidConfigIsExported(t *testing.T) {
	if _, err := NewFixedWindow(0, time.Second); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}
