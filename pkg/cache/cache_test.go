package cache

import (
	"context"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/pkg/clock"
)

func TestCachePublicAPI(t *testing.T) {
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c, err := New[int](2, time.Minute, WithClock(vc))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	calls := 0
	double := Wrap(c, func(_ context.Context, args []any, _ map[string]any) (int, error) {
		calls++
		return args[0].(int) * 2, nil
	}, nil)

	for range 3 {
		v, err := double(context.Background(), []any{21}, nil)
		if err != nil || v != 42 {
			t.Fatalf("double(21) = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	vc.Advance(time.Minute)
	if _, ok := c.Get(mustKey(t, 21)); ok {
		t.Fatal("entry should have expired")
	}
}

func mustKey(t *testing.T, arg any) string {
	t.Helper()
	k, err := Key([]any{arg}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return k
}
