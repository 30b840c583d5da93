package limiter

import "time"

// history is the timestamp log shared by the sliding window variants.
// It holds no lock of its own; callers serialize access.
type history struct {
	max    int
	window time.Duration
	stamps []time.Time // ascending
}

// prune drops every stamp at least one window old.
func (h *history) prune(now time.Time) {
	i := 0
	for i < len(h.stamps) && now.Sub(h.stamps[i]) >= h.window {
		i++
	}
	if i > 0 {
		n := copy(h.stamps, h.stamps[i:])
		clear(h.stamps[n:])
		h.stamps = h.stamps[:n]
	}
}

// admit prunes, then records now if the window has room.
// A rejected attempt is not recorded.
func (h *history) admit(now time.Time) Decision {
	h.prune(now)
	count := len(h.stamps)

	resetAt := now.Add(h.window)
	if count > 0 {
		resetAt = h.stamps[0].Add(h.window)
	}

	if count < h.max {
		h.stamps = append(h.stamps, now)
		return Decision{
			Allowed:   true,
			Remaining: h.max - count - 1,
			Limit:     h.max,
			ResetAt:   resetAt,
		}
	}

	return Decision{
		Allowed:   false,
		Remaining: 0,
		Limit:     h.max,
		ResetAt:   resetAt,
		RetryAt:   h.stamps[0].Add(h.window),
	}
}

// untilAvailable is zero under capacity, otherwise the time until the oldest
// stamp leaves the window.
func (h *history) untilAvailable(now time.Time) time.Duration {
	h.prune(now)
	if len(h.stamps) < h.max {
		return 0
	}
	wait := h.window - now.Sub(h.stamps[0])
	if wait < 0 {
		return 0
	}
	return wait
}

func (h *history) len() int { return len(h.stamps) }
