package risk

import "time"

// OrderFrequencyTracker is an immutable sliding window of order timestamps.
// Every operation returns a new tracker; a nil receiver behaves as an empty
// one, so callers never need to special-case the zero state.
type OrderFrequencyTracker struct {
	timestamps []time.Time
}

// NewOrderFrequencyTracker returns an empty tracker.
func NewOrderFrequencyTracker() *OrderFrequencyTracker {
	return &OrderFrequencyTracker{}
}

// AddOrder returns a new tracker with ts appended. Timestamps are not
// deduplicated or sort-checked; callers supply monotonically-reasonable
// times.
func (t *OrderFrequencyTracker) AddOrder(ts time.Time) *OrderFrequencyTracker {
	var existing []time.Time
	if t != nil {
		existing = t.timestamps
	}
	next := make([]time.Time, 0, len(existing)+1)
	next = append(next, existing...)
	next = append(next, ts)
	return &OrderFrequencyTracker{timestamps: next}
}

// Cleanup returns a tracker retaining only timestamps at or after cutoff.
func (t *OrderFrequencyTracker) Cleanup(cutoff time.Time) *OrderFrequencyTracker {
	if t == nil {
		return NewOrderFrequencyTracker()
	}
	kept := make([]time.Time, 0, len(t.timestamps))
	for _, ts := range t.timestamps {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	return &OrderFrequencyTracker{timestamps: kept}
}

// CountOrdersInWindow counts timestamps within [from, to], inclusive at both
// ends.
func (t *OrderFrequencyTracker) CountOrdersInWindow(from, to time.Time) int {
	if t == nil {
		return 0
	}
	count := 0
	for _, ts := range t.timestamps {
		if !ts.Before(from) && !ts.After(to) {
			count++
		}
	}
	return count
}

// WouldExceedLimit reports whether the window [now-window, now] already holds
// limit or more orders. It is called before recording the new order, so a
// saturated window means the next order would exceed the limit.
func (t *OrderFrequencyTracker) WouldExceedLimit(now time.Time, window time.Duration, limit int) bool {
	if limit <= 0 {
		return false
	}
	return t.CountOrdersInWindow(now.Add(-window), now) >= limit
}

// Len returns the number of retained timestamps.
func (t *OrderFrequencyTracker) Len() int {
	if t == nil {
		return 0
	}
	return len(t.timestamps)
}
