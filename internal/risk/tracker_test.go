package risk

import (
	"testing"
	"time"
)

func TestTrackerWouldExceedLimit(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		offsets []time.Duration // subtracted from now
		window  time.Duration
		limit   int
		want    bool
	}{
		{
			name:    "five orders in window at limit five",
			offsets: []time.Duration{50 * time.Second, 40 * time.Second, 30 * time.Second, 20 * time.Second, 10 * time.Second},
			window:  time.Minute,
			limit:   5,
			want:    true,
		},
		{
			name:    "two orders in window under limit five",
			offsets: []time.Duration{50 * time.Second, 40 * time.Second},
			window:  time.Minute,
			limit:   5,
			want:    false,
		},
		{
			name:    "old orders outside window do not count",
			offsets: []time.Duration{5 * time.Minute, 4 * time.Minute, 10 * time.Second},
			window:  time.Minute,
			limit:   2,
			want:    false,
		},
		{
			name:    "zero limit is permissive",
			offsets: []time.Duration{10 * time.Second},
			window:  time.Minute,
			limit:   0,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewOrderFrequencyTracker()
			for _, off := range tt.offsets {
				tracker = tracker.AddOrder(now.Add(-off))
			}
			if got := tracker.WouldExceedLimit(now, tt.window, tt.limit); got != tt.want {
				t.Fatalf("WouldExceedLimit=%v, expected %v", got, tt.want)
			}
		})
	}
}

func TestTrackerCountWindowInclusive(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tracker := NewOrderFrequencyTracker().
		AddOrder(now.Add(-time.Minute)). // exactly at from
		AddOrder(now.Add(-30 * time.Second)).
		AddOrder(now) // exactly at to

	if got := tracker.CountOrdersInWindow(now.Add(-time.Minute), now); got != 3 {
		t.Fatalf("CountOrdersInWindow=%d, expected 3 (boundaries inclusive)", got)
	}
}

func TestTrackerCleanupInvariant(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tracker := NewOrderFrequencyTracker()
	for i := 0; i < 10; i++ {
		tracker = tracker.AddOrder(now.Add(-time.Duration(i) * time.Minute))
	}

	cutoff := now.Add(-5 * time.Minute)
	cleaned := tracker.Cleanup(cutoff)

	// Nothing strictly before the cutoff survives.
	if got := cleaned.CountOrdersInWindow(time.Time{}, cutoff.Add(-time.Nanosecond)); got != 0 {
		t.Fatalf("found %d timestamps before cutoff after Cleanup", got)
	}
	if got := cleaned.Len(); got != 6 {
		t.Fatalf("Len=%d after cleanup, expected 6", got)
	}
	// Original tracker is untouched: operations are copy-on-write.
	if got := tracker.Len(); got != 10 {
		t.Fatalf("Len=%d on original tracker, expected 10", got)
	}
}

func TestTrackerCopyOnWrite(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	empty := NewOrderFrequencyTracker()
	one := empty.AddOrder(now)
	two := one.AddOrder(now.Add(time.Second))

	if empty.Len() != 0 || one.Len() != 1 || two.Len() != 2 {
		t.Fatalf("expected distinct trackers of len 0/1/2, got %d/%d/%d",
			empty.Len(), one.Len(), two.Len())
	}
}

func TestTrackerNilReceiver(t *testing.T) {
	var tracker *OrderFrequencyTracker

	if tracker.Len() != 0 {
		t.Fatal("nil tracker should be empty")
	}
	if tracker.WouldExceedLimit(time.Now(), time.Minute, 1) {
		t.Fatal("nil tracker should be permissive")
	}
	if got := tracker.AddOrder(time.Now()).Len(); got != 1 {
		t.Fatalf("AddOrder on nil tracker: Len=%d, expected 1", got)
	}
	if got := tracker.Cleanup(time.Now()).Len(); got != 0 {
		t.Fatalf("Cleanup on nil tracker: Len=%d, expected 0", got)
	}
}
