package quicsession

import (
	"time"

	"github.com/hashicorp/golang-lru/arc/v2"
)

// DefaultReplayFilterEntries is the default bound on tracked nonces.
const DefaultReplayFilterEntries = 100000

// DefaultReplayWindow is the default sliding window within which a
// repeated nonce is rejected as a replay.
const DefaultReplayWindow = 10 * time.Second

// ReplayFilter is a bounded, time-windowed set of 0-RTT nonces, guarding
// against replayed early-data attempts per spec.md §4.8. Capacity
// bounding is delegated to the same ARC cache the ticket store uses;
// the time-window check is applied on top of it.
type ReplayFilter struct {
	seen   *arc.ARCCache[string, time.Time]
	window time.Duration
}

// NewReplayFilter returns a ReplayFilter bounded to maxEntries nonces
// within window.
func NewReplayFilter(maxEntries int, window time.Duration) (*ReplayFilter, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultReplayFilterEntries
	}
	if window <= 0 {
		window = DefaultReplayWindow
	}
	seen, err := arc.NewARC[string, time.Time](maxEntries)
	if err != nil {
		return nil, err
	}
	return &ReplayFilter{seen: seen, window: window}, nil
}

// Check tests nonce against the filter at time now. It returns true
// (accept) and records nonce if the nonce hasn't been seen within the
// window, or false (reject) if it's a replay within the window. An
// entry older than the window is treated as if it were never seen.
func (f *ReplayFilter) Check(nonce string, now time.Time) bool {
	if prev, ok := f.seen.Get(nonce); ok {
		if now.Sub(prev) <= f.window {
			return false
		}
	}
	f.seen.Add(nonce, now)
	return true
}

// Len returns the number of nonces currently tracked.
func (f *ReplayFilter) Len() int {
	return f.seen.Len()
}
