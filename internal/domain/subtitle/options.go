package subtitle

import "time"

// Option applies a configuration option to the Merger.
type Option func(*Merger)

// WithBurstThreshold sets the maximum gap between two deltas that still
// coalesce into the same burst.
func WithBurstThreshold(d time.Duration) Option {
	return func(m *Merger) {
		if d > 0 {
			m.burstThreshold = d
		}
	}
}

// WithHoldDuration sets how long a caption stays on screen after its
// last contributing event.
func WithHoldDuration(d time.Duration) Option {
	return func(m *Merger) {
		if d > 0 {
			m.holdDuration = d
		}
	}
}
