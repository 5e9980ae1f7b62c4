// Package subtitle turns a persisted score stream into caption tracks
// for post-match video overlay.
//
// Input is the ordered sequence of cumulative score snapshots recorded
// for one (contestant, judge) stream; output is a non-overlapping
// sequence of caption entries. The interesting part is burst
// coalescing: a cluster of rapid clicks is one semantic action and must
// become one caption, not one caption per raw packet.
package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// Defaults for caption timing.
const (
	// defaultBurstThreshold is the maximum gap between two deltas that
	// still belong to the same burst.
	defaultBurstThreshold = 400 * time.Millisecond

	// defaultHoldDuration is how long a caption stays on screen after
	// its last contributing event.
	defaultHoldDuration = time.Second
)

// Mode selects the caption generation strategy.
type Mode string

const (
	// ModeRealtime emits one caption per burst of score deltas, with
	// the accumulated signed delta as text (e.g. "+3 -1").
	ModeRealtime Mode = "REALTIME"

	// ModeTotal emits a caption whenever the running total changes.
	ModeTotal Mode = "TOTAL"

	// ModeSplit emits a caption whenever the (plus, minus) pair
	// changes, rendered as "+P / -M".
	ModeSplit Mode = "SPLIT"
)

// ParseMode converts a request string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeRealtime:
		return ModeRealtime, nil
	case ModeTotal:
		return ModeTotal, nil
	case ModeSplit:
		return ModeSplit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Snapshot is one persisted score record: cumulative counters plus the
// wall-clock time the record was written. Streams handed to the merger
// must be in ascending time order.
type Snapshot struct {
	At    time.Time
	Plus  int32
	Minus int32
	Total int32
}

// Entry is one caption, timed relative to the stream's first event.
type Entry struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Merger converts snapshot streams into caption entries.
type Merger struct {
	burstThreshold time.Duration
	holdDuration   time.Duration
}

// NewMerger creates a merger with configuration options.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		burstThreshold: defaultBurstThreshold,
		holdDuration:   defaultHoldDuration,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Merge produces caption entries for the given mode. An empty stream
// yields no entries. Unknown modes return ErrUnknownMode.
func (m *Merger) Merge(mode Mode, events []Snapshot) ([]Entry, error) {
	if len(events) == 0 {
		return nil, nil
	}
	switch mode {
	case ModeRealtime:
		return m.mergeBursts(events), nil
	case ModeTotal, ModeSplit:
		return m.mergeLevels(mode, events), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// burst is an open coalescing window while scanning the delta stream.
type burst struct {
	start time.Time
	last  time.Time
	plus  int32
	minus int32
}

// mergeBursts rebuilds discrete hit events from the cumulative counter
// stream and coalesces rapid clusters into single captions.
func (m *Merger) mergeBursts(events []Snapshot) []Entry {
	origin := events[0].At

	var entries []Entry
	var open *burst
	prev := Snapshot{}

	for _, e := range events {
		deltaPlus := e.Plus - prev.Plus
		deltaMinus := e.Minus - prev.Minus
		prev = e

		if deltaPlus == 0 && deltaMinus == 0 {
			continue
		}

		if open != nil && e.At.Sub(open.last) < m.burstThreshold {
			open.plus += deltaPlus
			open.minus += deltaMinus
			open.last = e.At
			continue
		}

		if open != nil {
			entries = m.closeBurst(entries, open, origin)
		}
		open = &burst{start: e.At, last: e.At, plus: deltaPlus, minus: deltaMinus}
	}

	if open != nil {
		entries = m.closeBurst(entries, open, origin)
	}
	return entries
}

// closeBurst emits the burst as a caption. Bursts whose accumulated
// deltas cancelled out to nothing printable are dropped.
func (m *Merger) closeBurst(entries []Entry, b *burst, origin time.Time) []Entry {
	text := burstText(b.plus, b.minus)
	if text == "" {
		return entries
	}
	return append(entries, Entry{
		Start: b.start.Sub(origin),
		End:   b.last.Add(m.holdDuration).Sub(origin),
		Text:  text,
	})
}

// burstText renders the accumulated signed delta, omitting any zero or
// negative component ("+3 -1", "+3", "-1").
func burstText(plus, minus int32) string {
	var parts []string
	if plus > 0 {
		parts = append(parts, fmt.Sprintf("+%d", plus))
	}
	if minus > 0 {
		parts = append(parts, fmt.Sprintf("-%d", minus))
	}
	return strings.Join(parts, " ")
}

// mergeLevels emits one caption per displayed-value change with a fixed
// hold window. If the next change arrives before the window elapses the
// current caption is truncated at the change's start so captions never
// silently overlap.
func (m *Merger) mergeLevels(mode Mode, events []Snapshot) []Entry {
	origin := events[0].At

	var entries []Entry
	var prevValue string
	first := true

	for _, e := range events {
		var value string
		if mode == ModeTotal {
			value = fmt.Sprintf("%d", e.Total)
		} else {
			value = fmt.Sprintf("+%d / -%d", e.Plus, e.Minus)
		}

		if !first && value == prevValue {
			continue
		}
		first = false
		prevValue = value

		start := e.At.Sub(origin)
		if n := len(entries); n > 0 && start-entries[n-1].Start < m.holdDuration {
			entries[n-1].End = start
		}
		entries = append(entries, Entry{
			Start: start,
			End:   start + m.holdDuration,
			Text:  value,
		})
	}
	return entries
}
