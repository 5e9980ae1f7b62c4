// Package fusion computes the single authoritative score shown to the
// audience from the cumulative counters of one or two devices bound to
// a judge slot.
//
// The fused score is always a pure function of the latest per-role
// (plus, minus) counter pair and the fusion mode. There is no hidden
// accumulation here: devices accumulate on their side and re-deliver
// full counters on every notification, so a recomputation from caches
// is always authoritative.
package fusion

import (
	"fmt"
	"strings"
)

// Mode selects how per-role counters combine into one score.
type Mode string

const (
	// ModeSingle fuses one device the traditional way: total is the
	// device's plus counter minus its minus counter.
	ModeSingle Mode = "SINGLE"

	// ModeDual fuses two devices where the secondary device's plus
	// counter is semantically a deduction against the primary's total.
	ModeDual Mode = "DUAL"
)

// ParseMode converts a wire/config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeSingle:
		return ModeSingle, nil
	case ModeDual:
		return ModeDual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Counters is the cumulative (plus, minus) pair last reported by one
// device. Zero value means "no data yet", which fuses as zero.
type Counters struct {
	Plus  int32
	Minus int32
}

// Score is the fused result displayed and persisted for a judge slot.
type Score struct {
	Total int32 `json:"total"`
	Plus  int32 `json:"plus"`
	Minus int32 `json:"minus"`
}

// IsZero reports whether every component of the score is zero.
func (s Score) IsZero() bool {
	return s.Total == 0 && s.Plus == 0 && s.Minus == 0
}

// Fuse combines the cached per-role counters under the given mode.
//
// In ModeDual the secondary's plus counter subtracts from the total
// while the secondary's minus counter only adds to the displayed minus
// and does not subtract from total a second time. That asymmetry is the
// observed device contract in the field; it is intentionally kept
// as-is rather than re-derived.
func Fuse(mode Mode, pri, sec Counters) Score {
	if mode == ModeDual {
		return Score{
			Total: pri.Plus - sec.Plus,
			Plus:  pri.Plus,
			Minus: pri.Minus + sec.Minus,
		}
	}
	return Score{
		Total: pri.Plus - pri.Minus,
		Plus:  pri.Plus,
		Minus: pri.Minus,
	}
}
