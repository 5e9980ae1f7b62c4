package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/tallyops/clickerd/internal/adapters/ble"
	"github.com/tallyops/clickerd/internal/domain/fusion"
	"github.com/tallyops/clickerd/internal/domain/model"
	"github.com/tallyops/clickerd/internal/domain/protocol"
	"github.com/tallyops/clickerd/pkg/logger"
	"github.com/tallyops/clickerd/pkg/metrics"
)

// UpdateHandler receives every accepted score update with the event
// that triggered it and the freshly fused score.
type UpdateHandler func(judge int, role string, evt protocol.Event, score fusion.Score)

// LinkStatusHandler receives per-role link status changes.
type LinkStatusHandler func(judge int, role string, status ble.Status)

// Referee fuses the clicks of one judge slot. It caches the latest
// cumulative counters per role (last write wins) and recomputes the
// fused score from scratch on every update, so a stale device can
// never leave a phantom contribution behind.
type Referee struct {
	index int
	name  string
	mode  fusion.Mode

	mu             sync.Mutex
	primaryCache   fusion.Counters
	secondaryCache fusion.Counters
	score          fusion.Score
	status         map[string]string

	primary   *ble.Session
	secondary *ble.Session

	onUpdate UpdateHandler
	onStatus LinkStatusHandler

	logger logger.Logger
}

// RefereeOption configures a Referee.
type RefereeOption func(*Referee)

// WithUpdateHandler wires the score update callback.
func WithUpdateHandler(fn UpdateHandler) RefereeOption {
	return func(r *Referee) {
		if r == nil || fn == nil {
			return
		}
		r.onUpdate = fn
	}
}

// WithLinkStatusHandler wires the link status callback.
func WithLinkStatusHandler(fn LinkStatusHandler) RefereeOption {
	return func(r *Referee) {
		if r == nil || fn == nil {
			return
		}
		r.onStatus = fn
	}
}

// WithRefereeLogger sets a custom logger.
func WithRefereeLogger(l logger.Logger) RefereeOption {
	return func(r *Referee) {
		if r == nil || l == nil {
			return
		}
		r.logger = l
	}
}

// NewReferee creates a judge slot. Device sessions attach via Bind.
func NewReferee(index int, name string, mode fusion.Mode, opts ...RefereeOption) *Referee {
	if name == "" {
		name = fmt.Sprintf("Referee %d", index)
	}

	secondaryStatus := "n/a"
	if mode == fusion.ModeDual {
		secondaryStatus = string(ble.StatusDisconnected)
	}

	r := &Referee{
		index: index,
		name:  name,
		mode:  mode,
		status: map[string]string{
			model.RolePrimary:   string(ble.StatusDisconnected),
			model.RoleSecondary: secondaryStatus,
		},
		logger: logger.Get().Named("referee"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Index returns the judge slot number.
func (r *Referee) Index() int { return r.index }

// Name returns the display name.
func (r *Referee) Name() string { return r.name }

// Mode returns the fusion mode.
func (r *Referee) Mode() fusion.Mode { return r.mode }

// Bind attaches the device sessions and wires their callbacks.
// A nil secondary is valid for SINGLE slots.
func (r *Referee) Bind(primary, secondary *ble.Session) {
	r.mu.Lock()
	r.primary = primary
	r.secondary = secondary
	r.mu.Unlock()

	if primary != nil {
		primary.Bind(
			func(evt protocol.Event) { r.handleData(model.RolePrimary, evt) },
			func(status ble.Status) { r.handleStatus(model.RolePrimary, status) },
		)
	}
	if secondary != nil {
		secondary.Bind(
			func(evt protocol.Event) { r.handleData(model.RoleSecondary, evt) },
			func(status ble.Status) { r.handleStatus(model.RoleSecondary, status) },
		)
	}
}

// Sessions returns the currently bound sessions; either may be nil.
func (r *Referee) Sessions() (primary, secondary *ble.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary, r.secondary
}

// Score returns the current fused score.
func (r *Referee) Score() fusion.Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score
}

// Status returns a copy of the per-role link status map.
func (r *Referee) Status() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := make(map[string]string, len(r.status))
	for k, v := range r.status {
		status[k] = v
	}
	return status
}

func (r *Referee) handleData(role string, evt protocol.Event) {
	r.mu.Lock()
	switch role {
	case model.RoleSecondary:
		r.secondaryCache = fusion.Counters{Plus: evt.TotalPlus, Minus: evt.TotalMinus}
	default:
		r.primaryCache = fusion.Counters{Plus: evt.TotalPlus, Minus: evt.TotalMinus}
	}
	r.score = fusion.Fuse(r.mode, r.primaryCache, r.secondaryCache)
	score := r.score
	onUpdate := r.onUpdate
	r.mu.Unlock()

	metrics.RecordFusionUpdate()
	if onUpdate != nil {
		onUpdate(r.index, role, evt, score)
	}
}

func (r *Referee) handleStatus(role string, status ble.Status) {
	r.mu.Lock()
	r.status[role] = string(status)
	onStatus := r.onStatus
	r.mu.Unlock()

	if onStatus != nil {
		onStatus(r.index, role, status)
	}
}

// Reset zeroes the slot. Device resets go out concurrently and
// best-effort; the caches zero unconditionally so the scoreboard is
// clean even if a device missed the command. The fresh zero score is
// broadcast by the caller, never persisted.
func (r *Referee) Reset(ctx context.Context) {
	r.mu.Lock()
	primary, secondary := r.primary, r.secondary
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range []*ble.Session{primary, secondary} {
		if sess == nil {
			continue
		}
		wg.Add(1)
		go func(s *ble.Session) {
			defer wg.Done()
			s.SendReset(ctx)
		}(sess)
	}
	wg.Wait()

	r.mu.Lock()
	r.primaryCache = fusion.Counters{}
	r.secondaryCache = fusion.Counters{}
	r.score = fusion.Fuse(r.mode, r.primaryCache, r.secondaryCache)
	r.mu.Unlock()

	r.logger.Info(ctx, "referee reset", logger.Int("judge", r.index))
}
