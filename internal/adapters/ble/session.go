package ble

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tallyops/clickerd/internal/domain/protocol"
	"github.com/tallyops/clickerd/pkg/logger"
	"github.com/tallyops/clickerd/pkg/metrics"
)

// Default session timing constants.
const (
	// defaultSettleDelay gives the platform time to populate its
	// service cache; discovery immediately after link establishment is
	// not reliable everywhere.
	defaultSettleDelay = 1500 * time.Millisecond

	// defaultHeartbeatInterval is the cadence of the liveness probe.
	defaultHeartbeatInterval = 3 * time.Second

	// defaultReconnectBackoff is the wait between reconnect attempts.
	defaultReconnectBackoff = 3 * time.Second
)

// State is the session lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
)

// Status is the externally visible status signal emitted on
// transitions. Error is transient: it announces that recovery is
// starting, never a resting state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// DataHandler receives every successfully decoded score notification.
type DataHandler func(evt protocol.Event)

// StatusHandler receives status transitions.
type StatusHandler func(status Status)

// Session owns one wireless link to a scoring device. All failure
// paths funnel into exactly two outcomes: the auto-reconnect loop, or
// a clean disconnected status. Teardown is cooperative: the
// intentional-disconnect flag flips first and every loop checks it
// before and after any wait.
type Session struct {
	addr   string
	name   string
	dialer Dialer

	mu            sync.Mutex
	transport     Transport
	state         State
	reconnecting  bool
	heartbeatStop chan struct{}
	abortWait     chan struct{}
	lastPlus      int32
	lastMinus     int32
	onData        DataHandler
	onStatus      StatusHandler

	intentional atomic.Bool

	settleDelay       time.Duration
	heartbeatInterval time.Duration
	reconnectBackoff  time.Duration

	logger logger.Logger
}

// NewSession creates a session for a device address. The link is not
// opened until Connect.
func NewSession(dialer Dialer, addr string, opts ...Option) *Session {
	s := &Session{
		addr:              addr,
		name:              addr,
		dialer:            dialer,
		state:             StateIdle,
		settleDelay:       defaultSettleDelay,
		heartbeatInterval: defaultHeartbeatInterval,
		reconnectBackoff:  defaultReconnectBackoff,
		logger:            logger.Get().Named("session"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Bind wires the owner's data/status handlers. Handlers may be invoked
// from session-owned goroutines; owners serialize internally.
func (s *Session) Bind(onData DataHandler, onStatus StatusHandler) {
	s.mu.Lock()
	s.onData = onData
	s.onStatus = onStatus
	s.mu.Unlock()
}

// Addr returns the device address the session is bound to.
func (s *Session) Addr() string { return s.addr }

// Name returns the operator-facing device name.
func (s *Session) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastCounters returns the cumulative (plus, minus) pair from the most
// recent notification.
func (s *Session) LastCounters() (plus, minus int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPlus, s.lastMinus
}

// Connect opens the link. It clears the intentional-disconnect flag,
// so a session torn down by the operator can be brought back.
func (s *Session) Connect(ctx context.Context) error {
	s.intentional.Store(false)
	s.mu.Lock()
	if s.abortWait == nil {
		s.abortWait = make(chan struct{})
	}
	s.mu.Unlock()
	return s.doConnect(ctx)
}

// doConnect runs one full connection attempt: dial, settle, prime the
// discovery cache, subscribe, start the heartbeat. Any failure tears
// the link down defensively and hands off to the reconnect loop unless
// disconnect became intentional in the meantime.
func (s *Session) doConnect(ctx context.Context) error {
	s.setState(StateConnecting)
	s.emitStatus(StatusConnecting)
	s.logger.Info(ctx, "connecting", logger.String("device", s.name), logger.String("addr", s.addr))

	t, err := s.dialer.Dial(ctx, s.addr)
	if err != nil {
		return s.connectFailed(ctx, "dial", err)
	}
	t.OnDisconnect(s.handleUnsolicitedDisconnect)

	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()

	if err := t.Connect(ctx); err != nil {
		return s.connectFailed(ctx, "connect", err)
	}

	time.Sleep(s.settleDelay)

	// The link may have been torn down while settling. Abort without
	// touching a cleared handle; whoever cleared it owns recovery.
	if s.currentTransport() == nil {
		s.logger.Info(ctx, "connection aborted during setup", logger.String("device", s.name))
		return ErrConnectionAborted
	}

	// Best-effort read to force discovery-cache population. The value
	// and any failure are irrelevant.
	if _, err := t.ReadCharacteristic(ctx, protocol.DeviceNameUUID); err != nil {
		s.logger.Debug(ctx, "discovery prime read failed", logger.Error(err))
	}

	if s.currentTransport() == nil {
		return ErrConnectionAborted
	}

	if err := t.SubscribeNotify(ctx, protocol.ScoringCharacteristicUUID, s.handleNotification); err != nil {
		return s.connectFailed(ctx, "subscribe", err)
	}

	s.setState(StateConnected)
	s.emitStatus(StatusConnected)
	s.logger.Info(ctx, "connected", logger.String("device", s.name))
	s.startHeartbeat()
	return nil
}

// connectFailed funnels every connect-path failure into teardown plus
// either reconnect or a clean disconnected status.
func (s *Session) connectFailed(ctx context.Context, stage string, err error) error {
	metrics.RecordLinkFailure(stage)
	s.logger.Warn(ctx, "connect failed",
		logger.String("device", s.name),
		logger.String("stage", stage),
		logger.Error(err),
	)

	s.teardownTransport(ctx)

	if s.intentional.Load() {
		s.setState(StateDisconnected)
		s.emitStatus(StatusDisconnected)
	} else {
		s.triggerReconnect()
	}
	return fmt.Errorf("%w: %s: %w", ErrLinkFailure, stage, err)
}

// Disconnect is the operator-requested teardown. The intentional flag
// flips before anything else so no loop starts a new attempt after
// this point. Idempotent and safe with no active link.
func (s *Session) Disconnect(ctx context.Context) {
	s.intentional.Store(true)

	s.mu.Lock()
	if s.abortWait != nil {
		close(s.abortWait)
		s.abortWait = nil
	}
	s.mu.Unlock()

	s.stopHeartbeat()
	s.teardownTransport(ctx)
	s.setState(StateDisconnected)
	s.emitStatus(StatusDisconnected)
}

// teardownTransport clears the link handle and disconnects defensively
// so no stale reference survives. Errors during teardown are logged
// and swallowed.
func (s *Session) teardownTransport(ctx context.Context) {
	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.mu.Unlock()

	if t == nil {
		return
	}
	if t.IsConnected() {
		s.logger.Info(ctx, "terminating connection", logger.String("device", s.name))
		if err := t.Disconnect(ctx); err != nil {
			s.logger.Debug(ctx, "teardown disconnect failed", logger.Error(err))
		}
	}
}

func (s *Session) currentTransport() Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

// handleUnsolicitedDisconnect runs when the link drops without a local
// request.
func (s *Session) handleUnsolicitedDisconnect(err error) {
	ctx := context.Background()
	s.logger.Warn(ctx, "link dropped", logger.String("device", s.name), logger.Error(err))

	s.stopHeartbeat()
	s.mu.Lock()
	s.transport = nil
	s.mu.Unlock()

	if s.intentional.Load() {
		s.setState(StateDisconnected)
		s.emitStatus(StatusDisconnected)
		return
	}
	s.triggerReconnect()
}

// triggerReconnect starts the reconnect loop at most once. Concurrent
// failure signals (heartbeat death plus a disconnect callback) collapse
// into a single loop via the reconnecting flag.
func (s *Session) triggerReconnect() {
	s.mu.Lock()
	if s.reconnecting {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	s.mu.Unlock()

	s.setState(StateReconnecting)
	s.emitStatus(StatusError)
	s.logger.Warn(context.Background(), "connection lost, auto-reconnect engaged", logger.String("device", s.name))

	go s.reconnectLoop()
}

func (s *Session) reconnectLoop() {
	defer func() {
		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	for !s.intentional.Load() {
		s.logger.Info(ctx, "retrying connection",
			logger.String("device", s.name),
			logger.Duration("backoff", s.reconnectBackoff),
		)
		if !s.waitBackoff() {
			return
		}
		if s.intentional.Load() {
			return
		}

		metrics.RecordReconnectAttempt()
		if err := s.doConnect(ctx); err == nil {
			s.logger.Info(ctx, "reconnected", logger.String("device", s.name))
			return
		}
	}
}

// waitBackoff sleeps the backoff interval. Returns false if an
// intentional disconnect cut the wait short.
func (s *Session) waitBackoff() bool {
	s.mu.Lock()
	abort := s.abortWait
	s.mu.Unlock()
	if abort == nil {
		return false
	}

	timer := time.NewTimer(s.reconnectBackoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-abort:
		return false
	}
}

// startHeartbeat (re)starts the liveness probe loop.
func (s *Session) startHeartbeat() {
	s.mu.Lock()
	if s.heartbeatStop != nil {
		close(s.heartbeatStop)
	}
	stop := make(chan struct{})
	s.heartbeatStop = stop
	s.mu.Unlock()

	go s.heartbeatLoop(stop)
}

func (s *Session) stopHeartbeat() {
	s.mu.Lock()
	if s.heartbeatStop != nil {
		close(s.heartbeatStop)
		s.heartbeatStop = nil
	}
	s.mu.Unlock()
}

// heartbeatLoop reads the standard device-name characteristic on a
// fixed cadence. The read failing is itself the liveness signal; there
// is no separate watchdog timer.
func (s *Session) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t := s.currentTransport()
			if t == nil {
				return
			}
			if _, err := t.ReadCharacteristic(ctx, protocol.DeviceNameUUID); err != nil {
				metrics.RecordHeartbeatFailure()
				s.logger.Warn(ctx, "heartbeat failed, link presumed dead",
					logger.String("device", s.name),
					logger.Error(err),
				)
				s.teardownTransport(ctx)
				if !s.intentional.Load() {
					s.triggerReconnect()
				}
				return
			}
		}
	}
}

// handleNotification decodes one notification payload and hands it to
// the owner. A malformed packet must never take the session down.
func (s *Session) handleNotification(payload []byte) {
	evt, err := protocol.Decode(payload)
	if err != nil {
		metrics.RecordDecodeError()
		s.logger.Debug(context.Background(), "dropping malformed notification",
			logger.String("device", s.name),
			logger.Int("bytes", len(payload)),
			logger.Error(err),
		)
		return
	}
	metrics.RecordNotificationDecoded()

	s.mu.Lock()
	s.lastPlus = evt.TotalPlus
	s.lastMinus = evt.TotalMinus
	onData := s.onData
	s.mu.Unlock()

	if onData != nil {
		onData(evt)
	}
}

// SendReset writes the single-byte reset command, best-effort. A reset
// racing a reconnect is expected and harmless to drop, so failures are
// swallowed; "not connected" and "write rejected" are both no-ops from
// the caller's perspective.
func (s *Session) SendReset(ctx context.Context) {
	t := s.currentTransport()
	if t == nil {
		return
	}
	if err := t.WriteCharacteristic(ctx, protocol.ScoringCharacteristicUUID, protocol.ResetCommand, true); err != nil {
		s.logger.Debug(ctx, "reset write failed", logger.String("device", s.name), logger.Error(err))
		return
	}
	metrics.RecordResetIssued()
}

// setState records the lifecycle transition and keeps the connected
// sessions gauge in step.
func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	if prev != StateConnected && next == StateConnected {
		metrics.IncSessionsConnected()
	}
	if prev == StateConnected && next != StateConnected {
		metrics.DecSessionsConnected()
	}
}

func (s *Session) emitStatus(status Status) {
	s.mu.Lock()
	onStatus := s.onStatus
	s.mu.Unlock()

	if onStatus != nil {
		onStatus(status)
	}
}
