// Package service provides the core scoring service that implements
// the dependencies required by the HTTP API: device setup, score
// fusion, persistence and live broadcast.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tallyops/clickerd/internal/adapters/ble"
	"github.com/tallyops/clickerd/internal/adapters/hub"
	eventqueue "github.com/tallyops/clickerd/internal/adapters/mq/queue"
	logwriter "github.com/tallyops/clickerd/internal/adapters/mq/worker"
	"github.com/tallyops/clickerd/internal/adapters/repository"
	"github.com/tallyops/clickerd/internal/domain/fusion"
	"github.com/tallyops/clickerd/internal/domain/model"
	"github.com/tallyops/clickerd/internal/domain/protocol"
	"github.com/tallyops/clickerd/pkg/logger"
)

// Match modes. FREE filters zero scores out of the log; TOURNAMENT
// keeps them so an entrant with no points still leaves a record.
const (
	MatchModeFree       = "FREE"
	MatchModeTournament = "TOURNAMENT"
)

// PlaceholderContestant is the frontend's "nobody selected" marker.
// Updates under it are broadcast but never persisted.
const PlaceholderContestant = "Unknown_Player"

// MatchContext is the live (group, contestant) selection.
type MatchContext struct {
	Group      string `json:"group"`
	Contestant string `json:"contestant"`
	Mode       string `json:"mode"`
}

// JudgeSetup describes one judge slot of a setup request.
type JudgeSetup struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Mode      string `json:"mode"`
	Primary   string `json:"pri_addr"`
	Secondary string `json:"sec_addr,omitempty"`
}

// RefereePayload is the broadcast shape of one judge slot.
type RefereePayload struct {
	Index  int               `json:"index"`
	Name   string            `json:"name"`
	Score  fusion.Score      `json:"score"`
	Status map[string]string `json:"status"`
}

// Stats is the operational snapshot served by GET /stats.
type Stats struct {
	Referees       int          `json:"referees"`
	HubListeners   int          `json:"hub_listeners"`
	AppendQueueLen int          `json:"append_queue_len"`
	Project        string       `json:"project"`
	Match          MatchContext `json:"match"`
}

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  *repository.Store
	queue  *eventqueue.InMemoryQueue
	writer *logwriter.Writer
	hub    *hub.Hub
	dialer ble.Dialer

	referees map[int]*Referee
	match    MatchContext

	// Configuration
	projectsDir       string
	queueSize         int
	hubBufferSize     int
	settleDelay       time.Duration
	heartbeatInterval time.Duration
	reconnectBackoff  time.Duration
	burstThresholdMS  int
	captionHoldMS     int

	// State
	started      bool
	writerCancel context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDialer sets the transport dialer used for device sessions.
func WithDialer(d ble.Dialer) Option {
	return func(s *Service) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithProjectsDir sets the root directory for project folders.
func WithProjectsDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.projectsDir = dir
		}
	}
}

// WithQueueSize bounds the event log append queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithHubBufferSize sets the per-listener broadcast buffer.
func WithHubBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.hubBufferSize = size
		}
	}
}

// WithSessionTiming sets the session settle delay, heartbeat interval
// and reconnect backoff.
func WithSessionTiming(settle, heartbeat, backoff time.Duration) Option {
	return func(s *Service) {
		if settle >= 0 {
			s.settleDelay = settle
		}
		if heartbeat > 0 {
			s.heartbeatInterval = heartbeat
		}
		if backoff > 0 {
			s.reconnectBackoff = backoff
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		referees:          make(map[int]*Referee),
		match:             MatchContext{Mode: MatchModeFree},
		projectsDir:       "projects",
		queueSize:         4096,
		hubBufferSize:     64,
		settleDelay:       1500 * time.Millisecond,
		heartbeatInterval: 3 * time.Second,
		reconnectBackoff:  3 * time.Second,
		burstThresholdMS:  400,
		captionHoldMS:     1000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.dialer == nil {
		return fmt.Errorf("%w: no dialer configured", ErrInvalidSetup)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting scoring service...")

	store, err := repository.New(s.projectsDir)
	if err != nil {
		return fmt.Errorf("init project store: %w", err)
	}
	s.store = store
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.writer = logwriter.NewWriter(s.queue, s.store)
	s.hub = hub.New(hub.WithBufferSize(s.hubBufferSize))

	writerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.writerCancel = cancel
	go s.writer.Run(writerCtx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.String("projectsDir", s.projectsDir),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop gracefully shuts the service down: sessions first so no new
// records arrive, then the append pipeline, then the hub.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	referees := s.drainRefereesLocked()
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping scoring service...")

	disconnectAll(ctx, referees)

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.writer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "log writer shutdown", logger.Error(err))
	}
	if s.writerCancel != nil {
		s.writerCancel()
	}
	s.hub.Close()

	s.logger.Info(ctx, "scoring service stopped")
}

// Hub exposes the broadcast hub for transport-level listeners.
func (s *Service) Hub() *hub.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// Setup tears down any previous judge slots and builds the requested
// ones. Configuration problems fail the whole call before any link is
// opened; link establishment itself is asynchronous and self-healing.
func (s *Service) Setup(ctx context.Context, judges []JudgeSetup) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	previous := s.drainRefereesLocked()
	s.mu.Unlock()

	disconnectAll(ctx, previous)

	if len(judges) == 0 {
		return fmt.Errorf("%w: no judges", ErrInvalidSetup)
	}

	built := make(map[int]*Referee, len(judges))
	for _, j := range judges {
		mode, err := fusion.ParseMode(j.Mode)
		if err != nil {
			return fmt.Errorf("%w: judge %d: %w", ErrInvalidSetup, j.Index, err)
		}
		if j.Primary == "" {
			return fmt.Errorf("%w: judge %d: missing primary device", ErrInvalidSetup, j.Index)
		}
		if mode == fusion.ModeDual && j.Secondary == "" {
			return fmt.Errorf("%w: judge %d: DUAL mode needs a secondary device", ErrInvalidSetup, j.Index)
		}
		if _, dup := built[j.Index]; dup {
			return fmt.Errorf("%w: duplicate judge index %d", ErrInvalidSetup, j.Index)
		}

		r := NewReferee(j.Index, j.Name, mode,
			WithUpdateHandler(s.handleScoreUpdate),
			WithLinkStatusHandler(s.handleStatusChange),
		)

		primary := s.newSession(j.Primary)
		var secondary *ble.Session
		if mode == fusion.ModeDual {
			secondary = s.newSession(j.Secondary)
		}
		r.Bind(primary, secondary)
		built[j.Index] = r
	}

	s.mu.Lock()
	s.referees = built
	s.mu.Unlock()

	// Connections proceed in the background; failures feed the
	// sessions' own reconnect loops, not this call.
	connectCtx := context.WithoutCancel(ctx)
	for _, r := range built {
		primary, secondary := r.Sessions()
		for _, sess := range []*ble.Session{primary, secondary} {
			if sess == nil {
				continue
			}
			go func(sess *ble.Session) {
				if err := sess.Connect(connectCtx); err != nil {
					s.logger.Warn(connectCtx, "initial connect failed, retrying in background",
						logger.String("addr", sess.Addr()),
						logger.Error(err),
					)
				}
			}(sess)
		}
	}

	s.logger.Info(ctx, "setup complete", logger.Int("judges", len(built)))
	return nil
}

func (s *Service) newSession(addr string) *ble.Session {
	return ble.NewSession(s.dialer, addr,
		ble.WithSettleDelay(s.settleDelay),
		ble.WithHeartbeatInterval(s.heartbeatInterval),
		ble.WithReconnectBackoff(s.reconnectBackoff),
	)
}

// Teardown disconnects every judge slot and clears them.
func (s *Service) Teardown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	referees := s.drainRefereesLocked()
	s.mu.Unlock()

	disconnectAll(ctx, referees)
	s.logger.Info(ctx, "teardown complete", logger.Int("judges", len(referees)))
	return nil
}

// Reset zeroes every judge slot concurrently and broadcasts the clean
// scores. Reset scores are never persisted.
func (s *Service) Reset(ctx context.Context) error {
	referees := s.Referees()

	var wg sync.WaitGroup
	for _, r := range referees {
		wg.Add(1)
		go func(r *Referee) {
			defer wg.Done()
			r.Reset(ctx)
		}(r)
	}
	wg.Wait()

	for _, r := range referees {
		s.publishReferee(hub.TypeScoreUpdate, r)
	}
	return nil
}

// Referees returns the current judge slots ordered by index.
func (s *Service) Referees() []*Referee {
	s.mu.RLock()
	defer s.mu.RUnlock()

	referees := make([]*Referee, 0, len(s.referees))
	for _, r := range s.referees {
		referees = append(referees, r)
	}
	sort.Slice(referees, func(i, j int) bool { return referees[i].Index() < referees[j].Index() })
	return referees
}

// RefereeSnapshots returns the broadcast shape of every judge slot,
// ordered by index.
func (s *Service) RefereeSnapshots() []RefereePayload {
	referees := s.Referees()
	payloads := make([]RefereePayload, 0, len(referees))
	for _, r := range referees {
		payloads = append(payloads, RefereePayload{
			Index:  r.Index(),
			Name:   r.Name(),
			Score:  r.Score(),
			Status: r.Status(),
		})
	}
	return payloads
}

// SetMatchContext switches the live (group, contestant) selection and
// broadcasts the change.
func (s *Service) SetMatchContext(ctx context.Context, group, contestant string) {
	s.mu.Lock()
	s.match.Group = group
	s.match.Contestant = contestant
	mc := s.match
	s.mu.Unlock()

	s.logger.Info(ctx, "match context updated",
		logger.String("group", group),
		logger.String("contestant", contestant),
	)
	s.hub.Publish(hub.Message{Type: "context_update", Payload: mc})
}

// MatchContext returns the live selection.
func (s *Service) MatchContext() MatchContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match
}

func (s *Service) setMatchMode(mode string) {
	s.mu.Lock()
	if mode == "" {
		mode = MatchModeFree
	}
	s.match.Mode = mode
	s.mu.Unlock()
}

// handleScoreUpdate runs on every accepted device update: persist when
// eligible, broadcast always.
func (s *Service) handleScoreUpdate(judge int, role string, evt protocol.Event, score fusion.Score) {
	ctx := context.Background()

	s.mu.RLock()
	mc := s.match
	r := s.referees[judge]
	s.mu.RUnlock()

	if eligible(mc, score) {
		record := model.ScoreRecord{
			Group:      mc.Group,
			Contestant: mc.Contestant,
			Judge:      judge,
			Role:       role,
			SystemTime: time.Now(),
			Event: protocol.Event{
				CurrentTotal: score.Total,
				EventType:    evt.EventType,
				TotalPlus:    score.Plus,
				TotalMinus:   score.Minus,
				TimestampMS:  evt.TimestampMS,
			},
		}
		if !s.queue.Enqueue(ctx, record) {
			s.logger.Warn(ctx, "append queue rejected record",
				logger.Int("judge", judge),
				logger.String("contestant", mc.Contestant),
			)
		}
	}

	if r != nil {
		s.publishReferee(hub.TypeScoreUpdate, r)
	}
}

// eligible applies the persistence filter: a real contestant must be
// selected, and in FREE mode an all-zero score is the "next player"
// blip, not data. TOURNAMENT keeps zero scores on purpose.
func eligible(mc MatchContext, score fusion.Score) bool {
	if mc.Contestant == "" || mc.Contestant == PlaceholderContestant {
		return false
	}
	if mc.Mode == MatchModeFree && score.IsZero() {
		return false
	}
	return true
}

func (s *Service) handleStatusChange(judge int, role string, status ble.Status) {
	s.mu.RLock()
	r := s.referees[judge]
	s.mu.RUnlock()

	if r != nil {
		s.publishReferee(hub.TypeStatusUpdate, r)
	}
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func hubMessage(msgType string, payload any) hub.Message {
	return hub.Message{Type: msgType, Payload: payload}
}

func (s *Service) publishReferee(msgType string, r *Referee) {
	s.hub.Publish(hub.Message{
		Type: msgType,
		Payload: RefereePayload{
			Index:  r.Index(),
			Name:   r.Name(),
			Score:  r.Score(),
			Status: r.Status(),
		},
	})
}

// Stats returns the operational snapshot.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	referees := len(s.referees)
	mc := s.match
	s.mu.RUnlock()

	return Stats{
		Referees:       referees,
		HubListeners:   s.hub.Listeners(),
		AppendQueueLen: s.queue.Len(ctx),
		Project:        s.store.CurrentPath(),
		Match:          mc,
	}
}

// drainRefereesLocked detaches and returns the current slots. Callers
// hold s.mu.
func (s *Service) drainRefereesLocked() []*Referee {
	referees := make([]*Referee, 0, len(s.referees))
	for _, r := range s.referees {
		referees = append(referees, r)
	}
	s.referees = make(map[int]*Referee)
	return referees
}

func disconnectAll(ctx context.Context, referees []*Referee) {
	var wg sync.WaitGroup
	for _, r := range referees {
		primary, secondary := r.Sessions()
		for _, sess := range []*ble.Session{primary, secondary} {
			if sess == nil {
				continue
			}
			wg.Add(1)
			go func(sess *ble.Session) {
				defer wg.Done()
				sess.Disconnect(ctx)
			}(sess)
		}
	}
	wg.Wait()
}
