// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tallyops/clickerd/internal/adapters/hub"
	"github.com/tallyops/clickerd/pkg/logger"
)

// WSDependencies defines the interface for live scoreboard streams.
type WSDependencies interface {
	Hub() *hub.Hub
	MatchContext() MatchContext
	RefereeSnapshots() []RefereePayload
}

// WSHandler upgrades scoreboard clients and pumps hub broadcasts to
// them.
type WSHandler struct {
	deps     WSDependencies
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(deps WSDependencies) *WSHandler {
	return &WSHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			// Scoreboard overlays run on other origins (OBS, local
			// files), so the origin check stays open.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Get().Named("ws"),
	}
}

// HandleWS handles GET /ws requests. Each client gets the current
// state on connect, then every hub broadcast until either side closes.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	const op = "api.ws"
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		h.logger.Warn(ctx, "websocket upgrade", logger.Error(WrapKind(op, ErrUpgrade, err)))
		return
	}
	defer conn.Close()

	id, msgs, err := h.deps.Hub().Subscribe()
	if err != nil {
		h.logger.Warn(ctx, "hub subscribe", logger.Error(Wrap(op, err)))
		return
	}
	defer h.deps.Hub().Unsubscribe(id)

	if err := h.sendInitialState(conn); err != nil {
		return
	}

	// Reader goroutine exists only to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) sendInitialState(conn *websocket.Conn) error {
	if err := conn.WriteJSON(hub.Message{Type: "context_update", Payload: h.deps.MatchContext()}); err != nil {
		return err
	}
	for _, payload := range h.deps.RefereeSnapshots() {
		if err := conn.WriteJSON(hub.Message{Type: hub.TypeScoreUpdate, Payload: payload}); err != nil {
			return err
		}
	}
	return nil
}
