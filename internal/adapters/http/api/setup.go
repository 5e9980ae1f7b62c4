// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// SetupDependencies defines the interface for device session control.
type SetupDependencies interface {
	Setup(ctx context.Context, judges []JudgeSetup) error
	Teardown(ctx context.Context) error
	Reset(ctx context.Context) error
	RefereeSnapshots() []RefereePayload
}

// SetupHandler handles device session requests.
type SetupHandler struct {
	deps SetupDependencies
}

// NewSetupHandler creates a new setup handler.
func NewSetupHandler(deps SetupDependencies) *SetupHandler {
	return &SetupHandler{deps: deps}
}

type setupRequest struct {
	Judges []JudgeSetup `json:"judges"`
}

// HandleSetup handles POST /setup requests. The request replaces every
// judge slot; configuration problems fail the call as a whole.
func (h *SetupHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	const op = "api.setup"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Setup(r.Context(), req.Judges); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"referees": h.deps.RefereeSnapshots(),
	})
}

// HandleTeardown handles POST /teardown requests.
func (h *SetupHandler) HandleTeardown(w http.ResponseWriter, r *http.Request) {
	const op = "api.teardown"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Teardown(r.Context()); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleReset handles POST /reset requests. Scores zero on every
// device and on the scoreboard; nothing is written to the event log.
func (h *SetupHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Reset(r.Context()); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
