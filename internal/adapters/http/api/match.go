// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// MatchDependencies defines the interface for the live selection.
type MatchDependencies interface {
	SetMatchContext(ctx context.Context, group, contestant string)
	MatchContext() MatchContext
}

// MatchHandler handles match context requests.
type MatchHandler struct {
	deps MatchDependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

type matchRequest struct {
	Group      string `json:"group"`
	Contestant string `json:"contestant"`
}

// HandleContext handles GET and POST /api/match/context requests.
func (h *MatchHandler) HandleContext(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_context"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.MatchContext())
	case http.MethodPost:
		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		h.deps.SetMatchContext(r.Context(), req.Group, req.Contestant)
		writeJSON(w, http.StatusOK, h.deps.MatchContext())
	default:
		http.NotFound(w, r)
	}
}
