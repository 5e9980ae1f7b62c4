// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ExportDependencies defines the interface for details exports.
type ExportDependencies interface {
	ExportDetails(ctx context.Context, group string, players []string, opts ExportOptions) ([]byte, error)
}

// ExportHandler handles details archive requests.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

type exportRequest struct {
	Group   string   `json:"group"`
	Players []string `json:"players"`
	TXT     bool     `json:"txt"`
	SRT     bool     `json:"srt"`
	SRTMode string   `json:"srt_mode"`
}

// HandleExport handles POST /api/export/details requests, answering
// with a zip archive of per-judge logs and caption files.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_details"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Group) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	data, err := h.deps.ExportDetails(r.Context(), req.Group, req.Players, ExportOptions{
		TXT:     req.TXT,
		SRT:     req.SRT,
		SRTMode: req.SRTMode,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	filename := "Details_" + archiveName(req.Group) + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// archiveName strips characters that do not belong in a download
// filename.
func archiveName(group string) string {
	var b strings.Builder
	for _, r := range group {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
