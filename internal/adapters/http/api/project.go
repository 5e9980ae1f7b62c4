// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// ProjectDependencies defines the interface for project and results
// operations.
type ProjectDependencies interface {
	CreateProject(ctx context.Context, name, mode string, groups []string) (ProjectConfig, error)
	UpdateProjectGroups(ctx context.Context, groups []string) error
	ListProjects(ctx context.Context) ([]ProjectInfo, error)
	LoadProject(ctx context.Context, folder string) (ProjectConfig, error)
	CurrentProject(ctx context.Context) (ProjectConfig, error)
	DeleteProject(ctx context.Context, folder string) error
	FinalizeResult(ctx context.Context) error
	Standings(ctx context.Context, group string) ([]Standing, error)
	ScoredContestants(ctx context.Context) ([]string, error)
}

// ProjectHandler handles project lifecycle and reporting requests.
type ProjectHandler struct {
	deps ProjectDependencies
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(deps ProjectDependencies) *ProjectHandler {
	return &ProjectHandler{deps: deps}
}

type createProjectRequest struct {
	Name   string   `json:"name"`
	Mode   string   `json:"mode"`
	Groups []string `json:"groups"`
}

// HandleCreate handles POST /api/project/create requests.
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_create"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	cfg, err := h.deps.CreateProject(r.Context(), req.Name, req.Mode, req.Groups)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// HandleCurrent handles GET /api/project/current requests.
func (h *ProjectHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_current"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	cfg, err := h.deps.CurrentProject(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandleList handles GET /api/projects requests.
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.projects_list"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	projects, err := h.deps.ListProjects(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if projects == nil {
		projects = []ProjectInfo{}
	}
	writeJSON(w, http.StatusOK, projects)
}

type folderRequest struct {
	Folder string `json:"folder"`
}

// HandleLoad handles POST /api/project/load requests.
func (h *ProjectHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_load"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	cfg, err := h.deps.LoadProject(r.Context(), req.Folder)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandleDelete handles POST /api/project/delete requests.
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_delete"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.DeleteProject(r.Context(), req.Folder); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type updateGroupsRequest struct {
	Groups []string `json:"groups"`
}

// HandleUpdateGroups handles POST /api/project/groups requests.
func (h *ProjectHandler) HandleUpdateGroups(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_groups"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req updateGroupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.UpdateProjectGroups(r.Context(), req.Groups); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleReport handles GET /api/project/report?group=G requests.
func (h *ProjectHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_report"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	group := r.URL.Query().Get("group")
	if group == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	standings, err := h.deps.Standings(r.Context(), group)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if standings == nil {
		standings = []Standing{}
	}
	writeJSON(w, http.StatusOK, standings)
}

// HandleGroupStatus handles GET /api/group/status requests: the names
// already present in the results ledger, so the operator UI can mark
// finished contestants.
func (h *ProjectHandler) HandleGroupStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.group_status"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	scored, err := h.deps.ScoredContestants(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if scored == nil {
		scored = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scored": scored})
}

// HandleSaveResult handles POST /api/result/save requests: the current
// contestant's fused totals go to the results ledger.
func (h *ProjectHandler) HandleSaveResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.result_save"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.FinalizeResult(r.Context()); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
