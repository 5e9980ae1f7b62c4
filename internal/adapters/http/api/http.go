// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tallyops/clickerd/internal/adapters/hub"
	"github.com/tallyops/clickerd/internal/adapters/repository"
	service "github.com/tallyops/clickerd/internal/app"
)

// Shapes shared with the service layer.
type (
	JudgeSetup     = service.JudgeSetup
	MatchContext   = service.MatchContext
	RefereePayload = service.RefereePayload
	ExportOptions  = service.ExportOptions
	Stats          = service.Stats
	ProjectConfig  = repository.ProjectConfig
	ProjectInfo    = repository.ProjectInfo
	Standing       = repository.Standing
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Device session management.
	Setup(ctx context.Context, judges []JudgeSetup) error
	Teardown(ctx context.Context) error
	Reset(ctx context.Context) error
	RefereeSnapshots() []RefereePayload

	// Live match selection.
	SetMatchContext(ctx context.Context, group, contestant string)
	MatchContext() MatchContext

	// Project lifecycle.
	CreateProject(ctx context.Context, name, mode string, groups []string) (ProjectConfig, error)
	UpdateProjectGroups(ctx context.Context, groups []string) error
	ListProjects(ctx context.Context) ([]ProjectInfo, error)
	LoadProject(ctx context.Context, folder string) (ProjectConfig, error)
	CurrentProject(ctx context.Context) (ProjectConfig, error)
	DeleteProject(ctx context.Context, folder string) error

	// Results and reporting.
	FinalizeResult(ctx context.Context) error
	Standings(ctx context.Context, group string) ([]Standing, error)
	ScoredContestants(ctx context.Context) ([]string, error)
	ExportDetails(ctx context.Context, group string, players []string, opts ExportOptions) ([]byte, error)

	// Operational surface.
	Stats(ctx context.Context) Stats
	Hub() *hub.Hub
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	setupHandler   *SetupHandler
	matchHandler   *MatchHandler
	projectHandler *ProjectHandler
	exportHandler  *ExportHandler
	wsHandler      *WSHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		setupHandler:   NewSetupHandler(deps),
		matchHandler:   NewMatchHandler(deps),
		projectHandler: NewProjectHandler(deps),
		exportHandler:  NewExportHandler(deps),
		wsHandler:      NewWSHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/setup", MetricsMiddleware(s.setupHandler.HandleSetup, "setup"))
	mux.HandleFunc("/teardown", MetricsMiddleware(s.setupHandler.HandleTeardown, "teardown"))
	mux.HandleFunc("/reset", MetricsMiddleware(s.setupHandler.HandleReset, "reset"))

	mux.HandleFunc("/api/match/context", MetricsMiddleware(s.matchHandler.HandleContext, "match_context"))

	mux.HandleFunc("/api/project/create", MetricsMiddleware(s.projectHandler.HandleCreate, "project_create"))
	mux.HandleFunc("/api/project/current", MetricsMiddleware(s.projectHandler.HandleCurrent, "project_current"))
	mux.HandleFunc("/api/projects", MetricsMiddleware(s.projectHandler.HandleList, "projects_list"))
	mux.HandleFunc("/api/project/load", MetricsMiddleware(s.projectHandler.HandleLoad, "project_load"))
	mux.HandleFunc("/api/project/delete", MetricsMiddleware(s.projectHandler.HandleDelete, "project_delete"))
	mux.HandleFunc("/api/project/groups", MetricsMiddleware(s.projectHandler.HandleUpdateGroups, "project_groups"))
	mux.HandleFunc("/api/project/report", MetricsMiddleware(s.projectHandler.HandleReport, "project_report"))
	mux.HandleFunc("/api/group/status", MetricsMiddleware(s.projectHandler.HandleGroupStatus, "group_status"))
	mux.HandleFunc("/api/result/save", MetricsMiddleware(s.projectHandler.HandleSaveResult, "result_save"))

	mux.HandleFunc("/api/export/details", MetricsMiddleware(s.exportHandler.HandleExport, "export_details"))

	mux.HandleFunc("/ws", s.wsHandler.HandleWS)
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service-layer sentinels to HTTP status
// codes; anything unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSetup):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", Wrap(op, err))
	case errors.Is(err, repository.ErrNoProject),
		errors.Is(err, repository.ErrProjectNotFound),
		errors.Is(err, repository.ErrStreamNotFound),
		errors.Is(err, service.ErrNoExportData):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
