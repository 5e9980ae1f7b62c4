// Package demo drives a running scoring server over its HTTP API: it
// creates a project, wires simulated judges, watches the live stream
// and pulls the report and export artifacts. Useful for smoke testing
// a deployment end to end.
package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tallyops/clickerd/pkg/logger"
)

// Config controls one demo run.
type Config struct {
	// BaseURL of the scoring server, e.g. http://localhost:9080.
	BaseURL string

	// Judges is the number of SINGLE judge slots to set up.
	Judges int

	// Project, Group and Contestant name the artifacts created.
	Project    string
	Group      string
	Contestant string

	// Watch is how long to follow the live stream before finalizing.
	Watch time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// ExportFile receives the details archive; empty skips the export.
	ExportFile string
}

// Runner executes the demo scenario against one server.
type Runner struct {
	cfg    *Config
	client *http.Client
	logger logger.Logger
}

// NewRunner creates a demo runner.
func NewRunner(cfg *Config) *Runner {
	return &Runner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Get().Named("demo"),
	}
}

// Run executes the full scenario.
func Run(ctx context.Context, cfg *Config) error {
	return NewRunner(cfg).Run(ctx)
}

// Run walks the scenario: project, context, setup, watch, result,
// report, export.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info(ctx, "creating project", logger.String("name", r.cfg.Project))
	if err := r.postJSON(ctx, "/api/project/create", map[string]any{
		"name":   r.cfg.Project,
		"mode":   "FREE",
		"groups": []string{r.cfg.Group},
	}, nil); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	if err := r.postJSON(ctx, "/api/match/context", map[string]any{
		"group":      r.cfg.Group,
		"contestant": r.cfg.Contestant,
	}, nil); err != nil {
		return fmt.Errorf("set match context: %w", err)
	}

	judges := make([]map[string]any, 0, r.cfg.Judges)
	for i := 1; i <= r.cfg.Judges; i++ {
		judges = append(judges, map[string]any{
			"index":    i,
			"mode":     "SINGLE",
			"pri_addr": fmt.Sprintf("SIM:%02d", i),
		})
	}
	r.logger.Info(ctx, "setting up judges", logger.Int("count", r.cfg.Judges))
	if err := r.postJSON(ctx, "/setup", map[string]any{"judges": judges}, nil); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	if err := r.watchStream(ctx); err != nil {
		return fmt.Errorf("watch stream: %w", err)
	}

	r.logger.Info(ctx, "saving result", logger.String("contestant", r.cfg.Contestant))
	if err := r.postJSON(ctx, "/api/result/save", map[string]any{}, nil); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	var standings []map[string]any
	if err := r.getJSON(ctx, "/api/project/report?group="+r.cfg.Group, &standings); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, s := range standings {
		r.logger.Info(ctx, "standing",
			logger.Any("rank", s["rank"]),
			logger.Any("contestant", s["contestant"]),
			logger.Any("total_score", s["total_score"]),
		)
	}

	if r.cfg.ExportFile != "" {
		if err := r.export(ctx); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	return r.postJSON(ctx, "/teardown", map[string]any{}, nil)
}

// watchStream follows /ws for the configured window and logs score
// updates as they arrive.
func (r *Runner) watchStream(ctx context.Context) error {
	wsURL := "ws" + strings.TrimPrefix(r.cfg.BaseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(r.cfg.Watch)
	_ = conn.SetReadDeadline(deadline)

	var updates int
	for time.Now().Before(deadline) {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type != "score_update" {
			continue
		}
		updates++
		var payload struct {
			Index int `json:"index"`
			Score struct {
				Total int32 `json:"total"`
				Plus  int32 `json:"plus"`
				Minus int32 `json:"minus"`
			} `json:"score"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			continue
		}
		r.logger.Info(ctx, "score update",
			logger.Int("judge", payload.Index),
			logger.Int32("total", payload.Score.Total),
			logger.Int32("plus", payload.Score.Plus),
			logger.Int32("minus", payload.Score.Minus),
		)
	}

	r.logger.Info(ctx, "stream window closed", logger.Int("score_updates", updates))
	return nil
}

// export downloads the details archive to the configured file.
func (r *Runner) export(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"group":    r.cfg.Group,
		"txt":      true,
		"srt":      true,
		"srt_mode": "TOTAL",
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/api/export/details", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	if err := os.WriteFile(r.cfg.ExportFile, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	r.logger.Info(ctx, "archive written",
		logger.String("file", r.cfg.ExportFile),
		logger.Int("bytes", len(data)),
	)
	return nil
}

func (r *Runner) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return r.do(req, out)
}

func (r *Runner) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return r.do(req, out)
}

func (r *Runner) do(req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
