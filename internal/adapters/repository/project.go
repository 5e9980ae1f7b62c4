package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tallyops/clickerd/pkg/logger"
)

const configFileName = "config.json"

// JudgeConfig describes one judge slot of a project.
type JudgeConfig struct {
	Index     int    `json:"index"`
	Mode      string `json:"mode"`
	Primary   string `json:"primary_addr"`
	Secondary string `json:"secondary_addr,omitempty"`
}

// ProjectConfig is the persisted shape of config.json.
type ProjectConfig struct {
	Name      string        `json:"project_name"`
	Mode      string        `json:"mode"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at,omitempty"`
	Groups    []string      `json:"groups,omitempty"`
	Judges    []JudgeConfig `json:"judges,omitempty"`
}

// ProjectInfo is one entry of the project listing.
type ProjectInfo struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Folder    string `json:"folder"`
	Path      string `json:"path"`
}

// safeName keeps letters, digits, spaces, underscores and hyphens so a
// project name can never escape the projects directory.
func safeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// validFolder rejects folder names that could resolve outside baseDir.
func validFolder(folder string) bool {
	if folder == "" || folder == "." || folder == ".." {
		return false
	}
	return !strings.ContainsAny(folder, `/\`)
}

// CreateProject creates a fresh project folder, writes its config and
// makes it current.
func (s *Store) CreateProject(ctx context.Context, cfg ProjectConfig) (string, error) {
	name := safeName(cfg.Name)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, cfg.Name)
	}

	now := time.Now()
	folder := now.Format(folderTimeLayout) + "_" + name
	path := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create project dir: %w", err)
	}

	cfg.CreatedAt = now.Format(configTimeLayout)
	cfg.UpdatedAt = cfg.CreatedAt
	if err := writeConfig(path, cfg); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.projectPath = path
	s.mu.Unlock()

	s.logger.Info(ctx, "project created",
		logger.String("name", cfg.Name),
		logger.String("folder", folder),
	)
	return path, nil
}

// UpdateProjectConfig rewrites the current project's config, keeping
// the original created_at. With no current project it falls back to
// creating one.
func (s *Store) UpdateProjectConfig(ctx context.Context, cfg ProjectConfig) (string, error) {
	path, err := s.currentPathOrErr()
	if err != nil {
		return s.CreateProject(ctx, cfg)
	}

	now := time.Now().Format(configTimeLayout)
	cfg.CreatedAt = now
	if old, err := readConfig(path); err == nil && old.CreatedAt != "" {
		cfg.CreatedAt = old.CreatedAt
	}
	cfg.UpdatedAt = now

	if err := writeConfig(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// ListProjects returns every project folder that carries a readable
// config, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	projects := make([]ProjectInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(s.baseDir, e.Name())
		cfg, err := readConfig(path)
		if err != nil {
			// Folders without a readable config are not projects.
			continue
		}
		updated := cfg.UpdatedAt
		if updated == "" {
			updated = cfg.CreatedAt
		}
		name := cfg.Name
		if name == "" {
			name = e.Name()
		}
		projects = append(projects, ProjectInfo{
			Name:      name,
			CreatedAt: cfg.CreatedAt,
			UpdatedAt: updated,
			Folder:    e.Name(),
			Path:      path,
		})
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].UpdatedAt > projects[j].UpdatedAt
	})
	return projects, nil
}

// LoadProject makes folder the current project and returns its config.
func (s *Store) LoadProject(ctx context.Context, folder string) (ProjectConfig, error) {
	if !validFolder(folder) {
		return ProjectConfig{}, fmt.Errorf("%w: %q", ErrInvalidName, folder)
	}

	path := filepath.Join(s.baseDir, folder)
	cfg, err := readConfig(path)
	if err != nil {
		return ProjectConfig{}, fmt.Errorf("%w: %s", ErrProjectNotFound, folder)
	}

	s.mu.Lock()
	s.projectPath = path
	s.mu.Unlock()

	s.logger.Info(ctx, "project loaded", logger.String("folder", folder))
	return cfg, nil
}

// CurrentConfig returns the active project's config.
func (s *Store) CurrentConfig(ctx context.Context) (ProjectConfig, error) {
	path, err := s.currentPathOrErr()
	if err != nil {
		return ProjectConfig{}, err
	}
	cfg, err := readConfig(path)
	if err != nil {
		return ProjectConfig{}, fmt.Errorf("%w: %s", ErrProjectNotFound, path)
	}
	return cfg, nil
}

// DeleteProject removes a project folder. Deleting the current project
// clears the current selection.
func (s *Store) DeleteProject(ctx context.Context, folder string) error {
	if !validFolder(folder) {
		return fmt.Errorf("%w: %q", ErrInvalidName, folder)
	}

	path := filepath.Join(s.baseDir, folder)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, folder)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	s.mu.Lock()
	if s.projectPath == path {
		s.projectPath = ""
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "project deleted", logger.String("folder", folder))
	return nil
}

func writeConfig(path string, cfg ProjectConfig) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, configFileName), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func readConfig(path string) (ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(path, configFileName))
	if err != nil {
		return ProjectConfig{}, err
	}
	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
