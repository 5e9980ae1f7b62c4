// Package repository persists everything the scoring pipeline
// produces: project folders with their config.json, per-stream event
// logs, and the results ledger. All artifacts are plain files so a
// project survives any crash and can be inspected with nothing but a
// text editor.
package repository

import (
	"os"
	"sync"

	"github.com/tallyops/clickerd/pkg/logger"
)

// Timestamp layouts used across the stored artifacts.
const (
	folderTimeLayout = "20060102_150405"
	configTimeLayout = "2006-01-02 15:04:05"
	logTimeLayout    = "2006-01-02 15:04:05.000"
)

// Store is the file-backed project store. One project is current at a
// time; event log appends and result saves go to the current project.
type Store struct {
	baseDir string

	mu          sync.Mutex
	projectPath string

	logger logger.Logger
}

// New creates a store rooted at baseDir, creating the directory if
// needed.
func New(baseDir string, opts ...Option) (*Store, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		baseDir: baseDir,
		logger:  logger.Get().Named("repository"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// CurrentPath returns the current project directory, or "" when no
// project is active.
func (s *Store) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectPath
}

// currentPathOrErr is the guarded accessor used by operations that
// require an active project.
func (s *Store) currentPathOrErr() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projectPath == "" {
		return "", ErrNoProject
	}
	return s.projectPath, nil
}
