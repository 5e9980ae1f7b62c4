package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/tallyops/clickerd/internal/adapters/repository"
	"github.com/tallyops/clickerd/pkg/logger"
)

func validMatchMode(mode string) bool {
	return mode == MatchModeFree || mode == MatchModeTournament
}

// CreateProject creates a project folder and makes it the live one.
// An empty mode defaults to FREE.
func (s *Service) CreateProject(ctx context.Context, name, mode string, groups []string) (repository.ProjectConfig, error) {
	if mode == "" {
		mode = MatchModeFree
	}
	if !validMatchMode(mode) {
		return repository.ProjectConfig{}, fmt.Errorf("%w: unknown match mode %q", ErrInvalidSetup, mode)
	}

	cfg := repository.ProjectConfig{Name: name, Mode: mode, Groups: groups}
	if _, err := s.store.CreateProject(ctx, cfg); err != nil {
		return repository.ProjectConfig{}, err
	}
	s.setMatchMode(mode)
	return cfg, nil
}

// UpdateProjectGroups rewrites the current project's group list and
// broadcasts it so every client sees the same roster.
func (s *Service) UpdateProjectGroups(ctx context.Context, groups []string) error {
	cfg, err := s.store.CurrentConfig(ctx)
	if err != nil {
		return err
	}

	cfg.Groups = groups
	if _, err := s.store.UpdateProjectConfig(ctx, cfg); err != nil {
		return err
	}

	s.hub.Publish(hubMessage("groups_update", map[string]any{"groups": groups}))
	return nil
}

// ListProjects lists stored projects, most recently updated first.
func (s *Service) ListProjects(ctx context.Context) ([]repository.ProjectInfo, error) {
	return s.store.ListProjects(ctx)
}

// LoadProject makes a stored project the live one and restores its
// match mode and default group.
func (s *Service) LoadProject(ctx context.Context, folder string) (repository.ProjectConfig, error) {
	cfg, err := s.store.LoadProject(ctx, folder)
	if err != nil {
		return repository.ProjectConfig{}, err
	}

	s.setMatchMode(cfg.Mode)
	if len(cfg.Groups) > 0 {
		s.SetMatchContext(ctx, cfg.Groups[0], "")
	}
	return cfg, nil
}

// CurrentProject returns the active project's config.
func (s *Service) CurrentProject(ctx context.Context) (repository.ProjectConfig, error) {
	return s.store.CurrentConfig(ctx)
}

// DeleteProject removes a stored project.
func (s *Service) DeleteProject(ctx context.Context, folder string) error {
	return s.store.DeleteProject(ctx, folder)
}

// Standings returns the ranked report of a group.
func (s *Service) Standings(ctx context.Context, group string) ([]repository.Standing, error) {
	return s.store.Standings(ctx, group)
}

// ScoredContestants returns the sorted names already present in the
// results ledger.
func (s *Service) ScoredContestants(ctx context.Context) ([]string, error) {
	scored, err := s.store.ScoredContestants(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(scored))
	for name := range scored {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// FinalizeResult writes the current contestant's final score to the
// results ledger: the sum of every judge's fused total, with per-judge
// details.
func (s *Service) FinalizeResult(ctx context.Context) error {
	mc := s.MatchContext()
	if mc.Contestant == "" || mc.Contestant == PlaceholderContestant {
		return fmt.Errorf("%w: no contestant selected", ErrInvalidSetup)
	}

	var final int32
	referees := s.Referees()
	judges := make([]repository.JudgeScore, 0, len(referees))
	for _, r := range referees {
		score := r.Score()
		final += score.Total
		judges = append(judges, repository.JudgeScore{
			Name:  r.Name(),
			Total: score.Total,
			Plus:  score.Plus,
			Minus: score.Minus,
		})
	}

	if err := s.store.SaveResult(ctx, mc.Group, mc.Contestant, final, judges); err != nil {
		return err
	}

	s.logger.Info(ctx, "result finalized",
		logger.String("group", mc.Group),
		logger.String("contestant", mc.Contestant),
		logger.Int32("final", final),
	)
	s.hub.Publish(hubMessage("result_saved", map[string]any{
		"group":       mc.Group,
		"contestant":  mc.Contestant,
		"total_score": final,
	}))
	return nil
}
