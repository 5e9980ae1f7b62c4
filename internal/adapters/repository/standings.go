package repository

import (
	"context"
	"sort"
)

// Standing is one ranked row of a group report.
type Standing struct {
	Rank       int                   `json:"rank"`
	Contestant string                `json:"contestant"`
	FinalScore int32                 `json:"total_score"`
	Judges     map[string]JudgeScore `json:"ref_scores"`
	Timestamp  string                `json:"timestamp"`
}

// Standings ranks a group's results by final score, highest first.
// When a contestant was scored more than once the latest ledger entry
// wins. Ties rank by name so the ordering is stable across reads.
func (s *Store) Standings(ctx context.Context, group string) ([]Standing, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]Result)
	for _, r := range results {
		if group != "" && r.Group != group {
			continue
		}
		latest[r.Contestant] = r
	}

	standings := make([]Standing, 0, len(latest))
	for _, r := range latest {
		standings = append(standings, Standing{
			Contestant: r.Contestant,
			FinalScore: r.FinalScore,
			Judges:     r.Judges,
			Timestamp:  r.Timestamp,
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].FinalScore != standings[j].FinalScore {
			return standings[i].FinalScore > standings[j].FinalScore
		}
		return standings[i].Contestant < standings[j].Contestant
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings, nil
}
