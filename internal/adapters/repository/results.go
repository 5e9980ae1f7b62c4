package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tallyops/clickerd/pkg/logger"
	"github.com/tallyops/clickerd/pkg/metrics"
)

const resultsFileName = "results.csv"

var resultsHeader = []string{"Group", "Contestant", "FinalScore", "Details", "Timestamp"}

// JudgeScore is one judge's contribution to a final result.
type JudgeScore struct {
	Name  string `json:"name"`
	Total int32  `json:"total"`
	Plus  int32  `json:"plus"`
	Minus int32  `json:"minus"`
}

// Result is one parsed line of the results ledger.
type Result struct {
	Group      string                `json:"group"`
	Contestant string                `json:"contestant"`
	FinalScore int32                 `json:"total_score"`
	Judges     map[string]JudgeScore `json:"ref_scores"`
	Timestamp  string                `json:"timestamp"`
}

// SaveResult appends one final score to the results ledger. Judge
// details are encoded as "Name=Total:Plus:Minus" segments joined with
// " | ".
func (s *Store) SaveResult(ctx context.Context, group, contestant string, finalScore int32, judges []JudgeScore) error {
	path, err := s.currentPathOrErr()
	if err != nil {
		return err
	}

	resultsPath := filepath.Join(path, resultsFileName)
	_, statErr := os.Stat(resultsPath)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(resultsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(resultsHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := []string{
		group,
		contestant,
		strconv.FormatInt(int64(finalScore), 10),
		encodeDetails(judges),
		time.Now().Format(configTimeLayout),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}

	metrics.RecordResultSaved()
	s.logger.Info(ctx, "result saved",
		logger.String("group", group),
		logger.String("contestant", contestant),
		logger.Int32("final", finalScore),
	)
	return nil
}

// Results reads the whole results ledger of the current project. A
// missing ledger is an empty result set, not an error.
func (s *Store) Results(ctx context.Context) ([]Result, error) {
	path, err := s.currentPathOrErr()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(path, resultsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	results := make([]Result, 0, len(rows)-1)
	for _, row := range rows[1:] {
		final, err := strconv.ParseInt(field(row, "FinalScore"), 10, 32)
		if err != nil {
			final = 0
		}
		results = append(results, Result{
			Group:      field(row, "Group"),
			Contestant: field(row, "Contestant"),
			FinalScore: int32(final),
			Judges:     s.parseDetails(ctx, field(row, "Details")),
			Timestamp:  field(row, "Timestamp"),
		})
	}
	return results, nil
}

// ScoredContestants returns the set of contestant names already
// present in the results ledger.
func (s *Store) ScoredContestants(ctx context.Context) (map[string]struct{}, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}

	scored := make(map[string]struct{}, len(results))
	for _, r := range results {
		name := strings.TrimSpace(r.Contestant)
		if name != "" {
			scored[name] = struct{}{}
		}
	}
	return scored, nil
}

func encodeDetails(judges []JudgeScore) string {
	parts := make([]string, 0, len(judges))
	for _, j := range judges {
		parts = append(parts, fmt.Sprintf("%s=%d:%d:%d", j.Name, j.Total, j.Plus, j.Minus))
	}
	return strings.Join(parts, " | ")
}

// parseDetails decodes a Details string. Segments use the rich
// "Name=Total:Plus:Minus" form; the legacy "Name:Total" form is an
// explicit fallback. Segments matching neither are dropped, never
// guessed at.
func (s *Store) parseDetails(ctx context.Context, details string) map[string]JudgeScore {
	scores := make(map[string]JudgeScore)
	for _, part := range strings.Split(details, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		js, ok := parseDetailSegment(part)
		if !ok {
			s.logger.Warn(ctx, "skipping unparseable result detail", logger.String("segment", part))
			continue
		}
		scores[js.Name] = js
	}
	return scores
}

func parseDetailSegment(part string) (JudgeScore, bool) {
	if name, vals, found := strings.Cut(part, "="); found {
		fields := strings.Split(vals, ":")
		total, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			return JudgeScore{}, false
		}
		js := JudgeScore{
			Name:  strings.TrimSpace(name),
			Total: int32(total),
			Plus:  int32(total),
		}
		if len(fields) >= 3 {
			plus, errP := strconv.ParseInt(fields[1], 10, 32)
			minus, errM := strconv.ParseInt(fields[2], 10, 32)
			if errP != nil || errM != nil {
				return JudgeScore{}, false
			}
			js.Plus = int32(plus)
			js.Minus = int32(minus)
		}
		return js, true
	}

	// Legacy form. Split from the right so a colon inside the name
	// does not shift the value.
	if i := strings.LastIndex(part, ":"); i > 0 {
		total, err := strconv.ParseInt(part[i+1:], 10, 32)
		if err != nil {
			return JudgeScore{}, false
		}
		return JudgeScore{
			Name:  strings.TrimSpace(part[:i]),
			Total: int32(total),
			Plus:  int32(total),
		}, true
	}

	return JudgeScore{}, false
}
