package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/tallyops/clickerd/internal/domain/model"
	"github.com/tallyops/clickerd/internal/domain/subtitle"
)

// logHeader is the fixed first line of every event log stream. Streams
// are append-only: once written, a line is never touched again.
var logHeader = []string{
	"SystemTime", "BLE_Timestamp", "DeviceRole", "Contestant",
	"CurrentTotal", "EventType", "TotalPlus", "TotalMinus",
}

var streamFilePattern = regexp.MustCompile(`^(.+)_Ref(\d+)\.csv$`)

// StreamInfo identifies one event log stream inside a group.
type StreamInfo struct {
	Contestant string
	Judge      int
}

func streamFileName(contestant string, judge int) string {
	return fmt.Sprintf("%s_Ref%d.csv", contestant, judge)
}

// Append writes one record to its (group, contestant, judge) stream,
// creating the stream with its header on first touch. Called only from
// the single log writer, so per-stream order is arrival order.
func (s *Store) Append(ctx context.Context, r model.ScoreRecord) error {
	path, err := s.currentPathOrErr()
	if err != nil {
		return err
	}
	if r.Group == "" || r.Contestant == "" {
		return fmt.Errorf("%w: empty group or contestant", ErrInvalidName)
	}

	groupDir := filepath.Join(path, safeName(r.Group))
	if err := os.MkdirAll(groupDir, 0o755); err != nil {
		return fmt.Errorf("create group dir: %w", err)
	}

	streamPath := filepath.Join(groupDir, streamFileName(safeName(r.Contestant), r.Judge))
	_, statErr := os.Stat(streamPath)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(streamPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(logHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := []string{
		r.SystemTime.Format(logTimeLayout),
		strconv.FormatUint(uint64(r.Event.TimestampMS), 10),
		r.Role,
		r.Contestant,
		strconv.FormatInt(int64(r.Event.CurrentTotal), 10),
		strconv.FormatInt(int64(r.Event.EventType), 10),
		strconv.FormatInt(int64(r.Event.TotalPlus), 10),
		strconv.FormatInt(int64(r.Event.TotalMinus), 10),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// ListStreams returns every event log stream under a group.
func (s *Store) ListStreams(ctx context.Context, group string) ([]StreamInfo, error) {
	path, err := s.currentPathOrErr()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(path, safeName(group)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read group dir: %w", err)
	}

	var streams []StreamInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := streamFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		judge, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		streams = append(streams, StreamInfo{Contestant: m[1], Judge: judge})
	}

	sort.Slice(streams, func(i, j int) bool {
		if streams[i].Contestant != streams[j].Contestant {
			return streams[i].Contestant < streams[j].Contestant
		}
		return streams[i].Judge < streams[j].Judge
	})
	return streams, nil
}

// LoadStream reads one stream back as snapshots ordered by system
// time. Malformed rows are skipped rather than guessed at.
func (s *Store) LoadStream(ctx context.Context, group, contestant string, judge int) ([]subtitle.Snapshot, error) {
	path, err := s.currentPathOrErr()
	if err != nil {
		return nil, err
	}

	streamPath := filepath.Join(path, safeName(group), streamFileName(safeName(contestant), judge))
	f, err := os.Open(streamPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s judge %d", ErrStreamNotFound, group, contestant, judge)
		}
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}

	snapshots := make([]subtitle.Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		snap, ok := parseLogRow(row, col)
		if !ok {
			continue
		}
		snapshots = append(snapshots, snap)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].At.Before(snapshots[j].At)
	})
	return snapshots, nil
}

func parseLogRow(row []string, col map[string]int) (subtitle.Snapshot, bool) {
	field := func(name string) (string, bool) {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return row[i], true
	}

	rawTime, ok := field("SystemTime")
	if !ok {
		return subtitle.Snapshot{}, false
	}
	at, err := time.Parse(logTimeLayout, rawTime)
	if err != nil {
		return subtitle.Snapshot{}, false
	}

	parseInt := func(name string) (int32, bool) {
		raw, ok := field(name)
		if !ok {
			return 0, false
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, false
		}
		return int32(v), true
	}

	plus, ok := parseInt("TotalPlus")
	if !ok {
		return subtitle.Snapshot{}, false
	}
	minus, ok := parseInt("TotalMinus")
	if !ok {
		return subtitle.Snapshot{}, false
	}
	total, ok := parseInt("CurrentTotal")
	if !ok {
		return subtitle.Snapshot{}, false
	}

	return subtitle.Snapshot{At: at, Plus: plus, Minus: minus, Total: total}, true
}
