package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tallyops/clickerd/internal/adapters/ble"
	"github.com/tallyops/clickerd/internal/adapters/hub"
	"github.com/tallyops/clickerd/internal/domain/fusion"
	"github.com/tallyops/clickerd/internal/simclicker"
	"github.com/tallyops/clickerd/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestService(t *testing.T) (*Service, *simclicker.Dialer) {
	t.Helper()

	dialer := simclicker.NewDialer()
	s := New(
		WithDialer(dialer),
		WithProjectsDir(t.TempDir()),
		WithSessionTiming(0, time.Hour, 10*time.Millisecond),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s, dialer
}

// setupSingleJudge registers one device, configures one SINGLE slot
// and waits for the link to come up.
func setupSingleJudge(t *testing.T, s *Service, dialer *simclicker.Dialer, addr string) *simclicker.Device {
	t.Helper()

	dev := simclicker.NewDevice(addr, "Counter-"+addr)
	dialer.Add(dev)

	err := s.Setup(context.Background(), []JudgeSetup{
		{Index: 1, Mode: string(fusion.ModeSingle), Primary: addr},
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		referees := s.Referees()
		return len(referees) == 1 && referees[0].Status()["primary"] == string(ble.StatusConnected)
	})
	return dev
}

func streamRowCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("read stream: %v", err)
	}
	return len(strings.Split(strings.TrimSpace(string(data)), "\n"))
}

func TestSetupValidation(t *testing.T) {
	ctx := context.Background()

	stopped := New(WithDialer(simclicker.NewDialer()))
	if err := stopped.Setup(ctx, nil); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("setup before start: got %v, want ErrNotStarted", err)
	}

	s, _ := newTestService(t)

	cases := []struct {
		name   string
		judges []JudgeSetup
	}{
		{"no judges", nil},
		{"unknown fusion mode", []JudgeSetup{{Index: 1, Mode: "TRIPLE", Primary: "AA"}}},
		{"missing primary", []JudgeSetup{{Index: 1, Mode: "SINGLE"}}},
		{"dual without secondary", []JudgeSetup{{Index: 1, Mode: "DUAL", Primary: "AA"}}},
		{"duplicate index", []JudgeSetup{
			{Index: 1, Mode: "SINGLE", Primary: "AA"},
			{Index: 1, Mode: "SINGLE", Primary: "BB"},
		}},
	}
	for _, tc := range cases {
		if err := s.Setup(ctx, tc.judges); !errors.Is(err, ErrInvalidSetup) {
			t.Errorf("%s: got %v, want ErrInvalidSetup", tc.name, err)
		}
	}

	if got := len(s.Referees()); got != 0 {
		t.Fatalf("rejected setup left %d referees", got)
	}
}

func TestScoreFlowPersistsFusedValues(t *testing.T) {
	ctx := context.Background()
	s, dialer := newTestService(t)

	if _, err := s.CreateProject(ctx, "Spring Cup", MatchModeTournament, []string{"Qualifiers"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	s.SetMatchContext(ctx, "Qualifiers", "Alice")

	dev := setupSingleJudge(t, s, dialer, "AA:01")

	_, msgs, err := s.Hub().Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	dev.ClickPlus(3)
	dev.ClickMinus(1)

	waitFor(t, 2*time.Second, func() bool {
		score := s.Referees()[0].Score()
		return score.Total == 2 && score.Plus == 3 && score.Minus == 1
	})

	streamPath := filepath.Join(s.store.CurrentPath(), "Qualifiers", "Alice_Ref1.csv")
	waitFor(t, 2*time.Second, func() bool {
		return streamRowCount(t, streamPath) == 5 // header plus four events
	})

	data, err := os.ReadFile(streamPath)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	last := strings.Split(lines[len(lines)-1], ",")
	// CurrentTotal, TotalPlus, TotalMinus hold the fused values.
	if last[4] != "2" || last[6] != "3" || last[7] != "1" {
		t.Fatalf("fused values not logged: %v", last)
	}

	var sawScore bool
	for !sawScore {
		select {
		case msg := <-msgs:
			if msg.Type == hub.TypeScoreUpdate {
				sawScore = true
			}
		case <-time.After(time.Second):
			t.Fatal("no score_update broadcast")
		}
	}
}

func TestPersistenceFilter(t *testing.T) {
	zero := fusion.Score{}
	scored := fusion.Score{Total: 2, Plus: 3, Minus: 1}

	cases := []struct {
		name  string
		mc    MatchContext
		score fusion.Score
		want  bool
	}{
		{"no contestant", MatchContext{Mode: MatchModeFree}, scored, false},
		{"placeholder contestant", MatchContext{Contestant: PlaceholderContestant, Mode: MatchModeFree}, scored, false},
		{"free zero score", MatchContext{Contestant: "Alice", Mode: MatchModeFree}, zero, false},
		{"free real score", MatchContext{Contestant: "Alice", Mode: MatchModeFree}, scored, true},
		{"tournament zero score", MatchContext{Contestant: "Alice", Mode: MatchModeTournament}, zero, true},
	}
	for _, tc := range cases {
		if got := eligible(tc.mc, tc.score); got != tc.want {
			t.Errorf("%s: eligible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPlaceholderContestantBroadcastsWithoutLogging(t *testing.T) {
	ctx := context.Background()
	s, dialer := newTestService(t)

	if _, err := s.CreateProject(ctx, "Open Night", MatchModeFree, []string{"Main"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	s.SetMatchContext(ctx, "Main", PlaceholderContestant)

	dev := setupSingleJudge(t, s, dialer, "AA:02")

	_, msgs, err := s.Hub().Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	dev.ClickPlus(2)

	waitFor(t, time.Second, func() bool {
		return s.Referees()[0].Score().Plus == 2
	})
	select {
	case msg := <-msgs:
		if msg.Type != hub.TypeScoreUpdate {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast for placeholder contestant")
	}

	groupDir := filepath.Join(s.store.CurrentPath(), "Main")
	if entries, err := os.ReadDir(groupDir); err == nil && len(entries) > 0 {
		t.Fatalf("placeholder contestant left %d stream files", len(entries))
	}
}

func TestDualModeFusion(t *testing.T) {
	ctx := context.Background()
	s, dialer := newTestService(t)

	pri := simclicker.NewDevice("AA:03", "Counter-P")
	sec := simclicker.NewDevice("AA:04", "Counter-S")
	dialer.Add(pri)
	dialer.Add(sec)

	err := s.Setup(ctx, []JudgeSetup{
		{Index: 1, Mode: string(fusion.ModeDual), Primary: "AA:03", Secondary: "AA:04"},
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		status := s.Referees()[0].Status()
		return status["primary"] == string(ble.StatusConnected) &&
			status["secondary"] == string(ble.StatusConnected)
	})

	pri.ClickPlus(5)
	pri.ClickMinus(1)
	sec.ClickPlus(2)
	sec.ClickMinus(1)

	waitFor(t, time.Second, func() bool {
		score := s.Referees()[0].Score()
		return score.Total == 3 && score.Plus == 5 && score.Minus == 2
	})
}

func TestResetBroadcastsWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	s, dialer := newTestService(t)

	if _, err := s.CreateProject(ctx, "Spring Cup", MatchModeTournament, []string{"Qualifiers"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	s.SetMatchContext(ctx, "Qualifiers", "Bob")

	dev := setupSingleJudge(t, s, dialer, "AA:05")
	dev.ClickPlus(4)

	streamPath := filepath.Join(s.store.CurrentPath(), "Qualifiers", "Bob_Ref1.csv")
	waitFor(t, 2*time.Second, func() bool {
		return streamRowCount(t, streamPath) == 5
	})

	_, msgs, err := s.Hub().Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Type != hub.TypeScoreUpdate {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
		payload, ok := msg.Payload.(RefereePayload)
		if !ok {
			t.Fatalf("unexpected payload type %T", msg.Payload)
		}
		if !payload.Score.IsZero() {
			t.Fatalf("reset broadcast non-zero score: %+v", payload.Score)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast after reset")
	}

	if plus, minus := dev.Counters(); plus != 0 || minus != 0 {
		t.Fatalf("device not reset: plus=%d minus=%d", plus, minus)
	}
	if got := streamRowCount(t, streamPath); got != 5 {
		t.Fatalf("reset persisted rows: stream has %d lines", got)
	}
}

func TestFinalizeResult(t *testing.T) {
	ctx := context.Background()
	s, dialer := newTestService(t)

	if _, err := s.CreateProject(ctx, "Spring Cup", MatchModeTournament, []string{"Finals"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	s.SetMatchContext(ctx, "Finals", "Carol")

	dev := setupSingleJudge(t, s, dialer, "AA:06")
	dev.ClickPlus(6)
	dev.ClickMinus(2)

	waitFor(t, time.Second, func() bool {
		return s.Referees()[0].Score().Total == 4
	})

	if err := s.FinalizeResult(ctx); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	standings, err := s.Standings(ctx, "Finals")
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 1 {
		t.Fatalf("got %d standings, want 1", len(standings))
	}
	if standings[0].Contestant != "Carol" || standings[0].FinalScore != 4 {
		t.Fatalf("unexpected standing: %+v", standings[0])
	}
	judge, ok := standings[0].Judges["Referee 1"]
	if !ok {
		t.Fatalf("judge details missing: %+v", standings[0].Judges)
	}
	if judge.Total != 4 || judge.Plus != 6 || judge.Minus != 2 {
		t.Fatalf("unexpected judge detail: %+v", judge)
	}

	scored, err := s.ScoredContestants(ctx)
	if err != nil {
		t.Fatalf("scored contestants: %v", err)
	}
	if len(scored) != 1 || scored[0] != "Carol" {
		t.Fatalf("unexpected scored contestants: %v", scored)
	}

	s.SetMatchContext(ctx, "Finals", PlaceholderContestant)
	if err := s.FinalizeResult(ctx); !errors.Is(err, ErrInvalidSetup) {
		t.Fatalf("placeholder finalize: got %v, want ErrInvalidSetup", err)
	}
}

func TestExportDetails(t *testing.T) {
	ctx := context.Background()
	s, dialer := newTestService(t)

	if _, err := s.CreateProject(ctx, "Spring Cup", MatchModeTournament, []string{"Qualifiers"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	s.SetMatchContext(ctx, "Qualifiers", "Dave")

	dev := setupSingleJudge(t, s, dialer, "AA:07")
	dev.ClickPlus(3)

	streamPath := filepath.Join(s.store.CurrentPath(), "Qualifiers", "Dave_Ref1.csv")
	waitFor(t, 2*time.Second, func() bool {
		return streamRowCount(t, streamPath) == 4
	})

	if _, err := s.ExportDetails(ctx, "Qualifiers", nil, ExportOptions{}); !errors.Is(err, ErrInvalidSetup) {
		t.Fatalf("empty selection: got %v, want ErrInvalidSetup", err)
	}

	data, err := s.ExportDetails(ctx, "Qualifiers", nil, ExportOptions{TXT: true, SRT: true, SRTMode: "TOTAL"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{
		"Qualifiers/Dave/Ref1_Log.txt",
		"Qualifiers/Dave/Ref1_TOTAL.srt",
	} {
		if !names[want] {
			t.Errorf("archive missing %s (has %v)", want, zr.File)
		}
	}

	if _, err := s.ExportDetails(ctx, "NoSuchGroup", nil, ExportOptions{TXT: true}); !errors.Is(err, ErrNoExportData) {
		t.Fatalf("empty group: got %v, want ErrNoExportData", err)
	}
}

func TestTeardownClearsJudges(t *testing.T) {
	ctx := context.Background()
	s, dialer := newTestService(t)

	dev := setupSingleJudge(t, s, dialer, "AA:08")

	if err := s.Teardown(ctx); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if got := len(s.Referees()); got != 0 {
		t.Fatalf("teardown left %d referees", got)
	}

	// Clicks on a torn-down device go nowhere.
	dev.ClickPlus(1)

	stats := s.Stats(ctx)
	if stats.Referees != 0 || stats.AppendQueueLen != 0 {
		t.Fatalf("unexpected stats after teardown: %+v", stats)
	}
}
