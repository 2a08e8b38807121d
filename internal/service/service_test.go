package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pitchwatch/internal/alerting"
	"pitchwatch/internal/config"
	"pitchwatch/internal/detect"
	"pitchwatch/internal/ledger"
	"pitchwatch/internal/mlb"
	"pitchwatch/internal/suspect"
)

var cycleTime = time.Date(2025, time.July, 10, 19, 30, 0, 0, time.UTC)

type fakeProvider struct {
	games      []mlb.Game
	listErr    error
	snapshots  map[int64]mlb.Snapshot
	statsErr   error
	statsCalls int
}

func (f *fakeProvider) ListLiveGames(ctx context.Context, date time.Time) ([]mlb.Game, error) {
	return f.games, f.listErr
}

func (f *fakeProvider) FetchPitcherStats(ctx context.Context, personID int64) (mlb.Snapshot, error) {
	f.statsCalls++
	if f.statsErr != nil {
		return mlb.Snapshot{}, f.statsErr
	}
	snap, ok := f.snapshots[personID]
	if !ok {
		return mlb.Snapshot{}, errors.New("unknown pitcher")
	}
	return snap, nil
}

type fakeExtractor struct {
	subs map[int64][]detect.Substitution
	errs map[int64]error
}

func (f *fakeExtractor) Extract(ctx context.Context, game mlb.Game) ([]detect.Substitution, error) {
	if err := f.errs[game.GamePk]; err != nil {
		return nil, err
	}
	return f.subs[game.GamePk], nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note)
	return f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Alerting: config.AlertingConfig{
			Enabled:  true,
			Channels: []string{"test"},
		},
	}
}

func decp(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return &d
}

func suspiciousSnapshot(t *testing.T, id int64, name string) mlb.Snapshot {
	t.Helper()
	return mlb.Snapshot{
		PitcherID: id,
		FullName:  name,
		DebutYear: cycleTime.Year(),
		ERA:       decp(t, "6.20"),
	}
}

func newTestService(provider *fakeProvider, extractor *fakeExtractor, notifier *fakeNotifier) *Service {
	return New(testConfig(), nil, provider, extractor, suspect.Default(), ledger.New(), nil, notifier, zerolog.Nop())
}

func TestQualifyingEventAlertsExactlyOnce(t *testing.T) {
	provider := &fakeProvider{
		games:     []mlb.Game{{GamePk: 1, Home: "Athletics", Away: "Mariners", Status: mlb.StatusLive, Inning: 7}},
		snapshots: map[int64]mlb.Snapshot{100: suspiciousSnapshot(t, 100, "Rook E. Pitcher")},
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {{GamePk: 1, PitcherID: 100, Inning: 7}},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("expected exactly one notification across repeated polls, got %d", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.Pitcher != "Rook E. Pitcher" || note.Inning != 7 || note.HomeTeam != "Athletics" {
		t.Fatalf("unexpected notification: %+v", note)
	}
}

func TestNotSuspiciousIsReevaluatedOnLaterPolls(t *testing.T) {
	clean := mlb.Snapshot{PitcherID: 100, FullName: "Quiet Rookie", DebutYear: cycleTime.Year(), ERA: decp(t, "3.00")}
	provider := &fakeProvider{
		games:     []mlb.Game{{GamePk: 1, Status: mlb.StatusLive, Inning: 8}},
		snapshots: map[int64]mlb.Snapshot{100: clean},
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {{GamePk: 1, PitcherID: 100, Inning: 8}},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("clean stats should not alert, got %d notifications", len(notifier.notes))
	}

	// Stats update between polls; the key was never admitted, so the
	// substitution qualifies now.
	provider.snapshots[100] = suspiciousSnapshot(t, 100, "Quiet Rookie")
	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("updated stats should alert, got %d notifications", len(notifier.notes))
	}
}

func TestTwoPitchersInSameGameAlertIndependently(t *testing.T) {
	provider := &fakeProvider{
		games: []mlb.Game{{GamePk: 1, Status: mlb.StatusLive, Inning: 8}},
		snapshots: map[int64]mlb.Snapshot{
			100: suspiciousSnapshot(t, 100, "First Rookie"),
			200: suspiciousSnapshot(t, 200, "Second Rookie"),
		},
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {
			{GamePk: 1, PitcherID: 100, Inning: 7},
			{GamePk: 1, PitcherID: 200, Inning: 8},
		},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(notifier.notes) != 2 {
		t.Fatalf("both pitchers should alert, got %d notifications", len(notifier.notes))
	}
}

func TestListFailureSkipsCycle(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("schedule unavailable")}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, &fakeExtractor{}, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err == nil {
		t.Fatal("list failure should surface so the scheduler can log it")
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("failed cycle must not notify, got %d", len(notifier.notes))
	}
}

func TestExtractionFailureDoesNotStopOtherGames(t *testing.T) {
	provider := &fakeProvider{
		games: []mlb.Game{
			{GamePk: 1, Status: mlb.StatusLive, Inning: 7},
			{GamePk: 2, Status: mlb.StatusLive, Inning: 7},
		},
		snapshots: map[int64]mlb.Snapshot{300: suspiciousSnapshot(t, 300, "Survivor")},
	}
	extractor := &fakeExtractor{
		subs: map[int64][]detect.Substitution{
			2: {{GamePk: 2, PitcherID: 300, Inning: 7}},
		},
		errs: map[int64]error{1: errors.New("feed unavailable")},
	}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle should not fail as a whole: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("game 2 should still alert, got %d", len(notifier.notes))
	}
}

func TestStatsFetchFailureSkipsEventOnly(t *testing.T) {
	provider := &fakeProvider{
		games:    []mlb.Game{{GamePk: 1, Status: mlb.StatusLive, Inning: 7}},
		statsErr: errors.New("stats endpoint down"),
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {{GamePk: 1, PitcherID: 100, Inning: 7}},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("per-event failure must not fail the cycle: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("no notification expected, got %d", len(notifier.notes))
	}
}

func TestDeliveryFailureStillAdmits(t *testing.T) {
	provider := &fakeProvider{
		games:     []mlb.Game{{GamePk: 1, Status: mlb.StatusLive, Inning: 7}},
		snapshots: map[int64]mlb.Snapshot{100: suspiciousSnapshot(t, 100, "Lost Alert")},
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {{GamePk: 1, PitcherID: 100, Inning: 7}},
	}}
	notifier := &fakeNotifier{err: errors.New("channel not found")}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	// At-most-once: one failed attempt, no retry on the next poll.
	if len(notifier.notes) != 1 {
		t.Fatalf("expected a single delivery attempt, got %d", len(notifier.notes))
	}
}

func TestEmbeddedSnapshotSkipsStatsFetch(t *testing.T) {
	snap := suspiciousSnapshot(t, 100, "Boxscore Rookie")
	provider := &fakeProvider{
		games: []mlb.Game{{GamePk: 1, Status: mlb.StatusLive, Inning: 7}},
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {{GamePk: 1, PitcherID: 100, Inning: 7, Snapshot: &snap}},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if provider.statsCalls != 0 {
		t.Fatalf("embedded snapshot should avoid the stats fetch, got %d calls", provider.statsCalls)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notes))
	}
}

func TestConcurrentCyclesAlertOnce(t *testing.T) {
	snap := suspiciousSnapshot(t, 100, "Raced Rookie")
	provider := &fakeProvider{
		games: []mlb.Game{{GamePk: 1, Status: mlb.StatusLive, Inning: 7}},
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {{GamePk: 1, PitcherID: 100, Inning: 7, Snapshot: &snap}},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	const cycles = 8
	var wg sync.WaitGroup
	for i := 0; i < cycles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
				t.Errorf("cycle failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(notifier.notes) != 1 {
		t.Fatalf("racing cycles must produce exactly one notification, got %d", len(notifier.notes))
	}
}

func TestEmbeddedSnapshotWithoutDebutYearFallsBack(t *testing.T) {
	embedded := mlb.Snapshot{PitcherID: 100, FullName: "No Debut", ERA: decp(t, "6.20")}
	provider := &fakeProvider{
		games:     []mlb.Game{{GamePk: 1, Status: mlb.StatusLive, Inning: 7}},
		snapshots: map[int64]mlb.Snapshot{100: suspiciousSnapshot(t, 100, "No Debut")},
	}
	extractor := &fakeExtractor{subs: map[int64][]detect.Substitution{
		1: {{GamePk: 1, PitcherID: 100, Inning: 7, Snapshot: &embedded}},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, extractor, notifier)

	if err := svc.ProcessCycle(context.Background(), cycleTime); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if provider.statsCalls != 1 {
		t.Fatalf("missing debut year should trigger a stats fetch, got %d calls", provider.statsCalls)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notes))
	}
}
