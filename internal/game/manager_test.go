package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/playmatatu/carrom/internal/auth"
	"github.com/playmatatu/carrom/internal/config"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []Event
	snaps  int
}

func (b *recordingBroadcaster) MatchEvent(token string, e Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) MatchSnapshot(token string, snap Snapshot) {
	b.mu.Lock()
	b.snaps++
	b.mu.Unlock()
}

func (b *recordingBroadcaster) has(t EventType) bool {
	_, ok := b.find(t)
	return ok
}

func (b *recordingBroadcaster) find(t EventType) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.Type == t {
			return e, true
		}
	}
	return Event{}, false
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           "test-secret",
		SeatTokenTTLMinutes: 10,
		FrameIntervalMs:     1,
		PhysicsSubSteps:     8,
		FinalizeDelayMs:     1,
		AIThinkMs:           5,
		AIAimMs:             5,
		IdleForfeitSeconds:  120,
		SnapshotTTLMinutes:  1,
	}
}

func setupManager(t *testing.T) (*GameManager, *recordingBroadcaster) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	gm := NewGameManager(ctx, nil, nil, testConfig())
	b := &recordingBroadcaster{}
	gm.SetBroadcaster(b)
	t.Cleanup(func() {
		gm.Shutdown()
		cancel()
	})
	return gm, b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCreateAIMatch(t *testing.T) {
	gm, b := setupManager(t)

	m, seatToken, err := gm.CreateAIMatch("alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	info := m.Info()
	if info.Status != StatusInProgress || info.Mode != ModeAI {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Names != [2]string{"alice", "Computer"} || info.Seats != [2]Seat{SeatHuman, SeatAI} {
		t.Errorf("unexpected seats %+v", info)
	}

	claims, err := auth.ParseSeatTokenFor("test-secret", seatToken, m.Token)
	if err != nil {
		t.Fatalf("seat token: %v", err)
	}
	if claims.Seat != 1 || claims.Name != "alice" {
		t.Errorf("claims = %+v", claims)
	}

	if got, err := gm.GetMatch(m.Token); err != nil || got != m {
		t.Errorf("GetMatch = %v, %v", got, err)
	}
	if gm.GetActiveMatchCount() != 1 {
		t.Errorf("active count = %d, want 1", gm.GetActiveMatchCount())
	}

	snap, err := gm.Snapshot(m.Token)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Active != Player1 || snap.Phase != PhasePlacing || len(snap.Coins) != 2*CoinsPerColor+1 {
		t.Errorf("unexpected opening snapshot: active=%d phase=%s coins=%d", snap.Active, snap.Phase, len(snap.Coins))
	}
	waitFor(t, "a broadcast snapshot", func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.snaps > 0
	})

	if err := m.Shoot(ShotCommand{Player: Player1, StrikerX: 500, Angle: -1.57, Power: 50}); err != ErrSeatMismatch {
		t.Errorf("remote shot into a local seat: err=%v, want ErrSeatMismatch", err)
	}
}

func TestPrivateMatchJoin(t *testing.T) {
	gm, _ := setupManager(t)

	m, _, err := gm.CreatePrivateMatch("host", "1234")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !m.Info().Locked || m.Status() != StatusWaiting {
		t.Fatalf("room should be locked and waiting: %+v", m.Info())
	}
	if err := m.Shoot(ShotCommand{Player: Player1, StrikerX: 500, Angle: -1.57, Power: 50}); err != ErrMatchNotStarted {
		t.Errorf("shot before join: err=%v, want ErrMatchNotStarted", err)
	}

	if _, _, err := gm.JoinPrivateMatch(m.Token, "guest", "0000"); err != ErrBadPasscode {
		t.Errorf("bad passcode: err=%v", err)
	}
	_, seatToken, err := gm.JoinPrivateMatch(m.Token, "guest", "1234")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	claims, err := auth.ParseSeatTokenFor("test-secret", seatToken, m.Token)
	if err != nil || claims.Seat != 2 {
		t.Errorf("guest claims = %+v, %v", claims, err)
	}
	if m.Status() != StatusInProgress || m.Info().Names[1] != "guest" {
		t.Errorf("match after join: %+v", m.Info())
	}
	if _, _, err := gm.JoinPrivateMatch(m.Token, "late", "1234"); err != ErrSeatTaken {
		t.Errorf("third player: err=%v, want ErrSeatTaken", err)
	}

	ai, _, _ := gm.CreateAIMatch("solo")
	if _, _, err := gm.JoinPrivateMatch(ai.Token, "x", ""); err != ErrNotPrivate {
		t.Errorf("join AI match: err=%v, want ErrNotPrivate", err)
	}
	if _, _, err := gm.JoinPrivateMatch("nope", "x", ""); err != ErrMatchNotFound {
		t.Errorf("join unknown match: err=%v, want ErrMatchNotFound", err)
	}
}

func TestQueuedMatchShotAndForfeit(t *testing.T) {
	gm, b := setupManager(t)

	m, err := gm.CreateQueuedMatch("q-match", [2]string{"ann", "ben"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := gm.CreateQueuedMatch("q-match", [2]string{"a", "b"}); err == nil {
		t.Errorf("duplicate token should be rejected")
	}

	if err := m.Shoot(ShotCommand{Player: Player2, StrikerX: 500, Angle: 1.57, Power: 50}); err != ErrNotYourTurn {
		t.Errorf("out of turn: err=%v, want ErrNotYourTurn", err)
	}
	if err := m.Shoot(ShotCommand{Player: Player1, StrikerX: 500, Angle: -1.57, Power: 60}); err != nil {
		t.Fatalf("shot: %v", err)
	}
	waitFor(t, "shot_fired broadcast", func() bool { return b.has(EventShotFired) })

	if err := gm.Forfeit(m.Token, Player1, "idle"); err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	waitFor(t, "game_over broadcast", func() bool { return b.has(EventGameOver) })
	if over, _ := b.find(EventGameOver); over.Winner != Player2 || over.Reason != "idle" {
		t.Errorf("game_over = %+v, want player 2 winning by idle", over)
	}
	waitFor(t, "completed status", func() bool { return m.Status() == StatusCompleted })

	if err := m.Concede(Player2); err != ErrMatchFinished {
		t.Errorf("concede after game over: err=%v, want ErrMatchFinished", err)
	}

	gm.EndMatch(m.Token)
	gm.EndMatch(m.Token)
	if _, err := gm.GetMatch(m.Token); err != ErrMatchNotFound {
		t.Errorf("ended match still registered: %v", err)
	}
	if _, err := gm.Snapshot(m.Token); err != ErrMatchNotFound {
		t.Errorf("snapshot of ended match without redis: err=%v", err)
	}
}

func TestEndMatchCancelsUnfinished(t *testing.T) {
	gm, _ := setupManager(t)
	m, _, _ := gm.CreatePrivateMatch("host", "")
	gm.EndMatch(m.Token)
	if m.Status() != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", m.Status())
	}
	if _, err := m.runner.Snapshot(); err != ErrSessionClosed {
		t.Errorf("runner should be stopped, err=%v", err)
	}
}

func TestTuningFromConfig(t *testing.T) {
	tu := TuningFromConfig(testConfig())
	if tu.FrameInterval != time.Millisecond || tu.AIThinkDelay != 5*time.Millisecond || tu.SubSteps != 8 {
		t.Errorf("unexpected tuning %+v", tu)
	}
	if TuningFromConfig(nil) != DefaultTuning() {
		t.Errorf("nil config should give the default tuning")
	}
	if got := TuningFromConfig(&config.Config{}); got != DefaultTuning() {
		t.Errorf("zero config should fall back to defaults, got %+v", got)
	}
}

func TestParseMember(t *testing.T) {
	token, p := parseMember(idleMember("abc123", Player2))
	if token != "abc123" || p != Player2 {
		t.Errorf("parseMember = %q, %d", token, p)
	}
	for _, bad := range []string{"", "g:abc", "x:abc:p:1", "g:abc:p:3", "g:abc:p:one"} {
		if token, _ := parseMember(bad); token != "" {
			t.Errorf("parseMember(%q) should fail, got %q", bad, token)
		}
	}
}
