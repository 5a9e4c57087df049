package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playmatatu/carrom/internal/auth"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/redis/go-redis/v9"
)

var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchNotStarted = errors.New("match has not started")
	ErrMatchFinished   = errors.New("match is finished")
	ErrSeatTaken       = errors.New("seat already taken")
	ErrBadPasscode     = errors.New("wrong passcode")
	ErrNotPrivate      = errors.New("match is not a private room")
)

const (
	idleSetKey      = "carrom_idle"
	finishedLinger  = 5 * time.Minute
	persistTimeout  = 5 * time.Second
	writeQueueSize  = 64
	seatNameMaxSize = 32
)

// Broadcaster receives what a hosted match produces. It is called from the match's
// runner goroutine and must not block.
type Broadcaster interface {
	MatchEvent(token string, e Event)
	MatchSnapshot(token string, snap Snapshot)
}

// Match is one hosted game: a session driven by its own runner plus the seat bookkeeping.
type Match struct {
	Token     string
	Mode      Mode
	CreatedAt time.Time

	runner       *Runner
	passcodeHash string

	writes       chan func(context.Context) error
	writesClosed bool

	mu        sync.Mutex
	status    MatchStatus
	names     [2]string
	joined    [2]bool
	shots     int
	idleArmed int
}

// MatchInfo is the public view of a match.
type MatchInfo struct {
	Token     string      `json:"token"`
	Mode      Mode        `json:"mode"`
	Status    MatchStatus `json:"status"`
	Names     [2]string   `json:"names"`
	Seats     [2]Seat     `json:"seats"`
	Locked    bool        `json:"locked"`
	CreatedAt time.Time   `json:"created_at"`
}

// Info returns a copy of the match's public state.
func (m *Match) Info() MatchInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MatchInfo{
		Token:     m.Token,
		Mode:      m.Mode,
		Status:    m.status,
		Names:     m.names,
		Seats:     seatsFor(m.Mode),
		Locked:    m.passcodeHash != "",
		CreatedAt: m.CreatedAt,
	}
}

// Status returns the lifecycle state.
func (m *Match) Status() MatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Match) setStatus(s MatchStatus) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Match) playable() error {
	switch m.Status() {
	case StatusWaiting:
		return ErrMatchNotStarted
	case StatusCompleted, StatusCancelled:
		return ErrMatchFinished
	}
	return nil
}

// Input forwards a local pointer or key event for a human seat.
func (m *Match) Input(ev InputEvent) error {
	if err := m.playable(); err != nil {
		return err
	}
	return m.runner.HandleInput(ev)
}

// Shoot forwards a finished shot for a remote seat.
func (m *Match) Shoot(cmd ShotCommand) error {
	if err := m.playable(); err != nil {
		return err
	}
	return m.runner.ApplyRemoteShot(cmd)
}

// Concede ends the match in favour of p's opponent.
func (m *Match) Concede(p Player) error {
	return m.forfeit(p, "concede")
}

func (m *Match) forfeit(p Player, reason string) error {
	if err := m.playable(); err != nil {
		return err
	}
	return m.runner.Forfeit(p, reason)
}

// Snapshot returns the live session state.
func (m *Match) Snapshot() (Snapshot, error) {
	return m.runner.Snapshot()
}

// GameManager hosts all live matches on this instance.
type GameManager struct {
	matches     map[string]*Match
	rdb         *redis.Client
	store       *store.Store
	config      *config.Config
	broadcaster Broadcaster
	ctx         context.Context
	mu          sync.RWMutex
}

var (
	// Global game manager instance
	Manager *GameManager
)

// InitializeManager creates the global manager. Match runners stop when ctx is cancelled.
func InitializeManager(ctx context.Context, st *store.Store, rdb *redis.Client, cfg *config.Config) {
	Manager = NewGameManager(ctx, st, rdb, cfg)
	log.Printf("[CARROM] Game manager initialized (store=%v redis=%v)", st != nil, rdb != nil)
}

// NewGameManager creates a manager. The store and Redis client are optional.
func NewGameManager(ctx context.Context, st *store.Store, rdb *redis.Client, cfg *config.Config) *GameManager {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = config.Load()
	}
	return &GameManager{
		matches: make(map[string]*Match),
		rdb:     rdb,
		store:   st,
		config:  cfg,
		ctx:     ctx,
	}
}

// SetBroadcaster installs the sink for live events and snapshots.
func (gm *GameManager) SetBroadcaster(b Broadcaster) {
	gm.mu.Lock()
	gm.broadcaster = b
	gm.mu.Unlock()
}

func (gm *GameManager) getBroadcaster() Broadcaster {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.broadcaster
}

// GetConfig returns the manager's configuration.
func (gm *GameManager) GetConfig() *config.Config {
	return gm.config
}

// Store returns the persistence layer, or nil when none is configured.
func (gm *GameManager) Store() *store.Store {
	return gm.store
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// NewMatchToken returns a fresh match token.
func NewMatchToken() string {
	return generateToken(8)
}

// TuningFromConfig maps the configured timings onto engine tuning.
func TuningFromConfig(cfg *config.Config) Tuning {
	if cfg == nil {
		return DefaultTuning()
	}
	return Tuning{
		SubSteps:      cfg.PhysicsSubSteps,
		FinalizeDelay: cfg.FinalizeDelay(),
		AIThinkDelay:  cfg.AIThinkDelay(),
		AIAimDelay:    cfg.AIAimDelay(),
		FrameInterval: cfg.FrameInterval(),
	}.withDefaults()
}

func cleanName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	if len(name) > seatNameMaxSize {
		name = name[:seatNameMaxSize]
	}
	return name
}

// CreateAIMatch starts a match against the planner. The caller gets seat 1.
func (gm *GameManager) CreateAIMatch(name string) (*Match, string, error) {
	m := gm.newMatch(NewMatchToken(), ModeAI, "")
	m.names = [2]string{cleanName(name, "Player"), "Computer"}
	m.joined = [2]bool{true, true}
	m.status = StatusInProgress

	seatToken, err := gm.IssueSeat(m.Token, 1, m.names[0])
	if err != nil {
		return nil, "", err
	}
	gm.start(m)
	return m, seatToken, nil
}

// CreatePrivateMatch opens a room that a second player joins with the passcode. The caller gets seat 1.
func (gm *GameManager) CreatePrivateMatch(name, passcode string) (*Match, string, error) {
	hash, err := auth.HashPasscode(passcode)
	if err != nil {
		return nil, "", err
	}
	m := gm.newMatch(NewMatchToken(), ModePrivate, hash)
	m.names[0] = cleanName(name, "Player 1")
	m.joined[0] = true
	m.status = StatusWaiting

	seatToken, err := gm.IssueSeat(m.Token, 1, m.names[0])
	if err != nil {
		return nil, "", err
	}
	gm.start(m)
	return m, seatToken, nil
}

// JoinPrivateMatch takes seat 2 of a private room and starts play.
func (gm *GameManager) JoinPrivateMatch(token, name, passcode string) (*Match, string, error) {
	m, err := gm.GetMatch(token)
	if err != nil {
		return nil, "", err
	}
	if m.Mode != ModePrivate {
		return nil, "", ErrNotPrivate
	}
	if !auth.CheckPasscode(m.passcodeHash, passcode) {
		return nil, "", ErrBadPasscode
	}

	m.mu.Lock()
	if m.joined[1] {
		m.mu.Unlock()
		return nil, "", ErrSeatTaken
	}
	if m.status != StatusWaiting {
		m.mu.Unlock()
		return nil, "", ErrMatchFinished
	}
	m.joined[1] = true
	m.names[1] = cleanName(name, "Player 2")
	m.status = StatusInProgress
	seat2 := m.names[1]
	m.mu.Unlock()

	seatToken, err := gm.IssueSeat(m.Token, 2, seat2)
	if err != nil {
		return nil, "", err
	}

	gm.persist(m, func(ctx context.Context) error {
		if err := gm.store.SetSeatName(ctx, m.Token, 2, seat2); err != nil {
			return err
		}
		return gm.store.SetMatchStatus(ctx, m.Token, store.StatusInProgress)
	})
	log.Printf("[CARROM] Player %q joined private match %s", seat2, m.Token)

	// Push a fresh snapshot so the waiting seat sees the room fill.
	m.runner.Do(func(*Session) {})
	gm.armIdle(m, Player1, 0)
	return m, seatToken, nil
}

// CreateQueuedMatch hosts a match the matchmaker paired. Seat tokens are issued when each player polls the queue.
func (gm *GameManager) CreateQueuedMatch(token string, names [2]string) (*Match, error) {
	if _, err := gm.GetMatch(token); err == nil {
		return nil, fmt.Errorf("match %s already exists", token)
	}
	m := gm.newMatch(token, ModeQueued, "")
	m.names = [2]string{cleanName(names[0], "Player 1"), cleanName(names[1], "Player 2")}
	m.joined = [2]bool{true, true}
	m.status = StatusInProgress
	gm.start(m)
	gm.armIdle(m, Player1, 0)
	return m, nil
}

// IssueSeat signs a seat token for a match.
func (gm *GameManager) IssueSeat(token string, seat int, name string) (string, error) {
	return auth.IssueSeatToken(gm.config.JWTSecret, token, seat, name, gm.config.SeatTokenTTL())
}

func (gm *GameManager) newMatch(token string, mode Mode, passcodeHash string) *Match {
	return &Match{
		Token:        token,
		Mode:         mode,
		CreatedAt:    time.Now(),
		passcodeHash: passcodeHash,
		writes:       make(chan func(context.Context) error, writeQueueSize),
		idleArmed:    -1,
	}
}

// start builds the session and runner, registers the match and persists it.
func (gm *GameManager) start(m *Match) {
	session := NewSession(SessionOptions{
		Seats:  seatsFor(m.Mode),
		Tuning: TuningFromConfig(gm.config),
		Seed:   time.Now().UnixNano(),
		Sink:   SinkFunc(func(e Event) { gm.onEvent(m, e) }),
		Logger: log.Default(),
	})
	m.runner = NewRunner(session, func(snap Snapshot) { gm.onSnapshot(m, snap) })

	info := m.Info()
	if gm.store != nil {
		go gm.writer(m)
	}
	gm.persist(m, func(ctx context.Context) error {
		return gm.store.CreateMatch(ctx, &store.Match{
			Token:     m.Token,
			Mode:      string(m.Mode),
			Status:    string(info.Status),
			Seat1Name: info.Names[0],
			Seat2Name: info.Names[1],
			CreatedAt: m.CreatedAt.UTC(),
		})
	})

	gm.mu.Lock()
	gm.matches[m.Token] = m
	gm.mu.Unlock()

	m.runner.Start(gm.ctx)
	log.Printf("[CARROM] Match %s created (mode=%s status=%s)", m.Token, m.Mode, info.Status)
}

// onEvent runs on the match's runner goroutine.
func (gm *GameManager) onEvent(m *Match, e Event) {
	switch e.Type {
	case EventShotFired:
		if e.Shot == nil {
			break
		}
		m.mu.Lock()
		m.shots++
		n := m.shots
		m.mu.Unlock()
		gm.clearIdle(m.Token, e.Player)
		shot := store.Shot{
			MatchToken: m.Token,
			ShotNumber: n,
			Player:     int(e.Shot.Player),
			StrikerX:   e.Shot.StrikerX,
			Angle:      e.Shot.Angle,
			Power:      e.Shot.Power,
		}
		gm.persist(m, func(ctx context.Context) error { return gm.store.RecordShot(ctx, shot) })

	case EventGameOver:
		m.setStatus(StatusCompleted)
		gm.clearIdle(m.Token, Player1)
		gm.clearIdle(m.Token, Player2)
		scores := m.runner.session.Turn.Scores
		winner, reason := int(e.Winner), e.Reason
		gm.persist(m, func(ctx context.Context) error {
			return gm.store.CompleteMatch(ctx, m.Token, winner, reason, scores)
		})
		time.AfterFunc(finishedLinger, func() { gm.EndMatch(m.Token) })
	}

	if b := gm.getBroadcaster(); b != nil {
		b.MatchEvent(m.Token, e)
	}
}

// onSnapshot runs on the match's runner goroutine.
func (gm *GameManager) onSnapshot(m *Match, snap Snapshot) {
	if b := gm.getBroadcaster(); b != nil {
		b.MatchSnapshot(m.Token, snap)
	}
	if snap.Phase == PhaseInFlight {
		return
	}
	if snap.Phase == PhasePlacing && m.Status() == StatusInProgress {
		gm.armIdle(m, snap.Active, snap.ShotNumber)
	}
	if gm.rdb != nil {
		go func() {
			if err := gm.saveSnapshotToRedis(m.Token, snap); err != nil {
				log.Printf("[REDIS] Failed to cache snapshot for %s: %v", m.Token, err)
			}
		}()
	}
}

// persist queues a best-effort store write. Writes for one match run in order on its writer goroutine.
func (gm *GameManager) persist(m *Match, fn func(ctx context.Context) error) {
	if gm.store == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writesClosed {
		return
	}
	select {
	case m.writes <- fn:
	default:
		log.Printf("[DB] write queue full for match %s, dropping write", m.Token)
	}
}

func (gm *GameManager) writer(m *Match) {
	for fn := range m.writes {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := fn(ctx); err != nil {
			log.Printf("[DB] persist failed for match %s: %v", m.Token, err)
		}
		cancel()
	}
}

func (m *Match) closeWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.writesClosed {
		m.writesClosed = true
		close(m.writes)
	}
}

// GetMatch returns a live match.
func (gm *GameManager) GetMatch(token string) (*Match, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	m, ok := gm.matches[token]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// ListMatches returns the public view of every live match.
func (gm *GameManager) ListMatches() []MatchInfo {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	out := make([]MatchInfo, 0, len(gm.matches))
	for _, m := range gm.matches {
		out = append(out, m.Info())
	}
	return out
}

// GetActiveMatchCount returns how many matches this instance hosts.
func (gm *GameManager) GetActiveMatchCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.matches)
}

// Snapshot returns a match's state: live when hosted here, otherwise the Redis copy.
func (gm *GameManager) Snapshot(token string) (Snapshot, error) {
	if m, err := gm.GetMatch(token); err == nil {
		return m.Snapshot()
	}
	if gm.rdb == nil {
		return Snapshot{}, ErrMatchNotFound
	}
	return gm.loadSnapshotFromRedis(token)
}

// Forfeit ends a hosted match against player p.
func (gm *GameManager) Forfeit(token string, p Player, reason string) error {
	m, err := gm.GetMatch(token)
	if err != nil {
		return err
	}
	log.Printf("[CARROM] Forfeiting player %d in match %s (%s)", p, token, reason)
	return m.forfeit(p, reason)
}

// EndMatch stops a match's runner and forgets it. Safe to call more than once.
func (gm *GameManager) EndMatch(token string) {
	gm.mu.Lock()
	m, ok := gm.matches[token]
	if ok {
		delete(gm.matches, token)
	}
	gm.mu.Unlock()
	if !ok {
		return
	}

	if m.Status() != StatusCompleted {
		m.setStatus(StatusCancelled)
		gm.persist(m, func(ctx context.Context) error {
			return gm.store.SetMatchStatus(ctx, token, store.StatusCancelled)
		})
	}
	m.runner.Stop()
	m.closeWrites()
	gm.clearIdle(token, Player1)
	gm.clearIdle(token, Player2)
	log.Printf("[CARROM] Match %s closed", token)
}

// Shutdown stops every runner.
func (gm *GameManager) Shutdown() {
	gm.mu.RLock()
	tokens := make([]string, 0, len(gm.matches))
	for t := range gm.matches {
		tokens = append(tokens, t)
	}
	gm.mu.RUnlock()
	for _, t := range tokens {
		gm.EndMatch(t)
	}
}

func snapshotKey(token string) string {
	return "carrom:" + token + ":state"
}

// saveSnapshotToRedis caches the latest settled snapshot so any instance can serve it.
func (gm *GameManager) saveSnapshotToRedis(token string, snap Snapshot) error {
	if gm.rdb == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	return gm.rdb.SetEx(ctx, snapshotKey(token), data, gm.config.SnapshotTTL()).Err()
}

func (gm *GameManager) loadSnapshotFromRedis(token string) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	data, err := gm.rdb.Get(ctx, snapshotKey(token)).Bytes()
	if err == redis.Nil {
		return Snapshot{}, ErrMatchNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("corrupt snapshot for %s: %w", token, err)
	}
	return snap, nil
}

func idleMember(token string, p Player) string {
	return fmt.Sprintf("g:%s:p:%d", token, p)
}

// armIdle schedules an idle forfeit for the player to move, once per shot number.
// AI seats never idle.
func (gm *GameManager) armIdle(m *Match, p Player, shotNumber int) {
	if gm.rdb == nil || p == NoPlayer {
		return
	}
	if seatsFor(m.Mode)[p.index()] == SeatAI {
		return
	}
	m.mu.Lock()
	if m.idleArmed == shotNumber {
		m.mu.Unlock()
		return
	}
	m.idleArmed = shotNumber
	m.mu.Unlock()

	deadline := time.Now().Add(time.Duration(gm.config.IdleForfeitSeconds) * time.Second).Unix()
	member := idleMember(m.Token, p)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := gm.rdb.ZAdd(ctx, idleSetKey, redis.Z{Score: float64(deadline), Member: member}).Err(); err != nil {
			log.Printf("[IDLE] Failed to arm idle timer %s: %v", member, err)
		}
	}()
}

func (gm *GameManager) clearIdle(token string, p Player) {
	if gm.rdb == nil {
		return
	}
	member := idleMember(token, p)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		gm.rdb.ZRem(ctx, idleSetKey, member)
	}()
}
