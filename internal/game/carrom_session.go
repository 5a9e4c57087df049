package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// Seat says who drives a player.
type Seat string

const (
	SeatHuman  Seat = "human"  // local pointer and key input
	SeatAI     Seat = "ai"     // the shot planner
	SeatRemote Seat = "remote" // finished shots from a peer
)

// Phase is the turn state machine position.
type Phase string

const (
	PhasePlacing  Phase = "placing"
	PhaseAiming   Phase = "aiming"
	PhaseInFlight Phase = "in_flight"
	PhaseSettling Phase = "settling"
	PhaseResolved Phase = "resolved"
	PhaseGameOver Phase = "game_over"
)

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrInMotion      = errors.New("bodies still in motion")
	ErrGameOver      = errors.New("game is over")
	ErrSessionClosed = errors.New("session closed")
	ErrSeatMismatch  = errors.New("seat does not accept this input")
	ErrInvalidPlayer = errors.New("invalid player")
)

// Tuning holds the timing knobs of a session.
type Tuning struct {
	SubSteps      int
	FinalizeDelay time.Duration
	AIThinkDelay  time.Duration
	AIAimDelay    time.Duration
	FrameInterval time.Duration
}

// DefaultTuning returns the standard session timings.
func DefaultTuning() Tuning {
	return Tuning{
		SubSteps:      DefaultSubSteps,
		FinalizeDelay: 100 * time.Millisecond,
		AIThinkDelay:  800 * time.Millisecond,
		AIAimDelay:    300 * time.Millisecond,
		FrameInterval: 16 * time.Millisecond,
	}
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.SubSteps < 1 {
		t.SubSteps = d.SubSteps
	}
	if t.FinalizeDelay <= 0 {
		t.FinalizeDelay = d.FinalizeDelay
	}
	if t.AIThinkDelay <= 0 {
		t.AIThinkDelay = d.AIThinkDelay
	}
	if t.AIAimDelay <= 0 {
		t.AIAimDelay = d.AIAimDelay
	}
	if t.FrameInterval <= 0 {
		t.FrameInterval = d.FrameInterval
	}
	return t
}

// SessionOptions configures a new session.
type SessionOptions struct {
	Width, Height float64 // viewport; zero means the default board
	Seats         [2]Seat
	FirstPlayer   Player
	Tuning        Tuning
	Seed          int64
	Sink          EventSink
	Logger        *log.Logger
}

// Pot records one pocketed body during the current turn.
type Pot struct {
	BodyID   int      `json:"body_id"`
	Category Category `json:"category"`
	Pocket   int      `json:"pocket"`
}

// TurnState is the scoring state and the per-turn flags.
type TurnState struct {
	Active          Player
	Scores          [2]int
	Phase           Phase
	Scored          bool
	Fouled          bool
	StrikerContact  bool
	QueenPending    bool
	QueenCapturedBy Player
	OwnPots         int
	Potted          []Pot
	ShotNumber      int
	Winner          Player
	WinReason       string
}

func (t *TurnState) resetFlags() {
	t.Scored = false
	t.Fouled = false
	t.StrikerContact = false
	t.OwnPots = 0
	t.Potted = nil
}

// aimState is the shot controller's drag bookkeeping.
type aimState struct {
	draggingStriker bool
	aiming          bool
	dragStart       Vec2
	angle           float64
	power           float64
}

// Session owns one game: board, bodies, turn state, timers and the AI. It is not
// safe for concurrent use; a Runner serializes access when several goroutines feed it.
type Session struct {
	Board *Board
	World *World
	Turn  TurnState

	seats      [2]Seat
	first      Player
	tuning     Tuning
	integrator *Integrator
	sched      *Scheduler
	rng        *rand.Rand
	sink       EventSink
	logger     *log.Logger

	aim      aimState
	lastShot *ShotCommand
	pending  []Event
	frame    int64
	closed   bool

	finalizeTask TaskID
	aiTask       TaskID
}

// NewSession racks the board and gives the first player the striker.
func NewSession(opts SessionOptions) *Session {
	seats := opts.Seats
	for i := range seats {
		if seats[i] == "" {
			seats[i] = SeatHuman
		}
	}
	first := opts.FirstPlayer
	if first != Player1 && first != Player2 {
		first = Player1
	}
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	tuning := opts.Tuning.withDefaults()

	s := &Session{
		Board:      NewBoard(opts.Width, opts.Height),
		seats:      seats,
		first:      first,
		tuning:     tuning,
		integrator: NewIntegrator(tuning.SubSteps),
		sched:      NewScheduler(),
		rng:        rand.New(rand.NewSource(opts.Seed)),
		sink:       sink,
		logger:     opts.Logger,
	}
	s.rack()
	return s
}

func (s *Session) rack() {
	s.World = &World{
		Board:   s.Board,
		Coins:   s.Board.StandardRack(),
		Striker: newStriker(s.Board.BaselineCenter(s.first), s.Board.StrikerRadius),
	}
	s.Turn = TurnState{Active: s.first, Phase: PhasePlacing}
	s.aim = aimState{angle: s.Board.ForwardAngle(s.first)}
	s.lastShot = nil
	s.integrator.ResetEvents()
	s.maybeStartAI()
}

// Reset re-racks the board and clears scores. Pending timers are cancelled.
func (s *Session) Reset() {
	if s.closed {
		return
	}
	s.sched.CancelAll()
	s.rack()
	s.logf("[CARROM] session reset")
}

// Close tears the session down. Pending continuations are cancelled and all later calls are no-ops.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.sched.CancelAll()
	s.pending = nil
}

func (s *Session) Closed() bool { return s.closed }

func (s *Session) Phase() Phase { return s.Turn.Phase }

func (s *Session) Active() Player { return s.Turn.Active }

func (s *Session) Winner() Player { return s.Turn.Winner }

func (s *Session) Tuning() Tuning { return s.tuning }

// Score returns a player's current score.
func (s *Session) Score(p Player) int {
	if p != Player1 && p != Player2 {
		return 0
	}
	return s.Turn.Scores[p.index()]
}

// Seat returns how a player is driven.
func (s *Session) Seat(p Player) Seat {
	if p != Player1 && p != Player2 {
		return ""
	}
	return s.seats[p.index()]
}

// CollisionEvents returns the contact log of the current or last shot.
func (s *Session) CollisionEvents() []CollisionEvent {
	out := make([]CollisionEvent, len(s.integrator.Events))
	copy(out, s.integrator.Events)
	return out
}

// LastShot returns the most recent launch, if any.
func (s *Session) LastShot() *ShotCommand {
	if s.lastShot == nil {
		return nil
	}
	c := *s.lastShot
	return &c
}

// Idle reports whether the session is waiting for a shot from the active player.
func (s *Session) Idle() bool {
	return !s.closed && (s.Turn.Phase == PhasePlacing || s.Turn.Phase == PhaseAiming)
}

// Frame advances the session by one rendered frame: one integrator pass of
// sub-steps while a shot is in flight, then dt on the session clock.
func (s *Session) Frame(dt time.Duration) {
	if s.closed {
		return
	}
	s.frame++

	if s.Turn.Phase == PhaseInFlight {
		if s.integrator.Frame(s.World, s) {
			s.Turn.Phase = PhaseSettling
			s.finalizeTask = s.sched.After(s.tuning.FinalizeDelay, s.finalizeTurn)
		}
	}

	s.sched.Advance(dt)
	s.flush()
}

// RunUntilIdle steps frames until the session waits for a shot or the game ends.
// It returns false if maxFrames ran out first.
func (s *Session) RunUntilIdle(maxFrames int) bool {
	for i := 0; i < maxFrames; i++ {
		if s.closed || s.Turn.Phase == PhaseGameOver {
			return true
		}
		if s.Idle() && s.sched.Pending() == 0 {
			return true
		}
		s.Frame(s.tuning.FrameInterval)
	}
	return false
}

// Forfeit ends the game in favour of the other player. reason becomes the win reason
// ("forfeit" when empty).
func (s *Session) Forfeit(p Player, reason string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if p != Player1 && p != Player2 {
		return ErrInvalidPlayer
	}
	if s.Turn.Phase == PhaseGameOver {
		return ErrGameOver
	}
	s.sched.CancelAll()
	s.World.Striker.stop()
	for _, c := range s.World.Coins {
		c.stop()
	}
	if reason == "" {
		reason = "forfeit"
	}
	s.endGame(p.Opponent(), reason)
	s.flush()
	return nil
}

func (s *Session) endGame(winner Player, reason string) {
	s.Turn.Phase = PhaseGameOver
	s.Turn.Winner = winner
	s.Turn.WinReason = reason
	s.aim = aimState{}
	s.emit(Event{Type: EventGameOver, Winner: winner, Reason: reason})
	s.logf("[CARROM] game over: winner=%d reason=%s scores=%v", winner, reason, s.Turn.Scores)
}

func (s *Session) emit(e Event) {
	if s.closed {
		return
	}
	s.pending = append(s.pending, e)
}

func (s *Session) flush() {
	if len(s.pending) == 0 {
		return
	}
	batch := s.pending
	s.pending = nil
	for _, e := range batch {
		s.sink.Publish(e)
	}
}

func (s *Session) addScore(p Player, delta int) {
	s.Turn.Scores[p.index()] += delta
	s.emit(Event{Type: EventScoreChanged, Player: p, Score: s.Turn.Scores[p.index()]})
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Output(2, fmt.Sprintf(format, args...))
	}
}
