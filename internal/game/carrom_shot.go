package game

import "math"

// InputKind is the kind of a local input event.
type InputKind string

const (
	PointerDown InputKind = "pointer_down"
	PointerMove InputKind = "pointer_move"
	PointerUp   InputKind = "pointer_up"
	KeyPress    InputKind = "key"
)

// Key is a discrete command key.
type Key string

const (
	KeyLeft  Key = "left"
	KeyRight Key = "right"
	KeyShoot Key = "shoot"
)

// InputEvent is a pointer or key event in board coordinates.
type InputEvent struct {
	Kind   InputKind `json:"kind"`
	Player Player    `json:"player"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Key    Key       `json:"key,omitempty"`
}

// ShotCommand is a finished shot: where the striker sits on the baseline and how it is struck.
// It is what the relay carries and what replays store.
type ShotCommand struct {
	Player   Player  `json:"player" msgpack:"player"`
	StrikerX float64 `json:"striker_x" msgpack:"striker_x"`
	Angle    float64 `json:"angle" msgpack:"angle"` // radians
	Power    float64 `json:"power" msgpack:"power"` // 0-100
}

// AimView is the controller state a renderer needs for the aim guide.
type AimView struct {
	Aiming bool    `json:"aiming"`
	Angle  float64 `json:"angle"`
	Power  float64 `json:"power"`
}

// Aim returns the current aim state.
func (s *Session) Aim() AimView {
	return AimView{Aiming: s.aim.aiming, Angle: s.aim.angle, Power: s.aim.power}
}

// HandleInput applies a local pointer or key event for the active human player.
func (s *Session) HandleInput(ev InputEvent) error {
	if err := s.gate(ev.Player, SeatHuman); err != nil {
		return err
	}

	p := Vec2{X: ev.X, Y: ev.Y}
	switch ev.Kind {
	case PointerDown:
		s.pointerDown(p)
	case PointerMove:
		s.pointerMove(p)
	case PointerUp:
		s.pointerUp(p)
	case KeyPress:
		s.keyPress(ev.Key)
	}
	s.flush()
	return nil
}

// ApplyRemoteShot launches a peer's shot through the same path as local input.
func (s *Session) ApplyRemoteShot(cmd ShotCommand) error {
	if err := s.gate(cmd.Player, SeatRemote); err != nil {
		return err
	}
	s.launch(cmd)
	s.flush()
	return nil
}

func (s *Session) gate(p Player, seat Seat) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.Turn.Phase == PhaseGameOver {
		return ErrGameOver
	}
	if p != s.Turn.Active {
		return ErrNotYourTurn
	}
	if s.Seat(p) != seat {
		return ErrSeatMismatch
	}
	if !s.Idle() {
		return ErrInMotion
	}
	return nil
}

func (s *Session) pointerDown(p Vec2) {
	if !p.IsFinite() {
		return
	}
	st := s.World.Striker
	if s.Turn.Phase == PhasePlacing && p.DistanceTo(st.Position) < st.Radius*StrikerGrabFactor {
		s.aim.draggingStriker = true
		return
	}
	if math.Abs(p.Y-st.Position.Y) < s.Board.Radius*AimBandRatio {
		s.aim.aiming = true
		s.aim.dragStart = p
		s.aim.power = 0
		s.Turn.Phase = PhaseAiming
	}
}

func (s *Session) pointerMove(p Vec2) {
	if !p.IsFinite() {
		return
	}
	st := s.World.Striker
	switch {
	case s.aim.draggingStriker:
		s.moveStriker(p.X)
	case s.aim.aiming:
		s.aim.power = math.Min(s.aim.dragStart.Minus(p).Magnitude()/PowerScale, MaxPower)
		// Slingshot: the shot goes from the pointer back through the striker.
		if p != st.Position {
			s.aim.angle = p.AngleTo(st.Position)
		}
	}
}

func (s *Session) pointerUp(p Vec2) {
	if s.aim.draggingStriker {
		s.aim.draggingStriker = false
		return
	}
	if !s.aim.aiming {
		return
	}
	s.pointerMove(p)
	s.launch(ShotCommand{
		Player:   s.Turn.Active,
		StrikerX: s.World.Striker.Position.X,
		Angle:    s.aim.angle,
		Power:    s.aim.power,
	})
}

func (s *Session) keyPress(k Key) {
	if s.aim.aiming {
		return
	}
	step := s.Board.Radius * KeyStepRatio
	switch k {
	case KeyLeft:
		s.moveStriker(s.World.Striker.Position.X - step)
	case KeyRight:
		s.moveStriker(s.World.Striker.Position.X + step)
	case KeyShoot:
		s.launch(ShotCommand{
			Player:   s.Turn.Active,
			StrikerX: s.World.Striker.Position.X,
			Angle:    s.Board.ForwardAngle(s.Turn.Active),
			Power:    QuickShotPower,
		})
	}
}

func (s *Session) moveStriker(x float64) {
	st := s.World.Striker
	st.Position = Vec2{X: s.Board.ClampBaselineX(x), Y: s.Board.BaselineY(s.Turn.Active)}
	pos := st.Position.Fixed()
	s.emit(Event{Type: EventStrikerMoved, Player: s.Turn.Active, Position: &pos})
}

// launch converts a shot command into striker velocity. Out-of-range values are clamped;
// a shot below the minimum power is cancelled without consuming the turn.
func (s *Session) launch(cmd ShotCommand) bool {
	active := s.Turn.Active
	power := cmd.Power
	if math.IsNaN(power) {
		power = 0
	}
	power = clamp(power, 0, MaxPower)
	angle := cmd.Angle
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		angle = s.Board.ForwardAngle(active)
	}

	if power < MinShotPower {
		s.aim = aimState{angle: s.aim.angle}
		s.Turn.Phase = PhasePlacing
		s.emit(Event{Type: EventShotCancelled, Player: active})
		return false
	}

	st := s.World.Striker
	st.Position = Vec2{X: s.Board.ClampBaselineX(cmd.StrikerX), Y: s.Board.BaselineY(active)}
	st.Velocity = FromAngle(angle, power/ShotSpeedScale)

	s.sched.Cancel(s.aiTask)
	s.Turn.resetFlags()
	s.integrator.ResetEvents()
	s.Turn.ShotNumber++
	s.Turn.Phase = PhaseInFlight
	s.aim = aimState{angle: angle, power: power}

	shot := ShotCommand{Player: active, StrikerX: st.Position.X, Angle: angle, Power: power}
	s.lastShot = &shot
	relay := shot
	s.emit(Event{Type: EventShotFired, Player: active, Shot: &relay})
	return true
}
