package game

// BodyState is a body as seen by a renderer.
type BodyState struct {
	ID       int      `json:"id" msgpack:"id"`
	X        float64  `json:"x" msgpack:"x"`
	Y        float64  `json:"y" msgpack:"y"`
	Radius   float64  `json:"radius" msgpack:"radius"`
	Category Category `json:"category" msgpack:"category"`
	Moving   bool     `json:"moving,omitempty" msgpack:"moving,omitempty"`
}

// Snapshot is the renderable world state of a session.
type Snapshot struct {
	Frame           int64       `json:"frame" msgpack:"frame"`
	Board           BoardView   `json:"board" msgpack:"board"`
	Coins           []BodyState `json:"coins" msgpack:"coins"`
	Striker         BodyState   `json:"striker" msgpack:"striker"`
	Aim             AimView     `json:"aim" msgpack:"aim"`
	Phase           Phase       `json:"phase" msgpack:"phase"`
	Active          Player      `json:"active" msgpack:"active"`
	Seats           [2]Seat     `json:"seats" msgpack:"seats"`
	Scores          [2]int      `json:"scores" msgpack:"scores"`
	ShotNumber      int         `json:"shot_number" msgpack:"shot_number"`
	QueenPending    bool        `json:"queen_pending" msgpack:"queen_pending"`
	QueenCapturedBy Player      `json:"queen_captured_by,omitempty" msgpack:"queen_captured_by,omitempty"`
	Remaining       [2]int      `json:"remaining" msgpack:"remaining"`
	Winner          Player      `json:"winner,omitempty" msgpack:"winner,omitempty"`
	WinReason       string      `json:"win_reason,omitempty" msgpack:"win_reason,omitempty"`
}

// BoardView is the static geometry a renderer needs.
type BoardView struct {
	Center       Vec2       `json:"center" msgpack:"center"`
	Radius       float64    `json:"radius" msgpack:"radius"`
	PocketRadius float64    `json:"pocket_radius" msgpack:"pocket_radius"`
	Pockets      []Vec2     `json:"pockets" msgpack:"pockets"`
	BaselineY    [2]float64 `json:"baseline_y" msgpack:"baseline_y"`
	BaselineHalf float64    `json:"baseline_half" msgpack:"baseline_half"`
}

func bodyState(b *Body) BodyState {
	p := b.Position.Fixed()
	return BodyState{ID: b.ID, X: p.X, Y: p.Y, Radius: fix(b.Radius), Category: b.Category, Moving: b.Moving()}
}

// Snapshot captures the current world for rendering or transmission.
func (s *Session) Snapshot() Snapshot {
	b := s.Board
	pockets := make([]Vec2, len(b.Pockets))
	for i, pk := range b.Pockets {
		pockets[i] = pk.Position.Fixed()
	}
	coins := make([]BodyState, len(s.World.Coins))
	for i, c := range s.World.Coins {
		coins[i] = bodyState(c)
	}

	return Snapshot{
		Frame: s.frame,
		Board: BoardView{
			Center:       b.Center.Fixed(),
			Radius:       fix(b.Radius),
			PocketRadius: fix(b.PocketRadius),
			Pockets:      pockets,
			BaselineY:    [2]float64{fix(b.BaselineY(Player1)), fix(b.BaselineY(Player2))},
			BaselineHalf: fix(b.BaselineHalf),
		},
		Coins:           coins,
		Striker:         bodyState(s.World.Striker),
		Aim:             AimView{Aiming: s.aim.aiming, Angle: fix(s.aim.angle), Power: fix(s.aim.power)},
		Phase:           s.Turn.Phase,
		Active:          s.Turn.Active,
		Seats:           s.seats,
		Scores:          s.Turn.Scores,
		ShotNumber:      s.Turn.ShotNumber,
		QueenPending:    s.Turn.QueenPending,
		QueenCapturedBy: s.Turn.QueenCapturedBy,
		Remaining:       [2]int{s.World.Count(CategoryWhite), s.World.Count(CategoryBlack)},
		Winner:          s.Turn.Winner,
		WinReason:       s.Turn.WinReason,
	}
}
