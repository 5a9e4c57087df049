package game

import "math"

const (
	aiQueenBonus    = 500.0
	aiOwnBonus      = 100.0
	aiLanePenalty   = 300.0
	aiAimJitter     = 0.02 // total spread in radians
	aiPowerBase     = 30.0
	aiPowerGain     = 1.3
	aiReferenceSize = 300.0 // board radius the power curve was tuned on
)

// ShotPlan is the planner's choice for one turn.
type ShotPlan struct {
	Command  ShotCommand `json:"command"`
	TargetID int         `json:"target_id"`
	PocketID int         `json:"pocket_id"`
	Score    float64     `json:"score"`
	Fallback bool        `json:"fallback"`
}

// PlanShot picks a shot for player p on the current layout. It never fails: with no
// feasible cut it returns a straight break shot.
func (s *Session) PlanShot(p Player) ShotPlan {
	b := s.Board
	baseY := b.BaselineY(p)
	rS := s.World.Striker.Radius

	best := ShotPlan{Score: math.Inf(-1), TargetID: -1, PocketID: -1}
	for _, c := range s.World.Coins {
		isQueen := c.Category == CategoryQueen
		if c.Category != p.Color() && !(isQueen && !s.Turn.QueenPending) {
			continue
		}
		for _, pk := range b.Pockets {
			dir := pk.Position.Minus(c.Position).Normalize()
			if dir.IsZero() || math.Abs(dir.Y) < 1e-9 {
				continue
			}
			ghost := c.Position.Minus(dir.Times(rS + c.Radius))

			// The striker sits where the pocket-coin line meets the baseline, behind the ghost point.
			k := (ghost.Y - baseY) / dir.Y
			if k <= 0 {
				continue
			}
			start := Vec2{X: ghost.X - dir.X*k, Y: baseY}
			if !b.OnBaseline(start.X) {
				continue
			}
			if s.pathBlocked(start, ghost, rS, c) {
				continue
			}

			distToCoin := start.DistanceTo(c.Position)
			distToPocket := c.Position.DistanceTo(pk.Position)
			score := 1000 - distToPocket - 0.1*distToCoin
			if isQueen {
				score += aiQueenBonus
			} else {
				score += aiOwnBonus
			}
			if s.pathBlocked(c.Position, pk.Position, c.Radius, c) {
				score -= aiLanePenalty
			}
			if score <= best.Score {
				continue
			}

			scale := aiReferenceSize / b.Radius
			power := math.Min((aiPowerBase+(distToCoin+distToPocket)*scale/5)*aiPowerGain, MaxPower)
			best = ShotPlan{
				Command:  ShotCommand{Player: p, StrikerX: start.X, Power: power},
				TargetID: c.ID,
				PocketID: pk.ID,
				Score:    score,
			}
			best.Command.Angle = start.AngleTo(c.Position)
		}
	}

	if best.TargetID < 0 {
		return s.breakShot(p)
	}

	best.Command.Angle += (s.rng.Float64() - 0.5) * aiAimJitter
	return best
}

// breakShot goes straight ahead at break power. The striker lines up, with a little
// jitter, under the nearest coin ahead of the baseline, own colour first, so the shot
// makes contact; with nothing in reach it starts from a random spot near the center.
func (s *Session) breakShot(p Player) ShotPlan {
	b := s.Board
	baseY := b.BaselineY(p)
	ahead := math.Sin(b.ForwardAngle(p))
	jitter := s.rng.Float64() - 0.5

	plan := ShotPlan{TargetID: -1, PocketID: -1, Fallback: true}
	x := b.Center.X + jitter*b.BaselineHalf
	nearest, own := 0.0, false
	for _, c := range s.World.Coins {
		dist := (c.Position.Y - baseY) * ahead
		if dist <= 0 || !b.OnBaseline(c.Position.X) {
			continue
		}
		isOwn := c.Category == p.Color()
		if plan.TargetID >= 0 && (own && !isOwn || own == isOwn && dist >= nearest) {
			continue
		}
		plan.TargetID, nearest, own = c.ID, dist, isOwn
		x = c.Position.X + jitter*c.Radius
	}

	plan.Command = ShotCommand{
		Player:   p,
		StrikerX: b.ClampBaselineX(x),
		Angle:    b.ForwardAngle(p),
		Power:    BreakShotPower,
	}
	return plan
}

// pathBlocked reports whether a disc of radius r moving from a to b would touch any coin other than target.
func (s *Session) pathBlocked(a, b Vec2, r float64, target *Body) bool {
	for _, o := range s.World.Coins {
		if o == target {
			continue
		}
		if d, _ := pointSegmentDistance(o.Position, a, b); d < r+o.Radius {
			return true
		}
	}
	return false
}

// maybeStartAI schedules the planner when the AI holds the turn.
func (s *Session) maybeStartAI() {
	if s.closed || s.Turn.Phase != PhasePlacing || s.Seat(s.Turn.Active) != SeatAI {
		return
	}
	s.sched.Cancel(s.aiTask)
	s.aiTask = s.sched.After(s.tuning.AIThinkDelay, s.aiPlace)
}

func (s *Session) aiReady() bool {
	return !s.closed &&
		s.Turn.Phase == PhasePlacing &&
		s.Seat(s.Turn.Active) == SeatAI &&
		s.World.AllSettled()
}

func (s *Session) aiPlace() {
	if !s.aiReady() {
		return
	}
	plan := s.PlanShot(s.Turn.Active)
	s.moveStriker(plan.Command.StrikerX)
	s.aiTask = s.sched.After(s.tuning.AIAimDelay, func() {
		if !s.aiReady() {
			return
		}
		s.launch(plan.Command)
	})
}
