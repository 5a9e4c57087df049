package game

import "math"

// CollisionEvent records a contact during a shot, for rule checking and front-end effects.
type CollisionEvent struct {
	Type     string  `json:"type"` // "body", "wall"
	BodyID   int     `json:"body_id"`
	TargetID int     `json:"target_id"` // other body ID, or wall axis (0 = x, 1 = y)
	Speed    float64 `json:"speed"`
}

// maxShotEvents bounds the per-shot collision log.
const maxShotEvents = 4096

// World is the mutable set of bodies on the board.
type World struct {
	Board   *Board
	Coins   []*Body
	Striker *Body
}

// bodies returns coins then the striker. The slice is a copy so hooks may remove coins while it is iterated.
func (w *World) bodies() []*Body {
	all := make([]*Body, 0, len(w.Coins)+1)
	all = append(all, w.Coins...)
	if w.Striker != nil {
		all = append(all, w.Striker)
	}
	return all
}

// RemoveCoin takes a coin out of the set. It reports whether the coin was present.
func (w *World) RemoveCoin(id int) bool {
	for i, c := range w.Coins {
		if c.ID == id {
			w.Coins = append(w.Coins[:i], w.Coins[i+1:]...)
			return true
		}
	}
	return false
}

// Coin returns the coin with the given ID.
func (w *World) Coin(id int) *Body {
	for _, c := range w.Coins {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Count returns how many coins of a category remain.
func (w *World) Count(cat Category) int {
	n := 0
	for _, c := range w.Coins {
		if c.Category == cat {
			n++
		}
	}
	return n
}

// AllSettled returns true if every body has zero velocity on both axes.
func (w *World) AllSettled() bool {
	for _, b := range w.bodies() {
		if b.Moving() {
			return false
		}
	}
	return true
}

// frameHooks receives contact and pocket notifications from inside a sub-step.
type frameHooks interface {
	onContact(a, b *Body)
	onPocket(b *Body, p Pocket)
}

// Integrator advances the world in fixed sub-steps.
type Integrator struct {
	SubSteps  int
	Events    []CollisionEvent
	retention float64
}

// NewIntegrator creates an integrator. Sub-step counts below 1 use the default.
func NewIntegrator(subSteps int) *Integrator {
	if subSteps < 1 {
		subSteps = DefaultSubSteps
	}
	return &Integrator{
		SubSteps:  subSteps,
		Events:    make([]CollisionEvent, 0),
		retention: math.Pow(Friction, 1/float64(subSteps)),
	}
}

// ResetEvents clears the collision log at the start of a shot.
func (in *Integrator) ResetEvents() {
	in.Events = in.Events[:0]
}

// Frame runs one rendered frame of sub-steps. It returns true once all motion is complete.
func (in *Integrator) Frame(w *World, hooks frameHooks) bool {
	for i := 0; i < in.SubSteps; i++ {
		in.subStep(w, hooks)
		if w.AllSettled() {
			return true
		}
	}
	return false
}

func (in *Integrator) subStep(w *World, hooks frameHooks) {
	inv := 1 / float64(in.SubSteps)

	// 1. Movement, friction and walls
	for _, b := range w.bodies() {
		if !b.Moving() {
			continue
		}
		b.Position = b.Position.Plus(b.Velocity.Times(inv))
		b.Velocity = b.Velocity.Times(in.retention)
		if math.Abs(b.Velocity.X) < VelocityEpsilon {
			b.Velocity.X = 0
		}
		if math.Abs(b.Velocity.Y) < VelocityEpsilon {
			b.Velocity.Y = 0
		}
		in.reflectWalls(w.Board, b)
	}

	// 2. Body-body collisions
	all := w.bodies()
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			ev, hit := resolveCollision(all[i], all[j])
			if !hit {
				continue
			}
			in.record(ev)
			if hooks != nil {
				hooks.onContact(all[i], all[j])
			}
		}
	}
	// Positional correction can push a body past a wall.
	for _, b := range all {
		in.reflectWalls(w.Board, b)
	}

	// 3. Pockets
	for _, b := range all {
		if pk, ok := w.Board.PocketAt(b.Position); ok && hooks != nil {
			hooks.onPocket(b, pk)
		}
	}
}

// reflectWalls clamps a body inside the playing field and turns the crossing velocity component inward.
func (in *Integrator) reflectWalls(board *Board, b *Body) {
	lo, hi := board.PlayingBounds(b.Radius)

	if b.Position.X < lo.X {
		b.Position.X = lo.X
		in.recordWall(b, 0)
		b.Velocity.X = math.Abs(b.Velocity.X) * WallRestitution
	} else if b.Position.X > hi.X {
		b.Position.X = hi.X
		in.recordWall(b, 0)
		b.Velocity.X = -math.Abs(b.Velocity.X) * WallRestitution
	}

	if b.Position.Y < lo.Y {
		b.Position.Y = lo.Y
		in.recordWall(b, 1)
		b.Velocity.Y = math.Abs(b.Velocity.Y) * WallRestitution
	} else if b.Position.Y > hi.Y {
		b.Position.Y = hi.Y
		in.recordWall(b, 1)
		b.Velocity.Y = -math.Abs(b.Velocity.Y) * WallRestitution
	}
}

func (in *Integrator) recordWall(b *Body, axis int) {
	in.record(CollisionEvent{Type: "wall", BodyID: b.ID, TargetID: axis, Speed: b.Velocity.Magnitude()})
}

func (in *Integrator) record(ev CollisionEvent) {
	if len(in.Events) < maxShotEvents {
		in.Events = append(in.Events, ev)
	}
}
