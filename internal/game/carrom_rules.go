package game

import "math"

// onContact marks striker contact for the no-contact foul check.
func (s *Session) onContact(a, b *Body) {
	if a.Category == CategoryStriker || b.Category == CategoryStriker {
		s.Turn.StrikerContact = true
	}
}

// onPocket applies the scoring rules to a body that entered a pocket mid-step.
func (s *Session) onPocket(b *Body, pk Pocket) {
	active := s.Turn.Active

	if b.Category == CategoryStriker {
		s.Turn.Fouled = true
		s.Turn.Potted = append(s.Turn.Potted, Pot{BodyID: b.ID, Category: b.Category, Pocket: pk.ID})
		b.Position = s.Board.BaselineCenter(active)
		b.stop()
		s.addScore(active, -StrikerFoulPenalty)
		s.emit(Event{Type: EventFoul, Player: active, Penalty: StrikerFoulPenalty, Reason: "striker_pocketed"})
		return
	}

	if !s.World.RemoveCoin(b.ID) {
		return
	}
	b.stop()
	s.Turn.Potted = append(s.Turn.Potted, Pot{BodyID: b.ID, Category: b.Category, Pocket: pk.ID})

	switch owner := ownerOf(b.Category); {
	case b.Category == CategoryQueen:
		s.Turn.QueenPending = true
		s.Turn.QueenCapturedBy = active
		s.Turn.Scored = true
		s.emit(Event{Type: EventCoinPotted, Player: active, Category: b.Category, CoinID: b.ID})
		s.emit(Event{Type: EventQueenCaptured, Player: active})
		s.addScore(active, QueenBonus)
		if s.Turn.OwnPots > 0 {
			s.coverQueen()
		}

	case owner == active:
		s.Turn.Scored = true
		s.Turn.OwnPots++
		s.emit(Event{Type: EventCoinPotted, Player: active, Category: b.Category, CoinID: b.ID})
		s.addScore(active, CoinValue)
		if s.Turn.QueenPending && s.Turn.QueenCapturedBy == active {
			s.coverQueen()
		}

	default:
		// Opponent's coin: they get the points, the shooter gets no continuation.
		s.emit(Event{Type: EventCoinPotted, Player: active, Category: b.Category, CoinID: b.ID})
		s.addScore(owner, CoinValue)
	}
}

func (s *Session) coverQueen() {
	s.Turn.QueenPending = false
	s.emit(Event{Type: EventQueenCovered, Player: s.Turn.QueenCapturedBy})
}

// finalizeTurn runs once motion is complete: queen return, no-contact foul,
// turn switch, striker reset and win check.
func (s *Session) finalizeTurn() {
	if s.closed || s.Turn.Phase != PhaseSettling {
		return
	}
	s.Turn.Phase = PhaseResolved
	shooter := s.Turn.Active

	// 1. An uncovered queen goes back to the center and the bonus is reversed.
	if s.Turn.QueenPending {
		capturer := s.Turn.QueenCapturedBy
		s.returnQueen()
		s.Turn.QueenPending = false
		s.Turn.QueenCapturedBy = NoPlayer
		s.Turn.Scored = false
		s.addScore(capturer, -QueenBonus)
		s.emit(Event{Type: EventQueenReturned, Player: capturer})
	}

	// 2. No-contact foul, suppressed when the striker was pocketed.
	if !s.Turn.StrikerContact && !s.Turn.Fouled {
		s.Turn.Fouled = true
		s.addScore(shooter, -NoContactPenalty)
		s.emit(Event{Type: EventFoul, Player: shooter, Penalty: NoContactPenalty, Reason: "no_contact"})
	}

	// 3. Keep the turn only on a clean scoring shot.
	if !(s.Turn.Scored && !s.Turn.Fouled) {
		s.Turn.Active = shooter.Opponent()
		s.emit(Event{Type: EventTurnSwitched, Player: s.Turn.Active})
	}

	// 4. Reset for the next shot.
	s.Turn.resetFlags()
	s.placeStriker(s.Turn.Active)
	s.aim = aimState{angle: s.Board.ForwardAngle(s.Turn.Active)}

	s.logf("[CARROM] turn %d finalized: shooter=%d next=%d scores=%v", s.Turn.ShotNumber, shooter, s.Turn.Active, s.Turn.Scores)

	// 5. Win check, shooter first.
	for _, p := range []Player{shooter, shooter.Opponent()} {
		if s.World.Count(p.Color()) == 0 && !s.Turn.QueenPending {
			s.endGame(p, "cleared")
			return
		}
	}

	s.Turn.Phase = PhasePlacing
	s.maybeStartAI()
}

// returnQueen re-inserts the queen at the center, or the nearest free spot around it.
func (s *Session) returnQueen() {
	r := s.Board.CoinRadius
	pos := s.freeSpot(s.Board.Center, r)
	s.World.Coins = append(s.World.Coins, newCoin(QueenID, pos, r, CategoryQueen))
}

// freeSpot searches rings around want for a position where a disc of radius r overlaps nothing.
func (s *Session) freeSpot(want Vec2, r float64) Vec2 {
	if s.spotFree(want, r, nil) {
		return want
	}
	step := r
	for ring := 1; ring <= 12; ring++ {
		dist := step * float64(ring)
		n := 6 * ring
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			p := want.Plus(FromAngle(a, dist))
			if s.insideField(p, r) && s.spotFree(p, r, nil) {
				return p
			}
		}
	}
	return want
}

// placeStriker puts the striker on a player's baseline, sliding sideways off any coin it would overlap.
func (s *Session) placeStriker(p Player) {
	st := s.World.Striker
	st.stop()
	center := s.Board.BaselineCenter(p)
	st.Position = center
	if s.spotFree(center, st.Radius, st) {
		return
	}
	step := st.Radius / 2
	for k := 1; float64(k)*step <= s.Board.BaselineHalf; k++ {
		for _, dir := range []float64{1, -1} {
			cand := Vec2{X: center.X + dir*float64(k)*step, Y: center.Y}
			if s.Board.OnBaseline(cand.X) && s.spotFree(cand, st.Radius, st) {
				st.Position = cand
				return
			}
		}
	}
}

func (s *Session) spotFree(p Vec2, r float64, skip *Body) bool {
	for _, b := range s.World.bodies() {
		if b == skip {
			continue
		}
		if p.DistanceTo(b.Position) < r+b.Radius {
			return false
		}
	}
	return true
}

func (s *Session) insideField(p Vec2, r float64) bool {
	lo, hi := s.Board.PlayingBounds(r)
	if p.X < lo.X || p.X > hi.X || p.Y < lo.Y || p.Y > hi.Y {
		return false
	}
	_, inPocket := s.Board.PocketAt(p)
	return !inPocket
}
