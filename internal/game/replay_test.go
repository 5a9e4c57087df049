package game

import "testing"

// playAI runs an AI-vs-AI game until the given number of shots have been resolved.
func playAI(t *testing.T, seed int64, shots int) (*Session, []ShotCommand) {
	t.Helper()
	var fired []ShotCommand
	sink := SinkFunc(func(e Event) {
		if e.Type == EventShotFired && e.Shot != nil {
			fired = append(fired, *e.Shot)
		}
	})
	s := NewSession(SessionOptions{Seats: [2]Seat{SeatAI, SeatAI}, Seed: seed, Sink: sink})

	for frame := 0; frame < 200000; frame++ {
		if s.Phase() == PhaseGameOver {
			break
		}
		if s.Turn.ShotNumber == shots && s.Phase() == PhasePlacing {
			break
		}
		s.Frame(s.Tuning().FrameInterval)
	}
	if s.Turn.ShotNumber < shots && s.Phase() != PhaseGameOver {
		t.Fatalf("only %d shots played", s.Turn.ShotNumber)
	}
	return s, fired
}

func TestReplayReproducesAIGame(t *testing.T) {
	live, shots := playAI(t, 42, 10)
	defer live.Close()

	replayed, err := Replay(SessionOptions{}, shots)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	defer replayed.Close()

	if replayed.Turn.Scores != live.Turn.Scores {
		t.Errorf("scores %v, want %v", replayed.Turn.Scores, live.Turn.Scores)
	}
	if replayed.Active() != live.Active() {
		t.Errorf("active %d, want %d", replayed.Active(), live.Active())
	}
	if len(replayed.World.Coins) != len(live.World.Coins) {
		t.Fatalf("coins %d, want %d", len(replayed.World.Coins), len(live.World.Coins))
	}
	for i, c := range live.World.Coins {
		r := replayed.World.Coins[i]
		if r.ID != c.ID || r.Position != c.Position {
			t.Errorf("coin %d: replay %+v, live %+v", c.ID, r.Position, c.Position)
		}
	}
}

func TestReplayRejectsOutOfTurnShot(t *testing.T) {
	_, err := Replay(SessionOptions{}, []ShotCommand{{Player: Player2, StrikerX: 500, Angle: 1, Power: 50}})
	if err == nil {
		t.Errorf("expected an error for a shot by the wrong player")
	}
}
