package game

import (
	"testing"
	"time"
)

// newTestSession builds a two-human session on the default board with a recorder attached.
func newTestSession(seats ...Seat) (*Session, *Recorder) {
	rec := &Recorder{}
	opts := SessionOptions{Sink: rec, Seed: 7}
	for i := 0; i < len(seats) && i < 2; i++ {
		opts.Seats[i] = seats[i]
	}
	return NewSession(opts), rec
}

// setCoins replaces the rack with the given coins.
func setCoins(s *Session, coins ...*Body) {
	s.World.Coins = coins
}

func coinAt(s *Session, id int, x, y float64, cat Category) *Body {
	return newCoin(id, Vec2{X: x, Y: y}, s.Board.CoinRadius, cat)
}

// settle moves the session to the point where motion has just completed.
func settle(s *Session) {
	s.Turn.Phase = PhaseSettling
	s.finalizeTurn()
	s.flush()
}

func TestOwnCoinScoresAndKeepsTurn(t *testing.T) {
	s, rec := newTestSession()
	white := coinAt(s, 1, 300, 300, CategoryWhite)
	setCoins(s, white, coinAt(s, 2, 700, 300, CategoryWhite), coinAt(s, 3, 500, 300, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(white, s.Board.Pockets[0])
	settle(s)

	if s.Score(Player1) != CoinValue {
		t.Errorf("player 1 score = %d, want %d", s.Score(Player1), CoinValue)
	}
	if s.Active() != Player1 {
		t.Errorf("clean scoring shot should keep the turn, active=%d", s.Active())
	}
	if s.World.Coin(1) != nil {
		t.Errorf("potted coin should be removed from the set")
	}
	if len(rec.Of(EventTurnSwitched)) != 0 {
		t.Errorf("unexpected turn switch event")
	}
	if s.Phase() != PhasePlacing {
		t.Errorf("phase = %s, want placing", s.Phase())
	}
}

func TestOpponentCoinCreditsOpponentAndSwitches(t *testing.T) {
	s, _ := newTestSession()
	black := coinAt(s, 3, 500, 300, CategoryBlack)
	setCoins(s, coinAt(s, 1, 300, 300, CategoryWhite), black, coinAt(s, 4, 600, 300, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(black, s.Board.Pockets[1])
	settle(s)

	if s.Score(Player2) != CoinValue || s.Score(Player1) != 0 {
		t.Errorf("scores = %v, want [0 %d]", s.Turn.Scores, CoinValue)
	}
	if s.Active() != Player2 {
		t.Errorf("potting only an opponent coin should pass the turn")
	}
}

func TestUncoveredQueenIsReturnedAndScoreRestored(t *testing.T) {
	s, rec := newTestSession()
	queen := coinAt(s, QueenID, 200, 200, CategoryQueen)
	setCoins(s, queen, coinAt(s, 1, 300, 300, CategoryWhite), coinAt(s, 2, 700, 700, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true
	before := s.Score(Player1)

	s.onPocket(queen, s.Board.Pockets[0])
	if !s.Turn.QueenPending || s.Score(Player1) != before+QueenBonus {
		t.Fatalf("queen should be pending with a provisional bonus")
	}
	settle(s)

	if s.Score(Player1) != before {
		t.Errorf("score after uncovered queen = %d, want %d", s.Score(Player1), before)
	}
	q := s.World.Coin(QueenID)
	if q == nil {
		t.Fatalf("queen should be back on the board")
	}
	if q.Position != s.Board.Center {
		t.Errorf("queen returned to %+v, want center", q.Position)
	}
	if s.Turn.QueenPending || s.Turn.QueenCapturedBy != NoPlayer {
		t.Errorf("queen state not cleared: pending=%v by=%d", s.Turn.QueenPending, s.Turn.QueenCapturedBy)
	}
	if s.Active() != Player2 {
		t.Errorf("an uncovered queen is not a scoring shot; turn should pass")
	}
	if len(rec.Of(EventQueenReturned)) != 1 {
		t.Errorf("expected one queen_returned event")
	}
}

func TestQueenReturnAvoidsOccupiedCenter(t *testing.T) {
	s, _ := newTestSession()
	queen := coinAt(s, QueenID, 200, 200, CategoryQueen)
	blocker := coinAt(s, 1, s.Board.Center.X, s.Board.Center.Y, CategoryWhite)
	setCoins(s, queen, blocker, coinAt(s, 2, 700, 700, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(queen, s.Board.Pockets[0])
	settle(s)

	q := s.World.Coin(QueenID)
	if q == nil {
		t.Fatalf("queen missing")
	}
	if d := q.Position.DistanceTo(blocker.Position); d < q.Radius+blocker.Radius {
		t.Errorf("returned queen overlaps the center coin (distance %.3f)", d)
	}
}

func TestQueenCoveredByOwnCoinSameTurn(t *testing.T) {
	s, rec := newTestSession()
	queen := coinAt(s, QueenID, 200, 200, CategoryQueen)
	white := coinAt(s, 1, 300, 300, CategoryWhite)
	setCoins(s, queen, white, coinAt(s, 2, 600, 300, CategoryWhite), coinAt(s, 3, 700, 700, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(queen, s.Board.Pockets[0])
	s.onPocket(white, s.Board.Pockets[1])
	settle(s)

	if s.Score(Player1) != QueenBonus+CoinValue {
		t.Errorf("score = %d, want %d", s.Score(Player1), QueenBonus+CoinValue)
	}
	if s.World.Coin(QueenID) != nil {
		t.Errorf("covered queen must stay off the board")
	}
	if s.Turn.QueenCapturedBy != Player1 {
		t.Errorf("queen should belong to player 1")
	}
	if s.Active() != Player1 {
		t.Errorf("covering shot should keep the turn")
	}
	if len(rec.Of(EventQueenCovered)) != 1 {
		t.Errorf("expected one queen_covered event")
	}
}

func TestQueenAfterOwnCoinIsCoveredImmediately(t *testing.T) {
	s, _ := newTestSession()
	queen := coinAt(s, QueenID, 200, 200, CategoryQueen)
	white := coinAt(s, 1, 300, 300, CategoryWhite)
	setCoins(s, queen, white, coinAt(s, 2, 600, 300, CategoryWhite), coinAt(s, 3, 700, 700, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(white, s.Board.Pockets[1])
	s.onPocket(queen, s.Board.Pockets[0])

	if s.Turn.QueenPending {
		t.Errorf("queen potted after an own coin should be covered")
	}
}

func TestStrikerPocketedWithoutContact(t *testing.T) {
	s, rec := newTestSession()
	setCoins(s, coinAt(s, 1, 300, 300, CategoryWhite), coinAt(s, 2, 700, 300, CategoryBlack))
	s.Turn.Phase = PhaseInFlight

	s.onPocket(s.World.Striker, s.Board.Pockets[2])
	settle(s)

	if s.Score(Player1) != -StrikerFoulPenalty {
		t.Errorf("score = %d, want exactly %d", s.Score(Player1), -StrikerFoulPenalty)
	}
	if s.Active() != Player2 {
		t.Errorf("striker foul should pass the turn")
	}
	fouls := rec.Of(EventFoul)
	if len(fouls) != 1 || fouls[0].Reason != "striker_pocketed" {
		t.Errorf("want a single striker foul, got %+v", fouls)
	}
	if s.World.Striker.Position != s.Board.BaselineCenter(Player2) {
		t.Errorf("striker should wait on player 2's baseline, at %+v", s.World.Striker.Position)
	}
}

func TestNoContactFoul(t *testing.T) {
	s, rec := newTestSession()
	setCoins(s, coinAt(s, 1, 300, 300, CategoryWhite), coinAt(s, 2, 700, 300, CategoryBlack))
	s.Turn.Phase = PhaseInFlight

	settle(s)

	if s.Score(Player1) != -NoContactPenalty {
		t.Errorf("score = %d, want %d", s.Score(Player1), -NoContactPenalty)
	}
	if s.Active() != Player2 {
		t.Errorf("no-contact foul should pass the turn")
	}
	if len(rec.Of(EventFoul)) != 1 {
		t.Errorf("expected one foul event")
	}
}

func TestScoringShotWithFoulStillSwitches(t *testing.T) {
	s, _ := newTestSession()
	white := coinAt(s, 1, 300, 300, CategoryWhite)
	setCoins(s, white, coinAt(s, 2, 600, 300, CategoryWhite), coinAt(s, 3, 700, 700, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(white, s.Board.Pockets[0])
	s.onPocket(s.World.Striker, s.Board.Pockets[2])
	settle(s)

	if s.Score(Player1) != CoinValue-StrikerFoulPenalty {
		t.Errorf("score = %d, want %d", s.Score(Player1), CoinValue-StrikerFoulPenalty)
	}
	if s.Active() != Player2 {
		t.Errorf("a foul forfeits the continuation even after scoring")
	}
}

func TestClearingLastCoinWinsAndStops(t *testing.T) {
	s, rec := newTestSession()
	last := coinAt(s, 1, 300, 300, CategoryWhite)
	setCoins(s, last, coinAt(s, 2, 700, 700, CategoryBlack))
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(last, s.Board.Pockets[0])
	settle(s)

	if s.Phase() != PhaseGameOver || s.Winner() != Player1 {
		t.Fatalf("phase=%s winner=%d, want game over for player 1", s.Phase(), s.Winner())
	}
	if len(rec.Of(EventGameOver)) != 1 {
		t.Errorf("expected one game_over event")
	}
	err := s.HandleInput(InputEvent{Kind: KeyPress, Player: Player1, Key: KeyShoot})
	if err != ErrGameOver {
		t.Errorf("input after game over: err=%v, want ErrGameOver", err)
	}
	s.Frame(time.Second)
	if s.Phase() != PhaseGameOver {
		t.Errorf("session must not restart on its own")
	}
}

func TestPottingOpponentsLastCoinHandsThemTheWin(t *testing.T) {
	s, _ := newTestSession()
	lastBlack := coinAt(s, 2, 700, 700, CategoryBlack)
	setCoins(s, coinAt(s, 1, 300, 300, CategoryWhite), lastBlack)
	s.Turn.Phase = PhaseInFlight
	s.Turn.StrikerContact = true

	s.onPocket(lastBlack, s.Board.Pockets[3])
	settle(s)

	if s.Winner() != Player2 {
		t.Errorf("winner = %d, want player 2", s.Winner())
	}
}

func TestFinalizeIsDeferredAndCancelledByClose(t *testing.T) {
	s, _ := newTestSession()
	setCoins(s, coinAt(s, 1, 300, 300, CategoryWhite), coinAt(s, 2, 700, 300, CategoryBlack))
	s.World.Striker.Velocity = Vec2{X: 0, Y: -0.5}
	s.Turn.Phase = PhaseInFlight

	for i := 0; i < 2000 && s.Phase() == PhaseInFlight; i++ {
		s.Frame(0)
	}
	if s.Phase() != PhaseSettling {
		t.Fatalf("phase = %s, want settling", s.Phase())
	}

	s.Close()
	s.Frame(time.Second)

	if s.Active() != Player1 || s.Score(Player1) != 0 {
		t.Errorf("closed session must not finalize: active=%d score=%d", s.Active(), s.Score(Player1))
	}
}

func TestTurnAlternatesOnNonScoringShots(t *testing.T) {
	s, _ := newTestSession()
	setCoins(s, coinAt(s, 1, 300, 300, CategoryWhite), coinAt(s, 2, 700, 300, CategoryBlack))

	want := Player1
	for i := 0; i < 4; i++ {
		if s.Active() != want {
			t.Fatalf("shot %d: active=%d, want %d", i, s.Active(), want)
		}
		s.Turn.Phase = PhaseInFlight
		s.Turn.StrikerContact = true
		settle(s)
		want = want.Opponent()
	}
}

func TestForfeitRecordsReason(t *testing.T) {
	s, rec := newTestSession()
	if err := s.Forfeit(Player1, "concede"); err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	if s.Winner() != Player2 || s.Turn.WinReason != "concede" {
		t.Errorf("winner=%d reason=%q, want player 2 by concede", s.Winner(), s.Turn.WinReason)
	}
	if over := rec.Of(EventGameOver); len(over) != 1 || over[0].Reason != "concede" {
		t.Errorf("game_over events = %+v", over)
	}
	if err := s.Forfeit(Player2, "idle"); err != ErrGameOver {
		t.Errorf("second forfeit: err=%v, want ErrGameOver", err)
	}

	s2, _ := newTestSession()
	if err := s2.Forfeit(NoPlayer, ""); err != ErrInvalidPlayer {
		t.Errorf("forfeit by nobody: err=%v, want ErrInvalidPlayer", err)
	}
	s2.Forfeit(Player2, "")
	if s2.Winner() != Player1 || s2.Turn.WinReason != "forfeit" {
		t.Errorf("winner=%d reason=%q, want player 1 by forfeit", s2.Winner(), s2.Turn.WinReason)
	}
}
