package game

// MatchStatus is the lifecycle state of a hosted match.
type MatchStatus string

const (
	StatusWaiting    MatchStatus = "WAITING"
	StatusInProgress MatchStatus = "IN_PROGRESS"
	StatusCompleted  MatchStatus = "COMPLETED"
	StatusCancelled  MatchStatus = "CANCELLED"
)

// Mode says how a match was created and who sits in each seat.
type Mode string

const (
	ModeAI      Mode = "ai"      // seat 1 human over the websocket, seat 2 the planner
	ModePrivate Mode = "private" // two remote seats, second seat joins with the room passcode
	ModeQueued  Mode = "queued"  // two remote seats paired by the matchmaker
)

// seatsFor returns the engine seats for a mode.
func seatsFor(mode Mode) [2]Seat {
	if mode == ModeAI {
		return [2]Seat{SeatHuman, SeatAI}
	}
	return [2]Seat{SeatRemote, SeatRemote}
}
