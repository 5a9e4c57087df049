package game

import "fmt"

// maxFramesPerShot bounds how long a replayed shot may run before it is considered stuck.
const maxFramesPerShot = 20000

// Replay rebuilds a game from its recorded shots. Both seats are driven as remote
// peers, so every shot goes through the same launch path as live play.
func Replay(opts SessionOptions, shots []ShotCommand) (*Session, error) {
	opts.Seats = [2]Seat{SeatRemote, SeatRemote}
	s := NewSession(opts)

	for i, cmd := range shots {
		if err := s.ApplyRemoteShot(cmd); err != nil {
			s.Close()
			return nil, fmt.Errorf("replay shot %d: %w", i+1, err)
		}
		if !s.RunUntilIdle(maxFramesPerShot) {
			s.Close()
			return nil, fmt.Errorf("replay shot %d did not settle", i+1)
		}
	}
	return s, nil
}
