package game

// EventType names a turn or score event.
type EventType string

const (
	EventScoreChanged  EventType = "score_changed"
	EventTurnSwitched  EventType = "turn_switched"
	EventCoinPotted    EventType = "coin_potted"
	EventQueenCaptured EventType = "queen_captured"
	EventQueenCovered  EventType = "queen_covered"
	EventQueenReturned EventType = "queen_returned"
	EventFoul          EventType = "foul"
	EventShotFired     EventType = "shot_fired"
	EventShotCancelled EventType = "shot_cancelled"
	EventStrikerMoved  EventType = "striker_moved"
	EventGameOver      EventType = "game_over"
)

// Event is emitted by a session for a HUD or a relay channel.
type Event struct {
	Type     EventType    `json:"type" msgpack:"type"`
	Player   Player       `json:"player,omitempty" msgpack:"player,omitempty"`
	Score    int          `json:"score,omitempty" msgpack:"score,omitempty"`
	Penalty  int          `json:"penalty,omitempty" msgpack:"penalty,omitempty"`
	Category Category     `json:"category,omitempty" msgpack:"category,omitempty"`
	CoinID   int          `json:"coin_id" msgpack:"coin_id"`
	Winner   Player       `json:"winner,omitempty" msgpack:"winner,omitempty"`
	Reason   string       `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Shot     *ShotCommand `json:"shot,omitempty" msgpack:"shot,omitempty"`
	Position *Vec2        `json:"position,omitempty" msgpack:"position,omitempty"`
}

// EventSink receives session events. Publish is called from the goroutine driving the session.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

type nopSink struct{}

func (nopSink) Publish(Event) {}

// Recorder is an EventSink that keeps every event. Useful for tests and replays.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(e Event) {
	r.Events = append(r.Events, e)
}

// Of returns the recorded events of one type.
func (r *Recorder) Of(t EventType) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
