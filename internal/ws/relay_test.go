package ws

import (
	"testing"

	"github.com/playmatatu/carrom/internal/game"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	shot := &game.ShotCommand{Player: game.Player2, StrikerX: 512.5, Angle: 1.25, Power: 64}
	in := Envelope{
		Origin: "abc",
		Token:  "match-1",
		Event:  game.Event{Type: game.EventShotFired, Player: game.Player2, Shot: shot},
	}

	data, err := EncodeEnvelope(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Origin != in.Origin || out.Token != in.Token || out.Event.Type != game.EventShotFired {
		t.Fatalf("envelope mismatch: %+v", out)
	}
	if out.Event.Shot == nil || *out.Event.Shot != *shot {
		t.Errorf("shot mismatch: %+v", out.Event.Shot)
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("not msgpack")); err == nil {
		t.Errorf("expected an error for garbage input")
	}
	data, _ := EncodeEnvelope(Envelope{Origin: "x"})
	if _, err := DecodeEnvelope(data); err == nil {
		t.Errorf("expected an error for a missing match token")
	}
}

func TestRelaySkipsOwnOrigin(t *testing.T) {
	r := NewRelay(nil)
	other := NewRelay(nil)
	if r.Origin() == "" || r.Origin() == other.Origin() {
		t.Fatalf("origins should be random and distinct: %q %q", r.Origin(), other.Origin())
	}

	own, _ := EncodeEnvelope(Envelope{Origin: r.Origin(), Token: "m", Event: game.Event{Type: game.EventFoul}})
	if _, ok := r.accept(own); ok {
		t.Errorf("own events must not be delivered twice")
	}
	foreign, _ := EncodeEnvelope(Envelope{Origin: other.Origin(), Token: "m", Event: game.Event{Type: game.EventFoul, Penalty: 5}})
	env, ok := r.accept(foreign)
	if !ok || env.Event.Penalty != 5 {
		t.Errorf("foreign event should be delivered, got %+v ok=%v", env, ok)
	}

	// Publishing without a Redis client is a no-op.
	r.Publish("m", game.Event{Type: game.EventFoul})
}
