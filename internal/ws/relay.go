package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/playmatatu/carrom/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RelayChannel is the Redis pub/sub channel carrying match events between instances.
const RelayChannel = "carrom_events"

// Envelope is one relayed event.
type Envelope struct {
	Origin string     `msgpack:"origin"`
	Token  string     `msgpack:"token"`
	Event  game.Event `msgpack:"event"`
}

func EncodeEnvelope(env Envelope) ([]byte, error) {
	return msgpack.Marshal(&env)
}

func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid relay payload: %w", err)
	}
	if env.Token == "" {
		return Envelope{}, fmt.Errorf("invalid relay payload: missing match token")
	}
	return env, nil
}

// Relay publishes local match events and feeds remote ones to a hub.
type Relay struct {
	rdb    *redis.Client
	origin string
}

// NewRelay creates a relay with a random origin id for this instance.
func NewRelay(rdb *redis.Client) *Relay {
	b := make([]byte, 6)
	rand.Read(b)
	return &Relay{rdb: rdb, origin: hex.EncodeToString(b)}
}

// Origin identifies this instance on the channel.
func (r *Relay) Origin() string {
	return r.origin
}

// Publish sends an event without blocking the caller.
func (r *Relay) Publish(token string, e game.Event) {
	if r == nil || r.rdb == nil {
		return
	}
	data, err := EncodeEnvelope(Envelope{Origin: r.origin, Token: token, Event: e})
	if err != nil {
		log.Printf("[WS] relay encode failed: %v", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.rdb.Publish(ctx, RelayChannel, data).Err(); err != nil {
			log.Printf("[WS] relay publish failed: match=%s type=%s err=%v", token, e.Type, err)
		}
	}()
}

// accept reports whether a payload should be delivered locally.
func (r *Relay) accept(payload []byte) (Envelope, bool) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		log.Printf("[WS] %v", err)
		return Envelope{}, false
	}
	if env.Origin == r.origin {
		return Envelope{}, false
	}
	return env, true
}

// StartRelaySubscriber delivers events published by other instances to the hub until ctx ends.
func StartRelaySubscriber(ctx context.Context, r *Relay, h *Hub) {
	if r == nil || r.rdb == nil {
		log.Println("[WS] Redis client not set; relay subscriber not started")
		return
	}

	pubsub := r.rdb.Subscribe(ctx, RelayChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started (origin=%s)", RelayChannel, r.origin)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, ok := r.accept([]byte(msg.Payload))
				if !ok {
					continue
				}
				h.relayed(env.Token, env.Event)
			}
		}
	}()
}
