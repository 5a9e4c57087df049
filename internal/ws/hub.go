package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/carrom/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Client is one websocket connection attached to a match room.
// Spectators have player NoPlayer.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	matchToken string
	player     game.Player
	name       string
	send       chan []byte
}

func (c *Client) label() string {
	if c.player == game.NoPlayer {
		return "spectator"
	}
	return fmt.Sprintf("player %d", c.player)
}

// Hub maintains the match rooms and fans engine output out to them.
type Hub struct {
	rooms      map[string]map[*Client]bool // matchToken -> clients
	seats      map[string]*Client          // matchToken:player -> seated client
	register   chan *Client
	unregister chan *Client
	relay      *Relay
	mu         sync.RWMutex
}

// GameHub is the single hub for all matches on this instance.
var GameHub *Hub

func init() {
	GameHub = NewHub()
	go GameHub.Run(context.Background())
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		seats:      make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetRelay makes the hub publish match events to other instances.
func (h *Hub) SetRelay(r *Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

func seatKey(token string, p game.Player) string {
	return fmt.Sprintf("%s:%d", token, p)
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if client.player != game.NoPlayer {
				key := seatKey(client.matchToken, client.player)
				if old, exists := h.seats[key]; exists {
					log.Printf("[WS] %s reconnecting to match %s - closing old connection", client.label(), client.matchToken)
					old.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
						time.Now().Add(time.Second))
					h.removeLocked(old)
				}
				h.seats[key] = client
			}
			if _, exists := h.rooms[client.matchToken]; !exists {
				h.rooms[client.matchToken] = make(map[*Client]bool)
			}
			h.rooms[client.matchToken][client] = true
			h.mu.Unlock()

			log.Printf("[WS] %s connected to match %s", client.label(), client.matchToken)
			if client.player != game.NoPlayer {
				h.BroadcastToMatch(client.matchToken, map[string]interface{}{
					"type":   "player_connected",
					"player": client.player,
					"name":   client.name,
				})
			}

		case client := <-h.unregister:
			h.mu.Lock()
			removed := h.removeLocked(client)
			h.mu.Unlock()

			if removed {
				log.Printf("[WS] %s disconnected from match %s", client.label(), client.matchToken)
				if client.player != game.NoPlayer {
					h.BroadcastToMatch(client.matchToken, map[string]interface{}{
						"type":   "player_disconnected",
						"player": client.player,
					})
				}
			}
		}
	}
}

// removeLocked detaches a client and closes its send channel. The caller holds h.mu.
func (h *Hub) removeLocked(c *Client) bool {
	room, exists := h.rooms[c.matchToken]
	if !exists || !room[c] {
		return false
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.matchToken)
	}
	if c.player != game.NoPlayer {
		key := seatKey(c.matchToken, c.player)
		if h.seats[key] == c {
			delete(h.seats, key)
		}
	}
	close(c.send)
	return true
}

// RoomSize returns how many connections watch a match.
func (h *Hub) RoomSize(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[token])
}

// BroadcastToMatch sends a message to every connection in a match room.
func (h *Hub) BroadcastToMatch(token string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	h.broadcastRaw(token, data)
}

func (h *Hub) broadcastRaw(token string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[token] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full
			log.Printf("[WS] send buffer full for %s in match %s, dropping message", client.label(), token)
		}
	}
}

// deliver queues a message for one client if it is still attached.
func (h *Hub) deliver(c *Client, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.rooms[c.matchToken][c] {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] deliver dropped message for %s in match %s (buffer full)", c.label(), c.matchToken)
	}
}

// MatchEvent implements game.Broadcaster.
func (h *Hub) MatchEvent(token string, e game.Event) {
	h.BroadcastToMatch(token, map[string]interface{}{"type": "event", "data": e})

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		relay.Publish(token, e)
	}
}

// MatchSnapshot implements game.Broadcaster.
func (h *Hub) MatchSnapshot(token string, snap game.Snapshot) {
	h.BroadcastToMatch(token, map[string]interface{}{"type": "snapshot", "data": snap})
}

// relayed delivers an event published by another instance to local spectators.
func (h *Hub) relayed(token string, e game.Event) {
	h.BroadcastToMatch(token, map[string]interface{}{"type": "event", "data": e, "relayed": true})
}

// WSMessage is an inbound client message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for %s in match %s: %v", c.label(), c.matchToken, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for %s in match %s: %v", c.label(), c.matchToken, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.hub.deliver(c, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
