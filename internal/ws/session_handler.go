package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/carrom/internal/auth"
	"github.com/playmatatu/carrom/internal/game"
)

// PointerData is a pointer event in board coordinates.
type PointerData struct {
	Kind game.InputKind `json:"kind"`
	X    float64        `json:"x"`
	Y    float64        `json:"y"`
}

type KeyData struct {
	Key game.Key `json:"key"`
}

// ShotData is a finished shot from a remote seat.
type ShotData struct {
	StrikerX float64 `json:"striker_x"`
	Angle    float64 `json:"angle"`
	Power    float64 `json:"power"`
}

// HandleWebSocket attaches a connection to a match room. A valid seat token (bearer or
// ?st=) seats the connection; without one it joins as a spectator.
func HandleWebSocket(h *Hub, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "match token required"})
			return
		}
		if game.Manager == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "game manager not ready"})
			return
		}

		player := game.NoPlayer
		name := ""
		if raw := auth.BearerOrQuery(c); raw != "" {
			claims, err := auth.ParseSeatTokenFor(secret, raw, token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			player = game.Player(claims.Seat)
			name = claims.Name
		}

		if _, err := game.Manager.GetMatch(token); err != nil {
			// Matches hosted by another instance can still be watched through the relay.
			if player != game.NoPlayer {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not hosted here"})
				return
			}
			if _, err := game.Manager.Snapshot(token); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:        h,
			conn:       conn,
			matchToken: token,
			player:     player,
			name:       name,
			send:       make(chan []byte, sendBuffer),
		}

		// Queued before registration so they arrive ahead of live snapshots.
		client.enqueue(client.joinedMessage())
		client.enqueue(client.stateMessage())

		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// enqueue writes straight to the send buffer. Only safe before the client is registered.
func (c *Client) enqueue(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) joinedMessage() map[string]interface{} {
	msg := map[string]interface{}{
		"type":   "joined",
		"player": c.player,
		"role":   c.label(),
	}
	if m, err := game.Manager.GetMatch(c.matchToken); err == nil {
		msg["match"] = m.Info()
	}
	return msg
}

func (c *Client) stateMessage() map[string]interface{} {
	snap, err := game.Manager.Snapshot(c.matchToken)
	if err != nil {
		return map[string]interface{}{"type": "error", "message": "State unavailable"}
	}
	return map[string]interface{}{"type": "snapshot", "data": snap}
}

// readPump reads messages from the connection until it closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for %s in match %s: %v", c.label(), c.matchToken, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches one client message to the match.
func (c *Client) handleMessage(msg WSMessage) {
	if msg.Type == "get_state" {
		c.hub.deliver(c, c.stateMessage())
		return
	}
	if c.player == game.NoPlayer {
		c.sendError("Spectators cannot play")
		return
	}

	m, err := game.Manager.GetMatch(c.matchToken)
	if err != nil {
		c.sendError("Match not found")
		return
	}

	switch msg.Type {
	case "pointer":
		var data PointerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid pointer data")
			return
		}
		switch data.Kind {
		case game.PointerDown, game.PointerMove, game.PointerUp:
		default:
			c.sendError("Invalid pointer kind")
			return
		}
		err = m.Input(game.InputEvent{Kind: data.Kind, Player: c.player, X: data.X, Y: data.Y})

	case "key":
		var data KeyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid key data")
			return
		}
		err = m.Input(game.InputEvent{Kind: game.KeyPress, Player: c.player, Key: data.Key})

	case "shot":
		var data ShotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid shot data")
			return
		}
		err = m.Shoot(game.ShotCommand{Player: c.player, StrikerX: data.StrikerX, Angle: data.Angle, Power: data.Power})

	case "concede":
		if err = m.Concede(c.player); err == nil {
			c.hub.BroadcastToMatch(c.matchToken, map[string]interface{}{
				"type":    "player_conceded",
				"player":  c.player,
				"message": "Player conceded",
			})
		}

	default:
		c.sendError("Unknown message type")
		return
	}

	if err != nil {
		c.sendError(describe(err))
	}
}

// describe turns engine and match errors into client-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, game.ErrInMotion):
		return "Wait for the board to settle"
	case errors.Is(err, game.ErrGameOver), errors.Is(err, game.ErrMatchFinished):
		return "Game is over"
	case errors.Is(err, game.ErrMatchNotStarted):
		return "Waiting for opponent"
	case errors.Is(err, game.ErrSeatMismatch):
		return "This seat does not accept that input"
	case errors.Is(err, game.ErrSessionClosed):
		return "Match closed"
	}
	return err.Error()
}
