package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/store"
)

// JoinQueue puts a player in the matchmaking queue.
func JoinQueue(st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matchmaking unavailable"})
			return
		}
		var req struct {
			DisplayName string `json:"display_name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		name, ok := normalizeDisplayName(req.DisplayName)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name contains invalid characters"})
			return
		}
		if name == "" {
			name = "Player"
		}

		queueToken := generateQueueToken()
		ttl := time.Duration(cfg.QueueExpiryMinutes) * time.Minute
		entry, err := st.Enqueue(c.Request.Context(), queueToken, name, ttl)
		if err != nil {
			log.Printf("[DB] Enqueue failed for %q: %v", name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue player"})
			return
		}

		log.Printf("[QUEUE] %q queued as %s (expires %s)", name, queueToken, entry.ExpiresAt.Format(time.RFC3339))
		c.JSON(http.StatusOK, gin.H{
			"status":      "queued",
			"queue_token": queueToken,
			"expires_at":  entry.ExpiresAt,
			"message":     "Waiting for opponent...",
		})
	}
}

// CheckQueueStatus reports whether a queued player has been matched. Once matched it
// hands out the seat token for the match.
func CheckQueueStatus(st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matchmaking unavailable"})
			return
		}
		queueToken := c.Param("queue_token")
		entry, err := st.GetQueueEntry(c.Request.Context(), queueToken)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "not_found", "message": "Not in queue. Please join again."})
			return
		}
		if err != nil {
			log.Printf("[DB] GetQueueEntry %s failed: %v", queueToken, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read queue"})
			return
		}

		switch entry.Status {
		case store.QueueMatched:
			if entry.MatchToken == nil || entry.Seat == nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "queue entry is inconsistent"})
				return
			}
			seatToken, err := game.Manager.IssueSeat(*entry.MatchToken, *entry.Seat, entry.DisplayName)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue seat"})
				return
			}
			log.Printf("[QUEUE STATUS] %s matched into %s as seat %d", queueToken, *entry.MatchToken, *entry.Seat)
			c.JSON(http.StatusOK, gin.H{
				"status":      "matched",
				"match_token": *entry.MatchToken,
				"seat":        *entry.Seat,
				"seat_token":  seatToken,
				"ws_path":     wsPath(*entry.MatchToken),
				"match_link":  matchLink(cfg, *entry.MatchToken, seatToken),
				"message":     "Opponent found!",
			})

		case store.QueueQueued:
			c.JSON(http.StatusOK, gin.H{
				"status":     "queued",
				"expires_at": entry.ExpiresAt,
				"message":    "Still waiting for opponent...",
			})

		default:
			c.JSON(http.StatusOK, gin.H{
				"status":  entry.Status,
				"message": "Queue entry expired. Please join again.",
			})
		}
	}
}
