package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/auth"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/store"
)

type createMatchRequest struct {
	Mode        string `json:"mode" binding:"required"`
	DisplayName string `json:"display_name"`
	Passcode    string `json:"passcode"`
}

type joinMatchRequest struct {
	DisplayName string `json:"display_name"`
	Passcode    string `json:"passcode"`
}

func seatResponse(cfg *config.Config, m *game.Match, seat int, seatToken string) gin.H {
	return gin.H{
		"match_token": m.Token,
		"seat":        seat,
		"seat_token":  seatToken,
		"ws_path":     wsPath(m.Token),
		"match_link":  matchLink(cfg, m.Token, seatToken),
		"match":       m.Info(),
	}
}

// CreateMatch opens a match against the computer or a private room.
func CreateMatch(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createMatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. mode required."})
			return
		}
		name, ok := normalizeDisplayName(req.DisplayName)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name contains invalid characters"})
			return
		}

		var (
			m         *game.Match
			seatToken string
			err       error
		)
		switch game.Mode(req.Mode) {
		case game.ModeAI:
			m, seatToken, err = game.Manager.CreateAIMatch(name)
		case game.ModePrivate:
			m, seatToken, err = game.Manager.CreatePrivateMatch(name, req.Passcode)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be ai or private"})
			return
		}
		if err != nil {
			log.Printf("[CARROM] CreateMatch failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create match"})
			return
		}

		c.JSON(http.StatusCreated, seatResponse(cfg, m, 1, seatToken))
	}
}

// JoinMatch takes the second seat of a private room.
func JoinMatch(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req joinMatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		name, ok := normalizeDisplayName(req.DisplayName)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name contains invalid characters"})
			return
		}

		m, seatToken, err := game.Manager.JoinPrivateMatch(c.Param("token"), name, req.Passcode)
		switch {
		case errors.Is(err, game.ErrMatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		case errors.Is(err, game.ErrBadPasscode):
			c.JSON(http.StatusForbidden, gin.H{"error": "Wrong passcode"})
			return
		case errors.Is(err, game.ErrSeatTaken), errors.Is(err, game.ErrMatchFinished), errors.Is(err, game.ErrNotPrivate):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case err != nil:
			log.Printf("[CARROM] JoinMatch failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join match"})
			return
		}

		c.JSON(http.StatusOK, seatResponse(cfg, m, 2, seatToken))
	}
}

// GetMatchState returns the current state of a match, live or cached.
func GetMatchState() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		snap, err := game.Manager.Snapshot(token)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}

		resp := gin.H{"match_token": token, "state": snap}
		if m, err := game.Manager.GetMatch(token); err == nil {
			resp["match"] = m.Info()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ConcedeMatch forfeits the caller's seat. Requires auth.RequireSeat.
func ConcedeMatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing seat token"})
			return
		}

		err := game.Manager.Forfeit(claims.MatchToken, game.Player(claims.Seat), "concede")
		switch {
		case errors.Is(err, game.ErrMatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		case err != nil:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "conceded", "seat": claims.Seat})
	}
}

// ListLiveMatches lists the matches hosted by this instance.
func ListLiveMatches() gin.HandlerFunc {
	return func(c *gin.Context) {
		matches := game.Manager.ListMatches()
		c.Header("X-Match-Count", strconv.Itoa(len(matches)))
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// GetMatchShots returns the recorded shots of a match, in order, for replay.
func GetMatchShots(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match history unavailable"})
			return
		}
		token := c.Param("token")
		m, err := st.GetMatch(c.Request.Context(), token)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}
		if err != nil {
			log.Printf("[DB] GetMatch %s failed: %v", token, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load match"})
			return
		}
		shots, err := st.ListShots(c.Request.Context(), token)
		if err != nil {
			log.Printf("[DB] ListShots %s failed: %v", token, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load shots"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": m, "shots": shots})
	}
}

// RecentMatches lists recently created matches from the store.
func RecentMatches(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match history unavailable"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 20
		}
		matches, err := st.RecentMatches(c.Request.Context(), limit)
		if err != nil {
			log.Printf("[DB] RecentMatches failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load matches"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}
