package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
)

// GetConfig returns the board geometry and engine limits a client needs to render and aim.
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	board := game.NewBoard(game.DefaultViewport, game.DefaultViewport)
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"board":                board,
			"max_power":            game.MaxPower,
			"min_shot_power":       game.MinShotPower,
			"power_scale":          game.PowerScale,
			"frame_interval_ms":    cfg.FrameIntervalMs,
			"idle_forfeit_seconds": cfg.IdleForfeitSeconds,
			"coin_value":           game.CoinValue,
			"queen_bonus":          game.QueenBonus,
			"striker_foul_penalty": game.StrikerFoulPenalty,
			"no_contact_penalty":   game.NoContactPenalty,
		})
	}
}
