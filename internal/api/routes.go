package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/api/handlers"
	"github.com/playmatatu/carrom/internal/auth"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/middleware"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/playmatatu/carrom/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, st *store.Store, hub *ws.Hub, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	router.GET("/health", handlers.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.GetConfig(cfg))

		match := v1.Group("/match")
		{
			match.POST("", handlers.CreateMatch(cfg))
			match.GET("/live", handlers.ListLiveMatches())
			match.GET("/recent", handlers.RecentMatches(st))
			match.GET("/:token", handlers.GetMatchState())
			match.GET("/:token/shots", handlers.GetMatchShots(st))
			match.POST("/:token/join", handlers.JoinMatch(cfg))
			match.POST("/:token/concede", auth.RequireSeat(cfg.JWTSecret), handlers.ConcedeMatch())
			match.GET("/:token/ws", ws.HandleWebSocket(hub, cfg.JWTSecret))
		}

		queue := v1.Group("/queue")
		{
			queue.POST("", handlers.JoinQueue(st, cfg))
			queue.GET("/:queue_token", handlers.CheckQueueStatus(st, cfg))
		}
	}
}
