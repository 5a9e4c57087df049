package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/playmatatu/carrom/internal/api"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/database"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/migrations"
	"github.com/playmatatu/carrom/internal/redis"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/playmatatu/carrom/internal/ws"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := openDatabase(cfg)
	defer db.Close()
	st := store.New(db)

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		var err error
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("[REDIS] REDIS_URL empty; running without snapshot cache, idle forfeits or relay")
	}

	game.InitializeManager(ctx, st, rdb, cfg)
	game.Manager.SetBroadcaster(ws.GameHub)

	if rdb != nil {
		relay := ws.NewRelay(rdb)
		ws.GameHub.SetRelay(relay)
		ws.StartRelaySubscriber(ctx, relay, ws.GameHub)
	}

	game.StartIdleWorker(ctx, rdb, cfg)
	go game.StartMatchmakerWorker(ctx, st, cfg)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, st, ws.GameHub, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting carrom server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	game.Manager.Shutdown()
}

// openDatabase connects to Postgres (running migrations when MIGRATE_ON_START=true), or to a
// local sqlite file when DATABASE_URL has the sqlite:// scheme.
func openDatabase(cfg *config.Config) *sqlx.DB {
	if path, ok := strings.CutPrefix(cfg.DatabaseURL, "sqlite://"); ok {
		db, err := database.OpenSQLite(path)
		if err != nil {
			log.Fatalf("Failed to open sqlite database: %v", err)
		}
		if err := store.EnsureSQLiteSchema(db); err != nil {
			log.Fatalf("Failed to prepare sqlite schema: %v", err)
		}
		log.Printf("[DB] Using sqlite database %s", path)
		return db
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, migrations.DefaultDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}
	return db
}
