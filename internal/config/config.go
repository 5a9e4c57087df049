package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL  string
	ReplayDBPath string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Engine timing
	FrameIntervalMs int
	PhysicsSubSteps int
	FinalizeDelayMs int
	AIThinkMs       int
	AIAimMs         int

	// Match lifecycle
	IdleForfeitSeconds     int
	IdleWorkerPollInterval int
	MatchmakerPollSeconds  int
	QueueExpiryMinutes     int
	SnapshotTTLMinutes     int

	// Security
	JWTSecret           string
	SeatTokenTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:  getEnv("DATABASE_URL", "postgres://localhost:5432/carrom?sslmode=disable"),
		ReplayDBPath: getEnv("REPLAY_DB_PATH", "carrom_replays.db"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Engine timing
		FrameIntervalMs: getEnvInt("FRAME_INTERVAL_MS", 16),
		PhysicsSubSteps: getEnvInt("PHYSICS_SUB_STEPS", 8),
		FinalizeDelayMs: getEnvInt("FINALIZE_DELAY_MS", 100),
		AIThinkMs:       getEnvInt("AI_THINK_MS", 800),
		AIAimMs:         getEnvInt("AI_AIM_MS", 300),

		// Match lifecycle
		IdleForfeitSeconds:     getEnvInt("IDLE_FORFEIT_SECONDS", 120),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_INTERVAL", 5),
		MatchmakerPollSeconds:  getEnvInt("MATCHMAKER_POLL_SECONDS", 3),
		QueueExpiryMinutes:     getEnvInt("QUEUE_EXPIRY_MINUTES", 10),
		SnapshotTTLMinutes:     getEnvInt("SNAPSHOT_TTL_MINUTES", 60),

		// Security
		JWTSecret:           getEnv("JWT_SECRET", "change-me-in-production"),
		SeatTokenTTLMinutes: getEnvInt("SEAT_TOKEN_TTL_MINUTES", 180),
	}
}

// FrameInterval is the wall-clock time between engine frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

func (c *Config) FinalizeDelay() time.Duration {
	return time.Duration(c.FinalizeDelayMs) * time.Millisecond
}

func (c *Config) AIThinkDelay() time.Duration {
	return time.Duration(c.AIThinkMs) * time.Millisecond
}

func (c *Config) AIAimDelay() time.Duration {
	return time.Duration(c.AIAimMs) * time.Millisecond
}

func (c *Config) SeatTokenTTL() time.Duration {
	return time.Duration(c.SeatTokenTTLMinutes) * time.Minute
}

func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
