package game

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/playmatatu/carrom/internal/config"
	"github.com/redis/go-redis/v9"
)

// StartIdleWorker forfeits remote players who sit on their turn past the idle deadline.
// Deadlines live in the carrom_idle sorted set, armed by the manager whenever a human seat gets the striker.
func StartIdleWorker(ctx context.Context, rdb *redis.Client, cfg *config.Config) {
	if rdb == nil || cfg == nil {
		log.Println("[IDLE] Redis or config missing; idle worker not started")
		return
	}

	interval := time.Duration(cfg.IdleWorkerPollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	log.Printf("[IDLE] Idle worker started (poll every %v, forfeit after %ds)", interval, cfg.IdleForfeitSeconds)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				processIdle(ctx, rdb, time.Now())
			}
		}
	}()
}

func processIdle(ctx context.Context, rdb *redis.Client, now time.Time) {
	members, err := rdb.ZRangeByScore(ctx, idleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle deadlines: %v", err)
		return
	}

	for _, m := range members {
		// Only the instance that removes the member acts on it.
		if removed, _ := rdb.ZRem(ctx, idleSetKey, m).Result(); removed == 0 {
			continue
		}
		token, player := parseMember(m)
		if token == "" || player == NoPlayer {
			continue
		}
		if Manager == nil {
			continue
		}
		match, err := Manager.GetMatch(token)
		if err != nil {
			// hosted elsewhere or already closed
			continue
		}
		if match.Status() != StatusInProgress {
			continue
		}
		snap, err := match.Snapshot()
		if err != nil {
			continue
		}
		if snap.Active != player || (snap.Phase != PhasePlacing && snap.Phase != PhaseAiming) {
			log.Printf("[IDLE] skipping forfeit for player %d in match %s (active=%d phase=%s)", player, token, snap.Active, snap.Phase)
			continue
		}
		log.Printf("[IDLE] Forfeiting player %d in match %s due to inactivity", player, token)
		if err := Manager.Forfeit(token, player, "idle"); err != nil {
			log.Printf("[IDLE] forfeit failed: match=%s player=%d err=%v", token, player, err)
		}
	}
}

// parseMember expects member format g:<matchToken>:p:<player>
func parseMember(m string) (string, Player) {
	parts := strings.Split(m, ":")
	if len(parts) != 4 || parts[0] != "g" || parts[2] != "p" {
		return "", NoPlayer
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || (Player(n) != Player1 && Player(n) != Player2) {
		return "", NoPlayer
	}
	return parts[1], Player(n)
}
