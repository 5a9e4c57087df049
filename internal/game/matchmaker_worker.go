package game

import (
	"context"
	"log"
	"time"

	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/store"
)

// StartMatchmakerWorker runs a background job that pairs queued players into matches.
func StartMatchmakerWorker(ctx context.Context, st *store.Store, cfg *config.Config) {
	if st == nil || cfg == nil {
		log.Println("[MATCHMAKER] Store or config missing; matchmaker not started")
		return
	}

	interval := time.Duration(cfg.MatchmakerPollSeconds) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[MATCHMAKER] Starting matchmaker worker (poll every %v)", interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[MATCHMAKER] Worker stopped")
			return
		case <-ticker.C:
			processMatchmaking(ctx, st)
		}
	}
}

func processMatchmaking(ctx context.Context, st *store.Store) {
	if n, err := st.ExpireQueue(ctx); err != nil {
		log.Printf("[MATCHMAKER] Failed to expire queue: %v", err)
	} else if n > 0 {
		log.Printf("[MATCHMAKER] Expired %d stale queue entries", n)
	}

	for {
		matched, err := tryMatchPair(ctx, st)
		if err != nil {
			log.Printf("[MATCHMAKER] %v", err)
			return
		}
		if !matched {
			return
		}
	}
}

// tryMatchPair claims the two oldest queued players and hosts their match.
func tryMatchPair(ctx context.Context, st *store.Store) (bool, error) {
	token := NewMatchToken()
	pair, err := st.ClaimPair(ctx, token)
	if err != nil {
		return false, err
	}
	if len(pair) < 2 {
		return false, nil
	}

	log.Printf("[MATCHMAKER] Matching %q vs %q as %s", pair[0].DisplayName, pair[1].DisplayName, token)

	if Manager == nil {
		log.Printf("[MATCHMAKER] Game manager not initialized; match %s not hosted", token)
		return true, nil
	}
	if _, err := Manager.CreateQueuedMatch(token, [2]string{pair[0].DisplayName, pair[1].DisplayName}); err != nil {
		log.Printf("[MATCHMAKER] Failed to host match %s: %v", token, err)
		return true, nil
	}
	log.Printf("[MATCHMAKER] ✓ Match created: token=%s queue=[%s,%s]", token, pair[0].QueueToken, pair[1].QueueToken)
	return true, nil
}
