package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FRAME_INTERVAL_MS", "")
	t.Setenv("PHYSICS_SUB_STEPS", "")
	t.Setenv("AI_THINK_MS", "")

	cfg := Load()

	if cfg.FrameInterval() != 16*time.Millisecond {
		t.Errorf("frame interval = %v, want 16ms", cfg.FrameInterval())
	}
	if cfg.PhysicsSubSteps != 8 {
		t.Errorf("sub-steps = %d, want 8", cfg.PhysicsSubSteps)
	}
	if cfg.AIThinkDelay() != 800*time.Millisecond {
		t.Errorf("AI think delay = %v, want 800ms", cfg.AIThinkDelay())
	}
}

func TestLoadOverridesAndBadInts(t *testing.T) {
	t.Setenv("FINALIZE_DELAY_MS", "250")
	t.Setenv("IDLE_FORFEIT_SECONDS", "not-a-number")
	t.Setenv("APP_PORT", "9090")

	cfg := Load()

	if cfg.FinalizeDelay() != 250*time.Millisecond {
		t.Errorf("finalize delay = %v, want 250ms", cfg.FinalizeDelay())
	}
	if cfg.IdleForfeitSeconds != 120 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.IdleForfeitSeconds)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Port)
	}
}
