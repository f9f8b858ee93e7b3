package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("SNAPSHOT_TTL_SECONDS", "zero")
	t.Setenv("SCHEDULER_TICK_SECONDS", "-5")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")

	cfg := Load()
	if cfg.SnapshotTTLSeconds != 30 {
		t.Fatalf("expected snapshot TTL fallback 30, got %d", cfg.SnapshotTTLSeconds)
	}
	if cfg.SchedulerTickSeconds != 60 {
		t.Fatalf("expected scheduler tick fallback 60, got %d", cfg.SchedulerTickSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token TTL fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}
