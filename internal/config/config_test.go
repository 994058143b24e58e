package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadSanitizesCacheTTLs(t *testing.T) {
	t.Setenv("RATE_TTL_SECONDS", "not-a-number")
	t.Setenv("INVENTORY_TTL_SECONDS", "-5")

	cfg := Load()
	if cfg.RateTTLSeconds != 30 {
		t.Fatalf("expected rate ttl fallback 30, got %d", cfg.RateTTLSeconds)
	}
	if cfg.InventoryTTLSeconds != 10 {
		t.Fatalf("expected inventory ttl fallback 10, got %d", cfg.InventoryTTLSeconds)
	}
}
