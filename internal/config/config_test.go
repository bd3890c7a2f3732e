package config

import (
	"testing"
	"time"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
	t.Setenv("JWT_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short JWT_SECRET")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SEQUENCE_LOCK_TTL_SECONDS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d", cfg.RedisDB)
	}
	if cfg.SequenceLockTTL != 4*time.Second {
		t.Errorf("SequenceLockTTL = %v", cfg.SequenceLockTTL)
	}
	if len(cfg.Warnings) != 1 {
		t.Errorf("expected only the DSN warning, got %v", cfg.Warnings)
	}
	origins := cfg.CORSOriginList()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("origins = %v", origins)
	}
}
