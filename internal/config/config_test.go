package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TCPAddr() != "0.0.0.0:3131" {
		t.Errorf("expected default game port 3131, got %s", cfg.TCPAddr())
	}
	if cfg.HTTPAddr() != "0.0.0.0:8009" {
		t.Errorf("unexpected HTTP address %s", cfg.HTTPAddr())
	}
	if cfg.MatchNameTimeout != 30*time.Second || cfg.SendBuffer != 256 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.LobbyStartingArmies != 40 || cfg.MatchStartingArmies != 20 {
		t.Errorf("unexpected army defaults %d/%d", cfg.LobbyStartingArmies, cfg.MatchStartingArmies)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Error("stores should be disabled by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("HTTP_ENABLED", "false")
	t.Setenv("MATCH_NAME_TIMEOUT", "5s")
	t.Setenv("MESSAGES_PER_SECOND", "2.5")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "4000" || cfg.HTTPAddr() != "" {
		t.Errorf("unexpected ports %s %q", cfg.Port, cfg.HTTPAddr())
	}
	if cfg.MatchNameTimeout != 5*time.Second || cfg.MessagesPerSecond != 2.5 {
		t.Errorf("unexpected values %+v", cfg)
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Errorf("unexpected redis URL %s", cfg.RedisURL)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SEND_BUFFER=64\nJWT_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Cleanup(func() { os.Unsetenv("SEND_BUFFER") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SendBuffer != 64 {
		t.Errorf("expected SEND_BUFFER from file, got %d", cfg.SendBuffer)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("environment should win over the file, got %s", cfg.JWTSecret)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Error("expected an error for an explicit missing file")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SEND_BUFFER", "0"},
		{"MESSAGE_BURST", "-1"},
		{"LOBBY_STARTING_ARMIES", "0"},
		{"MATCH_NAME_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected %s=%s to be rejected", tt.key, tt.value)
			}
		})
	}
}
