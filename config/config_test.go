package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"YT_VIDEO_ID", "YT_DATA_API_KEY", "RCON_ADDR", "RCON_PASSWORD",
		"YT_HTTP_TIMEOUT", "CHAT_POLL_MAX_DELAY", "SERVER_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want 10s", cfg.HTTPTimeout)
	}
	if cfg.PollMaxDelay != 2*time.Second {
		t.Errorf("PollMaxDelay = %v, want 2s", cfg.PollMaxDelay)
	}
	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q, want :8080", cfg.ServerAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("YT_VIDEO_ID", "vid123")
	t.Setenv("YT_HTTP_TIMEOUT", "3s")
	t.Setenv("CHAT_POLL_MAX_DELAY", "750ms")
	t.Setenv("SERVER_ADDR", ":9999")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.VideoID != "vid123" {
		t.Errorf("VideoID = %q, want vid123", cfg.VideoID)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("HTTPTimeout = %v, want 3s", cfg.HTTPTimeout)
	}
	if cfg.PollMaxDelay != 750*time.Millisecond {
		t.Errorf("PollMaxDelay = %v, want 750ms", cfg.PollMaxDelay)
	}
	if cfg.ServerAddr != ":9999" {
		t.Errorf("ServerAddr = %q, want :9999", cfg.ServerAddr)
	}
}

func TestLoadInvalidDurations(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"YT_HTTP_TIMEOUT", "soon"},
		{"YT_HTTP_TIMEOUT", "-1s"},
		{"CHAT_POLL_MAX_DELAY", "whenever"},
		{"CHAT_POLL_MAX_DELAY", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() = nil error with %s=%q, want error", tt.key, tt.value)
			}
		})
	}
}

func TestValidateStreamReady(t *testing.T) {
	clearEnv(t)
	cfg, _ := Load()
	if err := cfg.ValidateStreamReady(); err == nil {
		t.Error("expected error when YT_VIDEO_ID missing")
	}
	t.Setenv("YT_VIDEO_ID", "vid123")
	cfg, _ = Load()
	if err := cfg.ValidateStreamReady(); err != nil {
		t.Errorf("expected valid stream config, got %v", err)
	}
}

func TestValidateForwardReady(t *testing.T) {
	clearEnv(t)
	cfg, _ := Load()
	if err := cfg.ValidateForwardReady(); err == nil {
		t.Error("expected error when RCON envs missing")
	}
	t.Setenv("RCON_ADDR", "localhost:25575")
	cfg, _ = Load()
	if err := cfg.ValidateForwardReady(); err == nil {
		t.Error("expected error when RCON_PASSWORD missing")
	}
	t.Setenv("RCON_PASSWORD", "hunter2")
	cfg, _ = Load()
	if err := cfg.ValidateForwardReady(); err != nil {
		t.Errorf("expected valid forward config, got %v", err)
	}
}
