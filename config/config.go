// Package config loads environment variables and provides a typed Config used across the bridge.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required settings (video id, RCON credentials), use the Validate helpers.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// YouTube
	VideoID    string
	DataAPIKey string

	// Minecraft RCON
	RCONAddr     string
	RCONPassword string

	// Polling
	HTTPTimeout  time.Duration
	PollMaxDelay time.Duration

	// HTTP
	ServerAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if RCON creds
// are missing; use ValidateForwardReady() when you require forwarding. Missing optional
// variables disable features (e.g., Data API metadata lookup).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.VideoID = os.Getenv("YT_VIDEO_ID")
	cfg.DataAPIKey = os.Getenv("YT_DATA_API_KEY")

	cfg.RCONAddr = os.Getenv("RCON_ADDR")
	cfg.RCONPassword = os.Getenv("RCON_PASSWORD")

	cfg.HTTPTimeout = 10 * time.Second
	if v := os.Getenv("YT_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid YT_HTTP_TIMEOUT (duration): %q", v)
		}
		cfg.HTTPTimeout = d
	}

	// Cap on the server-suggested inter-poll delay. Bounds worst-case latency
	// and protects against a misbehaving suggested timeout.
	cfg.PollMaxDelay = 2 * time.Second
	if v := os.Getenv("CHAT_POLL_MAX_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid CHAT_POLL_MAX_DELAY (duration): %q", v)
		}
		cfg.PollMaxDelay = d
	}

	cfg.ServerAddr = os.Getenv("SERVER_ADDR")
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}

	return cfg, nil
}

// ValidateStreamReady checks required fields for tailing a live chat.
func (c *Config) ValidateStreamReady() error {
	if c.VideoID == "" {
		return fmt.Errorf("missing youtube env: require YT_VIDEO_ID")
	}
	return nil
}

// ValidateForwardReady checks required fields when RCON forwarding is enabled.
func (c *Config) ValidateForwardReady() error {
	if c.RCONAddr == "" || c.RCONPassword == "" {
		return fmt.Errorf("missing rcon env: require RCON_ADDR, RCON_PASSWORD")
	}
	return nil
}
