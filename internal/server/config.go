// Package server loads runtime configuration from the environment, with a
// sanitize pass that backfills defaults for missing or nonsensical values.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	defaultHistoryLimit = 100
	defaultReplayLimit  = 50
)

// Config holds the server settings, including security controls for the
// WebSocket endpoint and the upstream address of the document sync server.
type Config struct {
	Port           string `env:"PORT,default=:3001"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	MaxMessageSize int64  `env:"MAX_MESSAGE_SIZE,default=4096"`

	RateLimitBurst          int           `env:"RATE_LIMIT_BURST,default=10"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`

	SyncUpstreamURL string `env:"SYNC_UPSTREAM_URL"`

	HistoryLimit int `env:"HISTORY_LIMIT,default=100"`
	ReplayLimit  int `env:"REPLAY_LIMIT,default=50"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
}

// LoadConfig reads configuration from a .env file (if present) and the
// process environment, then sanitizes the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	cfg.sanitize()
	return &cfg, nil
}

// NewConfig returns a Config populated with defaults only, without touching
// the environment. Used by tests.
func NewConfig() *Config {
	cfg := &Config{
		Port:                    ":3001",
		MaxMessageSize:          4096,
		RateLimitBurst:          10,
		RateLimitRefillInterval: time.Second,
		HistoryLimit:            defaultHistoryLimit,
		ReplayLimit:             defaultReplayLimit,
		ShutdownTimeout:         10 * time.Second,
		LogLevel:                "info",
	}
	cfg.sanitize()
	return cfg
}

func (c *Config) sanitize() {
	c.Port = strings.TrimSpace(c.Port)
	if c.Port == "" {
		c.Port = ":3001"
	}
	// Accept a bare port number the way the original deployment passed it.
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}

	if c.AllowedOrigins == "" {
		c.AllowedOrigins = "http://localhost:5173,http://localhost:3000"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = time.Second
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.ReplayLimit <= 0 {
		c.ReplayLimit = defaultReplayLimit
	}
	if c.ReplayLimit > c.HistoryLimit {
		c.ReplayLimit = c.HistoryLimit
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Origins returns the allowed origins as a trimmed list.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
