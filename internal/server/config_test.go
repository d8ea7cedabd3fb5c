package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	require.Equal(t, ":3001", cfg.Port)
	require.Equal(t, 100, cfg.HistoryLimit)
	require.Equal(t, 50, cfg.ReplayLimit)
	require.Equal(t, int64(4096), cfg.MaxMessageSize)
	require.Equal(t, time.Second, cfg.RateLimitRefillInterval)
	require.Contains(t, cfg.Origins(), "http://localhost:5173")
}

func TestSanitizeClampsNonsense(t *testing.T) {
	cfg := &Config{
		Port:           "4000",
		MaxMessageSize: -1,
		HistoryLimit:   20,
		ReplayLimit:    80,
	}
	cfg.sanitize()

	require.Equal(t, ":4000", cfg.Port, "bare port numbers get a colon prefix")
	require.Equal(t, int64(4096), cfg.MaxMessageSize)
	require.Equal(t, 20, cfg.ReplayLimit, "replay window never exceeds retention")
	require.Positive(t, cfg.RateLimitBurst)
}

func TestOriginsParsing(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.example , ,http://b.example "}
	cfg.sanitize()

	require.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Origins())
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("HISTORY_LIMIT", "10")
	t.Setenv("REPLAY_LIMIT", "25")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("SYNC_UPSTREAM_URL", "ws://localhost:1234")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.Port)
	require.Equal(t, 10, cfg.HistoryLimit)
	require.Equal(t, 10, cfg.ReplayLimit, "clamped to history limit")
	require.Equal(t, 2*time.Second, cfg.RateLimitRefillInterval)
	require.Equal(t, "ws://localhost:1234", cfg.SyncUpstreamURL)
}
