package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	require.Equal(t, "8083", cfg.Port)
	require.Equal(t, 5, cfg.MaxConnectionsPerUser)
	require.Equal(t, 100, cfg.MaxQueueLength)
	require.Equal(t, 24*time.Hour, cfg.QueueTTL)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_CONNECTIONS_PER_USER", "2")
	t.Setenv("QUEUE_TTL", "30m")

	cfg := FromEnv()
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, 2, cfg.MaxConnectionsPerUser)
	require.Equal(t, 30*time.Minute, cfg.QueueTTL)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_QUEUE_LENGTH", "lots")
	t.Setenv("QUEUE_TTL", "soon")

	cfg := FromEnv()
	require.Equal(t, 100, cfg.MaxQueueLength)
	require.Equal(t, 24*time.Hour, cfg.QueueTTL)
}

func TestValidateRejectsBadKnobs(t *testing.T) {
	cfg := FromEnv()
	cfg.MaxConnectionsPerUser = 0
	require.Error(t, cfg.Validate())

	cfg = FromEnv()
	cfg.MaxQueueLength = -1
	require.Error(t, cfg.Validate())

	cfg = FromEnv()
	cfg.QueueTTL = 0
	require.Error(t, cfg.Validate())
}
