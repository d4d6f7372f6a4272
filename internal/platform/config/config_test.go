package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, EventBusInProcess, cfg.EventBus)
	assert.Equal(t, 5000, cfg.DefaultQuorumBps)
	assert.True(t, cfg.EnforceVotingWindow)
	assert.False(t, cfg.RejectZeroPowerVotes)
}

func TestLoadLayersFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service_name: governance-core
event_bus: nats
nats_url: nats://localhost:4222
default_quorum_bps: 3300
worker_poll_interval: 5s
cors_allowed_origins: [https://app.example.org]
`), 0o600))

	t.Setenv("DEFAULT_QUORUM_BPS", "4000")
	t.Setenv("REJECT_ZERO_POWER_VOTES", "yes")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "governance-core", cfg.ServiceName)
	assert.Equal(t, EventBusNATS, cfg.EventBus)
	assert.Equal(t, 4000, cfg.DefaultQuorumBps)
	assert.Equal(t, 5*time.Second, cfg.WorkerPollInterval)
	assert.Equal(t, []string{"https://app.example.org"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.RejectZeroPowerVotes)
}

func TestLoadRejectsMalformedEnvironment(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidateRejectsImpossibleValues(t *testing.T) {
	cfg := Default()
	cfg.EventBus = EventBusRedis
	cfg.DefaultQuorumBps = 12000
	cfg.WorkerPollInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis_url")
	assert.Contains(t, err.Error(), "default_quorum_bps")
	assert.Contains(t, err.Error(), "worker_poll_interval")
}

func TestEnvBoolFallsBackOnUnknownValues(t *testing.T) {
	t.Setenv("ENFORCE_VOTING_WINDOW", "maybe")
	assert.True(t, envBool("ENFORCE_VOTING_WINDOW", true))
	t.Setenv("ENFORCE_VOTING_WINDOW", "off")
	assert.False(t, envBool("ENFORCE_VOTING_WINDOW", true))
}
