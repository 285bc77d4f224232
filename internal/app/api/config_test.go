package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "POSTGRES_DSN", "TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "TEMPORAL_DISABLED",
		"MOVE_TIMEOUT_MS", "QUERY_LOG_DISABLED", "AUTO_MIGRATE", "MEMORY_SEED_RECORDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Empty(t, cfg.PostgresDSN)
	require.Equal(t, client.DefaultHostPort, cfg.TemporalAddress)
	require.Equal(t, client.DefaultNamespace, cfg.TemporalNamespace)
	require.False(t, cfg.TemporalDisabled)
	require.Equal(t, 5*time.Second, cfg.MoveTimeout)
	require.False(t, cfg.QueryLogDisabled)
	require.True(t, cfg.AutoMigrate)
	require.Zero(t, cfg.MemorySeedRecords)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("POSTGRES_DSN", " postgres://localhost/records ")
	t.Setenv("TEMPORAL_DISABLED", "yes")
	t.Setenv("MOVE_TIMEOUT_MS", "250")
	t.Setenv("QUERY_LOG_DISABLED", "1")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("MEMORY_SEED_RECORDS", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "postgres://localhost/records", cfg.PostgresDSN)
	require.True(t, cfg.TemporalDisabled)
	require.Equal(t, 250*time.Millisecond, cfg.MoveTimeout)
	require.True(t, cfg.QueryLogDisabled)
	require.False(t, cfg.AutoMigrate)
	require.Equal(t, 50, cfg.MemorySeedRecords)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOVE_TIMEOUT_MS", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	clearEnv(t)
	t.Setenv("MEMORY_SEED_RECORDS", "-1")
	_, err = LoadConfig()
	require.Error(t, err)
}
