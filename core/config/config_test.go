package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultProducesAUsableSingleShardConfig(t *testing.T) {
	cfg := Default()

	require.NotEmpty(t, cfg.DBFilePath)
	require.NotEmpty(t, cfg.WALFilePath)
	require.Equal(t, 1, cfg.ShardCount)
	require.Greater(t, cfg.PoolSizePerShard, 0)
	require.NotEmpty(t, cfg.Logger.Level)
	require.False(t, cfg.Telemetry.Enabled, "telemetry defaults to off so tests and examples don't require a collector")
}
