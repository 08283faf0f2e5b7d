// Package config holds the single Config struct the example host program
// threads through disk, buffer pool, logger, and telemetry construction.
package config

import (
	"github.com/gojodb/storagecore/pkg/logger"
	"github.com/gojodb/storagecore/pkg/telemetry"
)

// Config is the top-level configuration for a storage core instance.
type Config struct {
	DBFilePath       string `yaml:"db_file_path"`
	WALFilePath      string `yaml:"wal_file_path"`
	PoolSizePerShard int    `yaml:"pool_size_per_shard"`
	ShardCount       int    `yaml:"shard_count"`

	Logger    logger.Config    `yaml:"logger"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Default returns a small, single-shard configuration suitable for tests
// and the example host program.
func Default() Config {
	return Config{
		DBFilePath:       "storagecore.db",
		WALFilePath:      "storagecore.wal",
		PoolSizePerShard: 64,
		ShardCount:       1,
		Logger:           logger.Config{Level: "info", Format: "console", OutputFile: "stdout"},
		Telemetry:        telemetry.Config{Enabled: false, ServiceName: "storagecore"},
	}
}
