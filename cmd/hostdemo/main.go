// Command hostdemo constructs a disk manager, buffer pool, extendible hash
// table, and lock manager the way a host process is expected to: by
// programmatic composition rather than through a CLI or wire protocol.
package main

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/gojodb/storagecore/core/config"
	"github.com/gojodb/storagecore/core/index/hash"
	"github.com/gojodb/storagecore/core/lock"
	"github.com/gojodb/storagecore/core/storage/buffer"
	"github.com/gojodb/storagecore/core/storage/disk"
	"github.com/gojodb/storagecore/core/storage/page"
	"github.com/gojodb/storagecore/core/storage/wal"
	"github.com/gojodb/storagecore/core/txn"
	"github.com/gojodb/storagecore/pkg/logger"
	"github.com/gojodb/storagecore/pkg/telemetry"
)

func main() {
	cfg := config.Default()

	zapLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zapLogger.Sync()

	tel, shutdown, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		log.Fatalf("telemetry init: %v", err)
	}
	defer shutdown(context.Background())

	meter := tel.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("storagecore")
	}

	diskMgr, err := disk.Open(cfg.DBFilePath)
	if err != nil {
		log.Fatalf("disk open: %v", err)
	}
	defer diskMgr.ShutDown()

	logMgr, err := wal.Open(cfg.WALFilePath)
	if err != nil {
		log.Fatalf("wal open: %v", err)
	}
	defer logMgr.ShutDown()

	pool := buffer.NewInstance(buffer.Config{
		PoolSize:   cfg.PoolSizePerShard,
		ShardIndex: 0,
		ShardCount: 1,
		Disk:       diskMgr,
		Log:        logMgr,
		Logger:     zapLogger,
		Metrics:    buffer.NewMetrics(meter),
	})

	ctx := context.Background()
	table, err := hash.New(ctx, pool, zapLogger, hash.NewMetrics(meter))
	if err != nil {
		log.Fatalf("hash table init: %v", err)
	}

	for i := int64(0); i < 100; i++ {
		table.Insert(ctx, i, i*10)
	}
	values, ok := table.GetValue(ctx, 42)
	fmt.Println("GetValue(42):", values, ok)

	registry := txn.NewRegistry()
	lockMgr := lock.New(registry, zapLogger, lock.NewMetrics(meter))

	t1 := registry.Begin(txn.RepeatableRead)
	rid := page.RID{PageID: 1, Slot: 0}
	if lockMgr.LockShared(t1, rid) {
		fmt.Println("txn 0 acquired shared lock on", rid)
	}
	lockMgr.Unlock(t1, rid)
}
