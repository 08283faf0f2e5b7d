package buffer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gojodb/storagecore/core/storage/disk"
)

func newTestParallelPool(t *testing.T, shards, framesPerShard int) *ParallelPool {
	t.Helper()
	dm, err := disk.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dm.ShutDown() })
	return NewParallelPool(ParallelConfig{
		ShardCount:     shards,
		FramesPerShard: framesPerShard,
		Disk:           dm,
		Logger:         zap.NewNop(),
	})
}

func TestParallelPoolRoutesByPageIDModShardCount(t *testing.T) {
	ctx := context.Background()
	pool := newTestParallelPool(t, 4, 8)

	seen := make(map[int64]bool)
	for i := 0; i < 32; i++ {
		p, id, err := pool.NewPage(ctx)
		require.NoError(t, err)
		require.False(t, seen[int64(id)], "page ids must be unique across shards")
		seen[int64(id)] = true

		fetched, err := pool.FetchPage(ctx, id)
		require.NoError(t, err)
		require.Same(t, p, fetched, "routing by page id mod shard count must reach the shard that allocated it")
	}
}

func TestParallelPoolFlushAllPages(t *testing.T) {
	ctx := context.Background()
	pool := newTestParallelPool(t, 2, 4)

	for i := 0; i < 4; i++ {
		p, id, err := pool.NewPage(ctx)
		require.NoError(t, err)
		copy(p.Data(), []byte("data"))
		require.True(t, pool.UnpinPage(id, true))
	}
	pool.FlushAllPages(ctx)
}
