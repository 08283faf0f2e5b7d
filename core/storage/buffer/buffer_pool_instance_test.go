package buffer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gojodb/storagecore/core/storage/disk"
	"github.com/gojodb/storagecore/core/storage/page"
)

func newTestInstance(t *testing.T, poolSize int) *Instance {
	t.Helper()
	dm, err := disk.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dm.ShutDown() })
	return NewInstance(Config{
		PoolSize:   poolSize,
		ShardIndex: 0,
		ShardCount: 1,
		Disk:       dm,
		Logger:     zap.NewNop(),
	})
}

func TestBufferPoolBasicAllocationAndEviction(t *testing.T) {
	ctx := context.Background()
	pool := newTestInstance(t, 10)

	var ids []page.ID
	for i := 0; i < 10; i++ {
		_, id, err := pool.NewPage(ctx)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	_, _, err := pool.NewPage(ctx)
	require.Error(t, err, "pool should be exhausted when every frame is pinned")

	require.True(t, pool.UnpinPage(ids[0], true))
	p, newID, err := pool.NewPage(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotEqual(t, ids[0], newID, "the unpinned frame's old page id should be evicted and reused for a new id")
}

func TestBufferPoolFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := newTestInstance(t, 4)

	p, id, err := pool.NewPage(ctx)
	require.NoError(t, err)
	copy(p.Data(), []byte("hello-world"))
	require.True(t, pool.UnpinPage(id, true))
	require.True(t, pool.FlushPage(ctx, id))

	for i := 0; i < 3; i++ {
		_, _, err := pool.NewPage(ctx)
		require.NoError(t, err)
	}

	fetched, err := pool.FetchPage(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "hello-world", string(fetched.Data()[:11]))
	pool.UnpinPage(id, false)
}

func TestBufferPoolUnpinUnknownPageFails(t *testing.T) {
	pool := newTestInstance(t, 2)
	require.False(t, pool.UnpinPage(999, false))
}

func TestBufferPoolDeletePinnedPageFails(t *testing.T) {
	ctx := context.Background()
	pool := newTestInstance(t, 2)
	_, id, err := pool.NewPage(ctx)
	require.NoError(t, err)
	require.False(t, pool.DeletePage(id))
	require.True(t, pool.UnpinPage(id, false))
	require.True(t, pool.DeletePage(id))
}
