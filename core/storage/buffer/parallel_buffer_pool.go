package buffer

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gojodb/storagecore/core/storage/disk"
	pg "github.com/gojodb/storagecore/core/storage/page"
	"github.com/gojodb/storagecore/core/storage/wal"
)

// ParallelPool routes page operations across a fixed number of independent
// Instance shards by page id, so no single mutex serializes the whole pool.
// NewPage spreads allocation across shards via a rotating start index rather
// than always asking shard 0 first.
type ParallelPool struct {
	shards     []*Instance
	shardCount int
	startIndex int64 // atomic, advanced on every NewPage call

	logger *zap.Logger
}

// ParallelConfig configures a pool of shardCount instances, each with
// framesPerShard frames.
type ParallelConfig struct {
	ShardCount     int
	FramesPerShard int
	Disk           disk.Manager
	Log            wal.Handle
	Logger         *zap.Logger
	Metrics        Metrics
}

// NewParallelPool constructs every shard eagerly.
func NewParallelPool(cfg ParallelConfig) *ParallelPool {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p := &ParallelPool{
		shards:     make([]*Instance, cfg.ShardCount),
		shardCount: cfg.ShardCount,
		logger:     cfg.Logger,
	}
	for i := 0; i < cfg.ShardCount; i++ {
		p.shards[i] = NewInstance(Config{
			PoolSize:   cfg.FramesPerShard,
			ShardIndex: i,
			ShardCount: cfg.ShardCount,
			Disk:       cfg.Disk,
			Log:        cfg.Log,
			Logger:     cfg.Logger,
			Metrics:    cfg.Metrics,
		})
	}
	return p
}

func (p *ParallelPool) shardFor(id pg.ID) *Instance {
	idx := int64(id) % int64(p.shardCount)
	if idx < 0 {
		idx += int64(p.shardCount)
	}
	return p.shards[idx]
}

// FetchPage routes to the owning shard.
func (p *ParallelPool) FetchPage(ctx context.Context, id pg.ID) (*pg.Page, error) {
	return p.shardFor(id).FetchPage(ctx, id)
}

// UnpinPage routes to the owning shard.
func (p *ParallelPool) UnpinPage(id pg.ID, isDirty bool) bool {
	return p.shardFor(id).UnpinPage(id, isDirty)
}

// FlushPage routes to the owning shard.
func (p *ParallelPool) FlushPage(ctx context.Context, id pg.ID) bool {
	return p.shardFor(id).FlushPage(ctx, id)
}

// DeletePage routes to the owning shard.
func (p *ParallelPool) DeletePage(id pg.ID) bool {
	return p.shardFor(id).DeletePage(id)
}

// NewPage tries each shard starting from a rotating index, returning the
// first successful allocation. Returns nil only if every shard is full.
func (p *ParallelPool) NewPage(ctx context.Context) (*pg.Page, pg.ID, error) {
	start := int(atomic.AddInt64(&p.startIndex, 1)-1) % p.shardCount
	var lastErr error
	for i := 0; i < p.shardCount; i++ {
		idx := (start + i) % p.shardCount
		page, id, err := p.shards[idx].NewPage(ctx)
		if err == nil {
			return page, id, nil
		}
		lastErr = err
	}
	return nil, pg.InvalidID, lastErr
}

// FlushAllPages fans out to every shard concurrently; shards never share a
// page id so there is no cross-shard ordering to preserve.
func (p *ParallelPool) FlushAllPages(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(len(p.shards))
	for _, s := range p.shards {
		s := s
		go func() {
			defer wg.Done()
			s.FlushAllPages(ctx)
		}()
	}
	wg.Wait()
}

// OccupiedPageCount sums the occupied-page count across every shard.
func (p *ParallelPool) OccupiedPageCount() int {
	total := 0
	for _, s := range p.shards {
		total += s.OccupiedPageCount()
	}
	return total
}
