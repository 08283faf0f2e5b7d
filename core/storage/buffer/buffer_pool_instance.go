// Package buffer implements the fixed-size frame cache over a paged disk:
// a single-shard Instance, its free-list/LRU frame-selection policy, and the
// shard router (ParallelPool) that fans requests out across
// instances by page id.
package buffer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gojodb/storagecore/core/storage/disk"
	"github.com/gojodb/storagecore/core/storage/errs"
	pg "github.com/gojodb/storagecore/core/storage/page"
	"github.com/gojodb/storagecore/core/storage/replacer"
	"github.com/gojodb/storagecore/core/storage/wal"
)

// Instance is one shard of the buffer pool: a fixed array of frames, a free
// list, a page table, and an LRU replacer. Every exported method is
// goroutine-safe via a single instance-wide mutex.
type Instance struct {
	mu sync.Mutex

	poolSize    int
	shardIndex  int
	shardCount  int
	frames      []*pg.Page
	pageTable   map[pg.ID]replacer.FrameID
	freeList    []replacer.FrameID
	lru         *replacer.LRU
	disk        disk.Manager
	log         wal.Handle
	nextPageSeq int64 // position in this shard's id sequence; see allocateLocked

	logger  *zap.Logger
	metrics Metrics
}

// Config bundles the construction parameters for one shard.
type Config struct {
	PoolSize   int
	ShardIndex int
	ShardCount int
	Disk       disk.Manager
	Log        wal.Handle // nil is legal: logging disabled
	Logger     *zap.Logger
	Metrics    Metrics
}

// NewInstance constructs one buffer pool shard with poolSize frames, all
// initially free.
func NewInstance(cfg Config) *Instance {
	if cfg.ShardCount == 0 {
		cfg.ShardCount = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	inst := &Instance{
		poolSize:   cfg.PoolSize,
		shardIndex: cfg.ShardIndex,
		shardCount: cfg.ShardCount,
		frames:     make([]*pg.Page, cfg.PoolSize),
		pageTable:  make(map[pg.ID]replacer.FrameID, cfg.PoolSize),
		freeList:   make([]replacer.FrameID, 0, cfg.PoolSize),
		lru:        replacer.NewLRU(cfg.PoolSize),
		disk:       cfg.Disk,
		log:        cfg.Log,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
	for i := 0; i < cfg.PoolSize; i++ {
		inst.frames[i] = pg.New(pg.InvalidID)
		inst.freeList = append(inst.freeList, replacer.FrameID(i))
	}
	return inst
}

func (b *Instance) ownsShard(id pg.ID) bool {
	return int64(id)%int64(b.shardCount) == int64(b.shardIndex)
}

// pickFrame returns a frame ready for a new occupant, evicting the LRU
// victim if the free list is empty. Caller must hold b.mu.
func (b *Instance) pickFrame(ctx context.Context) (replacer.FrameID, error) {
	if n := len(b.freeList); n > 0 {
		fid := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return fid, nil
	}

	fid, ok := b.lru.Victim()
	if !ok {
		return 0, errs.ErrBufferPoolFull
	}
	victim := b.frames[fid]
	if victim.IsDirty() && victim.ID() != pg.InvalidID {
		if b.log != nil {
			if _, err := b.log.Append(wal.Record{Type: wal.RecordTypePageWrite, Page: victim.ID()}); err != nil {
				b.logger.Warn("log append failed before eviction write-back", zap.Int64("page_id", int64(victim.ID())), zap.Error(err))
			}
		}
		if err := b.disk.WritePage(victim.ID(), victim.Data()); err != nil {
			b.logger.Error("evicted page write-back failed", zap.Int64("page_id", int64(victim.ID())), zap.Error(err))
			return 0, fmt.Errorf("buffer: evict write-back: %w", err)
		}
		victim.SetDirty(false)
	}
	if victim.ID() != pg.InvalidID {
		delete(b.pageTable, victim.ID())
	}
	b.metrics.recordEviction(ctx)
	victim.Reset()
	return fid, nil
}

// FetchPage pins id, loading it from disk on a miss. Returns nil if no frame
// could be freed.
func (b *Instance) FetchPage(ctx context.Context, id pg.ID) (*pg.Page, error) {
	if !b.ownsShard(id) {
		return nil, errs.ErrWrongShard
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if fid, ok := b.pageTable[id]; ok {
		p := b.frames[fid]
		if p.PinCount() == 0 {
			b.lru.Pin(fid)
		}
		p.Pin()
		b.metrics.recordHit(ctx)
		return p, nil
	}

	b.metrics.recordMiss(ctx)
	fid, err := b.pickFrame(ctx)
	if err != nil {
		return nil, err
	}
	p := b.frames[fid]
	if err := b.disk.ReadPage(id, p.Data()); err != nil {
		b.freeList = append(b.freeList, fid)
		return nil, fmt.Errorf("buffer: fetch page %d: %w", id, err)
	}
	p.SetID(id)
	p.Pin()
	b.pageTable[id] = fid
	return p, nil
}

// NewPage allocates a fresh page id owned by this shard and pins it.
func (b *Instance) NewPage(ctx context.Context) (*pg.Page, pg.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fid, err := b.pickFrame(ctx)
	if err != nil {
		return nil, pg.InvalidID, err
	}
	id := b.allocateLocked()
	p := b.frames[fid]
	p.SetID(id)
	p.Pin()
	p.SetDirty(true)
	b.pageTable[id] = fid
	b.logger.Debug("new page allocated", zap.Int64("page_id", int64(id)))
	return p, id, nil
}

// allocateLocked hands out the next page id owned by this shard: ids are
// assigned in the arithmetic sequence shardIndex, shardIndex+shardCount,
// shardIndex+2*shardCount, ... so every id this instance ever returns
// already satisfies ownsShard without requiring coordination with sibling
// shards.
func (b *Instance) allocateLocked() pg.ID {
	id := pg.ID(b.nextPageSeq*int64(b.shardCount) + int64(b.shardIndex))
	b.nextPageSeq++
	return id
}

// UnpinPage decrements id's pin count. isDirty, if true, latches the dirty
// flag (it is never cleared here). Returns false if id is not resident or
// already unpinned.
func (b *Instance) UnpinPage(id pg.ID, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	fid, ok := b.pageTable[id]
	if !ok {
		return false
	}
	p := b.frames[fid]
	if p.PinCount() == 0 {
		return false
	}
	if isDirty {
		p.SetDirty(true)
	}
	if p.Unpin() {
		b.lru.Unpin(fid)
	}
	return true
}

// FlushPage writes id's bytes to disk if resident, clearing its dirty flag.
func (b *Instance) FlushPage(ctx context.Context, id pg.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx, id)
}

func (b *Instance) flushLocked(ctx context.Context, id pg.ID) bool {
	fid, ok := b.pageTable[id]
	if !ok {
		return false
	}
	p := b.frames[fid]
	if err := b.disk.WritePage(id, p.Data()); err != nil {
		b.logger.Error("flush page failed", zap.Int64("page_id", int64(id)), zap.Error(err))
		return false
	}
	p.SetDirty(false)
	b.metrics.recordFlush(ctx)
	return true
}

// FlushAllPages writes back every resident page.
func (b *Instance) FlushAllPages(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.pageTable {
		b.flushLocked(ctx, id)
	}
}

// DeletePage removes id from the pool. Succeeds as a no-op if id is not
// resident. Fails if id is still pinned.
func (b *Instance) DeletePage(id pg.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	fid, ok := b.pageTable[id]
	if !ok {
		_ = b.disk.DeallocatePage(id)
		return true
	}
	p := b.frames[fid]
	if p.PinCount() > 0 {
		b.logger.Warn("delete page failed", zap.Int64("page_id", int64(id)), zap.Error(errs.ErrPagePinned))
		return false
	}
	b.lru.Pin(fid) // remove from eviction candidates before reuse
	delete(b.pageTable, id)
	p.Reset()
	b.freeList = append(b.freeList, fid)
	_ = b.disk.DeallocatePage(id)
	return true
}

// OccupiedPageCount returns the number of pages currently pinned: the page
// table's size minus the replacer's size, preserved verbatim from the
// design this is grounded on.
func (b *Instance) OccupiedPageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pageTable) - b.lru.Size()
}
