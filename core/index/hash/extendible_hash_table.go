package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/gojodb/storagecore/core/storage/errs"
	"github.com/gojodb/storagecore/core/storage/page"
)

// Pool is the subset of the buffer pool the hash table depends on. Both
// buffer.Instance and buffer.ParallelPool satisfy it.
type Pool interface {
	FetchPage(ctx context.Context, id page.ID) (*page.Page, error)
	NewPage(ctx context.Context) (*page.Page, page.ID, error)
	UnpinPage(id page.ID, isDirty bool) bool
	DeletePage(id page.ID) bool
}

// Table is a persistent extendible hash index. It holds no page references
// between calls: every operation pins, mutates, and unpins.
type Table struct {
	mu        sync.RWMutex // table-level latch; exclusive for structural ops, shared for reads
	pool      Pool
	directory page.ID
	logger    *zap.Logger
	metrics   Metrics
}

// New allocates the initial directory and bucket page and returns the table.
func New(ctx context.Context, pool Pool, logger *zap.Logger, metrics Metrics) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dirPage, dirID, err := pool.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("hash: allocate directory page: %w", err)
	}
	bucketPage, bucketID, err := pool.NewPage(ctx)
	if err != nil {
		pool.UnpinPage(dirID, false)
		return nil, fmt.Errorf("hash: allocate initial bucket page: %w", err)
	}
	dir := NewDirectoryPage(dirPage)
	dir.Init(bucketID)
	NewBucketPage(bucketPage).Init()

	pool.UnpinPage(dirID, true)
	pool.UnpinPage(bucketID, true)

	return &Table{pool: pool, directory: dirID, logger: logger, metrics: metrics}, nil
}

func hashKey(key Key) uint32 {
	h := fnv.New32a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(key) >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum32()
}

func (t *Table) indexOf(dir *DirectoryPage, key Key) uint32 {
	return hashKey(key) & dir.GlobalDepthMask()
}

// GetValue returns every value stored for key.
func (t *Table) GetValue(ctx context.Context, key Key) ([]Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	dirPage, err := t.pool.FetchPage(ctx, t.directory)
	if err != nil {
		return nil, false
	}
	dirPage.RLock()
	dir := NewDirectoryPage(dirPage)
	idx := t.indexOf(dir, key)
	bucketID := dir.GetBucketPageID(idx)
	dirPage.RUnlock()
	t.pool.UnpinPage(t.directory, false)

	bucketPage, err := t.pool.FetchPage(ctx, bucketID)
	if err != nil {
		return nil, false
	}
	bucketPage.RLock()
	values := NewBucketPage(bucketPage).GetValue(key)
	bucketPage.RUnlock()
	t.pool.UnpinPage(bucketID, false)
	return values, len(values) > 0
}

// Insert adds (key, value). Returns false on an exact duplicate or if the
// directory has exhausted its capacity while trying to make room.
func (t *Table) Insert(ctx context.Context, key Key, value Value) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(ctx, key, value)
}

// insertLocked implements Insert/SplitInsert as a bounded retry loop rather
// than mutual recursion: each iteration either completes the insert or
// performs exactly one split and loops.
func (t *Table) insertLocked(ctx context.Context, key Key, value Value) bool {
	const maxSplits = 32 // bounded by log2(DirectoryArraySize)+headroom
	for attempt := 0; attempt < maxSplits; attempt++ {
		dirPage, err := t.pool.FetchPage(ctx, t.directory)
		if err != nil {
			return false
		}
		dirPage.RLock()
		dir := NewDirectoryPage(dirPage)
		idx := t.indexOf(dir, key)
		bucketID := dir.GetBucketPageID(idx)
		dirPage.RUnlock()

		bucketPage, err := t.pool.FetchPage(ctx, bucketID)
		if err != nil {
			t.pool.UnpinPage(t.directory, false)
			return false
		}
		bucket := NewBucketPage(bucketPage)

		bucketPage.RLock()
		full := bucket.IsFull()
		bucketPage.RUnlock()

		if !full {
			bucketPage.Lock()
			ok := bucket.Insert(key, value)
			bucketPage.Unlock()
			t.pool.UnpinPage(bucketID, ok)
			t.pool.UnpinPage(t.directory, false)
			if ok {
				t.metrics.recordInsert()
			}
			return ok
		}

		// Bucket is full: split it, then retry.
		if !t.splitBucket(ctx, dir, idx, bucketID, bucket) {
			t.pool.UnpinPage(bucketID, false)
			t.pool.UnpinPage(t.directory, false)
			return false
		}
		t.pool.UnpinPage(bucketID, true)
		t.pool.UnpinPage(t.directory, true)
	}
	t.logger.Error("hash: exceeded maximum split retries", zap.Int64("key", int64(key)))
	return false
}

// splitBucket performs one split of the bucket at directory index idx.
// Caller holds the table's exclusive latch and has both dir and the bucket
// page pinned; splitBucket does not unpin them.
func (t *Table) splitBucket(ctx context.Context, dir *DirectoryPage, idx uint32, bucketID page.ID, bucket *BucketPage) bool {
	dir.p.Lock()
	defer dir.p.Unlock()

	localDepth := uint32(dir.GetLocalDepth(idx))
	if localDepth == dir.GlobalDepth() {
		if dir.Size()*2 > DirectoryArraySize {
			t.logger.Error("hash: cannot split bucket", zap.Error(errs.ErrDirectoryFull))
			return false
		}
		dir.IncrGlobalDepth()
	}

	newBucketPage, newBucketID, err := t.pool.NewPage(ctx)
	if err != nil {
		return false
	}
	newBucketPage.Lock()
	defer newBucketPage.Unlock()
	newBucket := NewBucketPage(newBucketPage)
	newBucket.Init()

	step := uint32(1) << localDepth
	highBit := idx & (step - 1)
	size := dir.Size()
	for j := highBit; j < size; j += step {
		if j&step != 0 {
			dir.SetBucketPageID(j, newBucketID)
		} else {
			dir.SetBucketPageID(j, bucketID)
		}
		dir.IncrLocalDepth(j)
	}

	// Redistribute existing entries between the old bucket and the new one.
	bucket.p.Lock()
	defer bucket.p.Unlock()
	items := bucket.GetAllItems()
	for i := 0; i < BucketArraySize; i++ {
		bucket.RemoveAt(i)
	}
	newDepthMask := dir.GlobalDepthMask()
	for _, it := range items {
		target := hashKey(it.Key) & newDepthMask
		if dir.GetBucketPageID(target) == newBucketID {
			newBucket.Insert(it.Key, it.Value)
		} else {
			bucket.Insert(it.Key, it.Value)
		}
	}

	t.pool.UnpinPage(newBucketID, true)
	t.metrics.recordSplit()
	t.logger.Info("hash: bucket split", zap.Int64("old_bucket", int64(bucketID)), zap.Int64("new_bucket", int64(newBucketID)), zap.Uint32("global_depth", dir.GlobalDepth()))
	return true
}

// Remove deletes (key, value) and merges the bucket if it becomes empty.
func (t *Table) Remove(ctx context.Context, key Key, value Value) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	dirPage, err := t.pool.FetchPage(ctx, t.directory)
	if err != nil {
		return false
	}
	dirPage.RLock()
	dir := NewDirectoryPage(dirPage)
	idx := t.indexOf(dir, key)
	bucketID := dir.GetBucketPageID(idx)
	dirPage.RUnlock()

	bucketPage, err := t.pool.FetchPage(ctx, bucketID)
	if err != nil {
		t.pool.UnpinPage(t.directory, false)
		return false
	}
	bucket := NewBucketPage(bucketPage)
	bucketPage.Lock()
	ok := bucket.Remove(key, value)
	empty := bucket.IsEmpty()
	bucketPage.Unlock()
	t.pool.UnpinPage(bucketID, ok)

	if ok && empty {
		t.merge(ctx, dir, idx, bucketID)
		t.pool.UnpinPage(t.directory, true)
	} else {
		t.pool.UnpinPage(t.directory, false)
	}
	if ok {
		t.metrics.recordRemove()
	}
	return ok
}

// merge implements §4.6's Merge algorithm; caller holds the table latch and
// the directory page pinned.
func (t *Table) merge(ctx context.Context, dir *DirectoryPage, idx uint32, bucketID page.ID) {
	dir.p.Lock()
	defer dir.p.Unlock()

	localDepth := uint32(dir.GetLocalDepth(idx))
	if localDepth == 0 {
		return
	}
	splitImage := dir.GetSplitImageIndex(idx)
	if dir.GetBucketPageID(splitImage) == bucketID {
		return
	}
	if uint32(dir.GetLocalDepth(splitImage)) != localDepth {
		return
	}

	survivor := dir.GetBucketPageID(splitImage)
	size := dir.Size()
	mask := (uint32(1) << (localDepth - 1)) - 1
	target := idx & mask
	for j := uint32(0); j < size; j++ {
		if j&mask == target {
			dir.SetBucketPageID(j, survivor)
			dir.DecrLocalDepth(j)
		}
	}

	t.pool.DeletePage(bucketID)
	t.metrics.recordMerge()
	t.logger.Info("hash: bucket merged", zap.Int64("removed_bucket", int64(bucketID)), zap.Int64("survivor_bucket", int64(survivor)))

	for dir.CanShrink() {
		dir.DecrGlobalDepth()
	}
}

// VerifyIntegrity checks the directory's structural invariants.
func (t *Table) VerifyIntegrity(ctx context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	dirPage, err := t.pool.FetchPage(ctx, t.directory)
	if err != nil {
		return fmt.Errorf("hash: fetch directory: %w", err)
	}
	defer t.pool.UnpinPage(t.directory, false)
	return NewDirectoryPage(dirPage).VerifyIntegrity()
}

// GlobalDepth returns the directory's current global depth.
func (t *Table) GlobalDepth(ctx context.Context) (uint32, error) {
	dirPage, err := t.pool.FetchPage(ctx, t.directory)
	if err != nil {
		return 0, errs.ErrPageNotFound
	}
	defer t.pool.UnpinPage(t.directory, false)
	return NewDirectoryPage(dirPage).GlobalDepth(), nil
}
