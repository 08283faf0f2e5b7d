// Package disk provides the concrete, file-backed adapter the buffer pool
// reads and writes pages through. The buffer pool and everything above it
// treats this as an external collaborator reachable only through the
// Manager interface; DiskManager is the one implementation this repo ships.
package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gojodb/storagecore/core/storage/errs"
	"github.com/gojodb/storagecore/core/storage/page"
)

// Manager is the disk-facing contract the buffer pool depends on. It is
// intentionally narrow: no caching, no pinning, no page interpretation.
type Manager interface {
	ReadPage(id page.ID, dst []byte) error
	WritePage(id page.ID, src []byte) error
	AllocatePage() page.ID
	DeallocatePage(id page.ID) error
	ShutDown() error
}

// DiskManager backs a single flat file where page id N lives at byte offset
// N*page.Size. It has no free-space tracking of its own: deallocated page
// ids are simply never reused within this process's lifetime, mirroring the
// monotonically increasing allocation counter of the systems this design is
// drawn from.
type DiskManager struct {
	mu       sync.Mutex
	file     *os.File
	nextPage int64 // atomic
}

// Open opens (creating if necessary) the backing file at path and resumes
// page-id allocation from wherever the file's current size implies, so a
// reopened database does not hand out page ids that collide with pages
// already on disk.
func Open(path string) (*DiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}
	dm := &DiskManager{file: f}
	dm.nextPage = info.Size() / page.Size
	return dm, nil
}

// ReadPage fills dst (which must be page.Size bytes) with the on-disk
// contents of id. Reading a page beyond the current end of file yields a
// zeroed buffer, matching the semantics of a page that was allocated but
// never written.
func (dm *DiskManager) ReadPage(id page.ID, dst []byte) error {
	if id < 0 {
		return fmt.Errorf("disk: %w: %d", errs.ErrInvalidPageData, id)
	}
	if len(dst) != page.Size {
		return fmt.Errorf("disk: %w: buffer size %d != %d", errs.ErrInvalidPageData, len(dst), page.Size)
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	n, err := dm.file.ReadAt(dst, int64(id)*page.Size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			for i := n; i < len(dst); i++ {
				dst[i] = 0
			}
			return nil
		}
		return fmt.Errorf("disk: read page %d: %w: %v", id, errs.ErrIO, err)
	}
	return nil
}

// WritePage persists src (page.Size bytes) at id's offset.
func (dm *DiskManager) WritePage(id page.ID, src []byte) error {
	if id < 0 {
		return fmt.Errorf("disk: %w: %d", errs.ErrInvalidPageData, id)
	}
	if len(src) != page.Size {
		return fmt.Errorf("disk: %w: buffer size %d != %d", errs.ErrInvalidPageData, len(src), page.Size)
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if _, err := dm.file.WriteAt(src, int64(id)*page.Size); err != nil {
		return fmt.Errorf("disk: write page %d: %w: %v", id, errs.ErrIO, err)
	}
	return dm.file.Sync()
}

// AllocatePage hands out the next page id in this manager's sequence.
func (dm *DiskManager) AllocatePage() page.ID {
	return page.ID(atomic.AddInt64(&dm.nextPage, 1) - 1)
}

// DeallocatePage is a no-op placeholder for freeing on-disk space; the
// storage core is not required to reclaim space on delete (Non-goal).
func (dm *DiskManager) DeallocatePage(id page.ID) error {
	return nil
}

// ShutDown flushes and closes the backing file.
func (dm *DiskManager) ShutDown() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.file.Sync(); err != nil {
		return fmt.Errorf("disk: sync on shutdown: %w", err)
	}
	return dm.file.Close()
}
