// Package page defines the in-memory representation of a fixed-size disk
// page and the identifiers used to address pages and rows throughout the
// storage core.
package page

import "sync"

// ID identifies a page within a single-file disk image.
type ID int64

// InvalidID marks an unallocated or sentinel page.
const InvalidID ID = -1

// Size is the fixed byte size of every page managed by the buffer pool.
// It is chosen, not discovered: the hash index's bucket slot count is
// derived from this value, while its directory capacity is the fixed
// DirectoryArraySize, which fits within it.
const Size = 4096

// LSN is a log sequence number assigned by the log handle on append.
type LSN uint64

// InvalidLSN marks a page that has never been touched by a logged write.
const InvalidLSN LSN = 0

// RID identifies a row within a table heap by the page it lives on and its
// slot within that page. The lock manager keys its lock table on RID; the
// storage core otherwise never interprets its fields.
type RID struct {
	PageID ID
	Slot   uint32
}

// Page is a pinned, in-memory copy of one on-disk page plus the bookkeeping
// the buffer pool needs to manage it: pin count, dirty flag, and a
// reader/writer latch guarding concurrent access to its bytes independent of
// the buffer pool's own frame-table mutex.
type Page struct {
	id       ID
	data     []byte
	pinCount uint32
	isDirty  bool
	lsn      LSN

	latch sync.RWMutex
}

// New allocates a zeroed page buffer for the given id.
func New(id ID) *Page {
	return &Page{
		id:   id,
		data: make([]byte, Size),
		lsn:  InvalidLSN,
	}
}

// Reset clears a page's identity and contents so its frame can be reused for
// a different page_id without leaking the previous occupant's bytes.
func (p *Page) Reset() {
	p.id = InvalidID
	p.pinCount = 0
	p.isDirty = false
	p.lsn = InvalidLSN
	for i := range p.data {
		p.data[i] = 0
	}
}

func (p *Page) ID() ID              { return p.id }
func (p *Page) SetID(id ID)         { p.id = id }
func (p *Page) Data() []byte        { return p.data }
func (p *Page) IsDirty() bool       { return p.isDirty }
func (p *Page) SetDirty(dirty bool) { p.isDirty = dirty }
func (p *Page) LSN() LSN            { return p.lsn }
func (p *Page) SetLSN(lsn LSN)      { p.lsn = lsn }
func (p *Page) PinCount() uint32    { return p.pinCount }

// CopyFrom overwrites the page's bytes, truncating or zero-padding src to Size.
func (p *Page) CopyFrom(src []byte) {
	n := copy(p.data, src)
	for i := n; i < len(p.data); i++ {
		p.data[i] = 0
	}
}

func (p *Page) Pin() { p.pinCount++ }

// Unpin decrements the pin count and reports whether it reached zero.
func (p *Page) Unpin() (reachedZero bool) {
	if p.pinCount == 0 {
		return true
	}
	p.pinCount--
	return p.pinCount == 0
}

// RLock/RUnlock/Lock/Unlock/TryLock guard the page's byte contents for
// concurrent readers and writers once the page is pinned. The buffer pool's
// own mutex protects the frame table (which page_id occupies which frame);
// this latch is a separate, finer-grained lock over the bytes themselves.
func (p *Page) RLock()        { p.latch.RLock() }
func (p *Page) RUnlock()      { p.latch.RUnlock() }
func (p *Page) Lock()         { p.latch.Lock() }
func (p *Page) Unlock()       { p.latch.Unlock() }
func (p *Page) TryLock() bool { return p.latch.TryLock() }
