package hash

import (
	"encoding/binary"

	"github.com/gojodb/storagecore/core/storage/page"
)

// Key and Value are the types this hash table is built for. The layouts and
// algorithms below are general, but the on-page byte encoding is fixed at
// 8 bytes each (int64), matching the integer-keyed workloads this index is
// exercised against.
type Key = int64
type Value = int64

const pairSize = 16 // 8 bytes key + 8 bytes value

// BucketArraySize is the number of (key, value) slots a bucket page can
// hold, derived so that two 1-bit-per-slot bitmaps (occupied, readable)
// plus the slot array fit within one page: solve N for
// 2*ceil(N/8) + pairSize*N <= page.Size.
const BucketArraySize = (page.Size * 8) / (8*pairSize + 2)

var bitmapBytes = (BucketArraySize + 7) / 8

var (
	bucketOffsetOccupied = 0
	bucketOffsetReadable = bucketOffsetOccupied + bitmapBytes
	bucketOffsetPairs    = bucketOffsetReadable + bitmapBytes
)

// BucketPage is a view over a pinned page's bytes implementing the bucket
// layout: occupied bitmap, readable bitmap, then a fixed slot array.
type BucketPage struct {
	p *page.Page
}

func NewBucketPage(p *page.Page) *BucketPage {
	return &BucketPage{p: p}
}

// Init zeroes a freshly allocated bucket page.
func (b *BucketPage) Init() {
	data := b.p.Data()
	for i := bucketOffsetOccupied; i < bucketOffsetPairs+BucketArraySize*pairSize; i++ {
		data[i] = 0
	}
}

func (b *BucketPage) IsOccupied(i int) bool {
	return b.bitSet(bucketOffsetOccupied, i)
}

func (b *BucketPage) IsReadable(i int) bool {
	return b.bitSet(bucketOffsetReadable, i)
}

func (b *BucketPage) SetOccupied(i int, v bool) { b.setBit(bucketOffsetOccupied, i, v) }
func (b *BucketPage) SetReadable(i int, v bool) { b.setBit(bucketOffsetReadable, i, v) }

func (b *BucketPage) bitSet(base, i int) bool {
	byteIdx := base + i/8
	bit := uint(i % 8)
	return b.p.Data()[byteIdx]&(1<<bit) != 0
}

func (b *BucketPage) setBit(base, i int, v bool) {
	byteIdx := base + i/8
	bit := uint(i % 8)
	if v {
		b.p.Data()[byteIdx] |= 1 << bit
	} else {
		b.p.Data()[byteIdx] &^= 1 << bit
	}
}

func (b *BucketPage) slotOffset(i int) int {
	return bucketOffsetPairs + i*pairSize
}

func (b *BucketPage) KeyAt(i int) Key {
	off := b.slotOffset(i)
	return int64(binary.LittleEndian.Uint64(b.p.Data()[off:]))
}

func (b *BucketPage) ValueAt(i int) Value {
	off := b.slotOffset(i) + 8
	return int64(binary.LittleEndian.Uint64(b.p.Data()[off:]))
}

func (b *BucketPage) setSlot(i int, key Key, value Value) {
	off := b.slotOffset(i)
	binary.LittleEndian.PutUint64(b.p.Data()[off:], uint64(key))
	binary.LittleEndian.PutUint64(b.p.Data()[off+8:], uint64(value))
}

// GetValue appends every readable value whose key equals key.
func (b *BucketPage) GetValue(key Key) []Value {
	var out []Value
	for i := 0; i < BucketArraySize; i++ {
		if b.IsReadable(i) && b.KeyAt(i) == key {
			out = append(out, b.ValueAt(i))
		}
	}
	return out
}

// Insert places (key, value) in the first non-readable slot, reusing a
// tombstoned slot (occupied but not readable) left by a prior Remove.
// Returns false if the exact pair already exists (readable) or every slot
// is readable.
func (b *BucketPage) Insert(key Key, value Value) bool {
	firstFree := -1
	for i := 0; i < BucketArraySize; i++ {
		if b.IsReadable(i) {
			if b.KeyAt(i) == key && b.ValueAt(i) == value {
				return false
			}
			continue
		}
		if firstFree == -1 {
			firstFree = i
		}
	}
	if firstFree == -1 {
		return false
	}
	b.setSlot(firstFree, key, value)
	b.SetOccupied(firstFree, true)
	b.SetReadable(firstFree, true)
	return true
}

// Remove clears the readable flag of the first slot matching (key, value).
// The slot remains occupied (a tombstone) so linear probing elsewhere in the
// bucket need not be disturbed.
func (b *BucketPage) Remove(key Key, value Value) bool {
	for i := 0; i < BucketArraySize; i++ {
		if b.IsReadable(i) && b.KeyAt(i) == key && b.ValueAt(i) == value {
			b.SetReadable(i, false)
			return true
		}
	}
	return false
}

func (b *BucketPage) RemoveAt(i int) {
	b.SetReadable(i, false)
}

// IsFull reports whether every slot is readable.
func (b *BucketPage) IsFull() bool {
	for i := 0; i < BucketArraySize; i++ {
		if !b.IsReadable(i) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no slot is readable.
func (b *BucketPage) IsEmpty() bool {
	return b.NumReadable() == 0
}

func (b *BucketPage) NumReadable() int {
	n := 0
	for i := 0; i < BucketArraySize; i++ {
		if b.IsReadable(i) {
			n++
		}
	}
	return n
}

// Pair is a snapshot of one readable bucket entry.
type Pair struct {
	Key   Key
	Value Value
}

// GetAllItems returns every readable (key, value) pair in slot order.
func (b *BucketPage) GetAllItems() []Pair {
	items := make([]Pair, 0, b.NumReadable())
	for i := 0; i < BucketArraySize; i++ {
		if b.IsReadable(i) {
			items = append(items, Pair{Key: b.KeyAt(i), Value: b.ValueAt(i)})
		}
	}
	return items
}
