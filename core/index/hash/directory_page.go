// Package hash implements a persistent extendible hash index: a directory
// page mapping hashed keys to bucket pages, and bucket pages holding the
// actual key/value entries. Both page types are laid out as fixed byte
// arrays so they can be pinned through the buffer pool like any other page.
package hash

import (
	"encoding/binary"

	"github.com/gojodb/storagecore/core/storage/page"
)

// DirectoryArraySize is the maximum number of directory slots, capping
// global depth at 9 (2^9 = 512).
const DirectoryArraySize = 512

const (
	dirOffsetPageID      = 0
	dirOffsetGlobalDepth = 4
	dirOffsetBucketIDs   = 8
	dirOffsetLocalDepths = dirOffsetBucketIDs + 4*DirectoryArraySize
)

// DirectoryPage is a view over a pinned page's bytes implementing the
// extendible hash directory layout.
type DirectoryPage struct {
	p *page.Page
}

// NewDirectoryPage wraps p as a directory page view. Callers must Init a
// freshly allocated page before use.
func NewDirectoryPage(p *page.Page) *DirectoryPage {
	return &DirectoryPage{p: p}
}

// Init records the directory's own page id and resets the directory to
// global_depth=0 with slot 0 pointing at bucket.
func (d *DirectoryPage) Init(bucket page.ID) {
	binary.LittleEndian.PutUint32(d.p.Data()[dirOffsetPageID:], uint32(int32(d.p.ID())))
	d.SetGlobalDepth(0)
	for i := 0; i < DirectoryArraySize; i++ {
		d.setBucketPageIDRaw(i, page.InvalidID)
		d.setLocalDepthRaw(i, 0)
	}
	d.SetBucketPageID(0, bucket)
	d.SetLocalDepth(0, 0)
}

func (d *DirectoryPage) GlobalDepth() uint32 {
	return binary.LittleEndian.Uint32(d.p.Data()[dirOffsetGlobalDepth:])
}

func (d *DirectoryPage) SetGlobalDepth(depth uint32) {
	binary.LittleEndian.PutUint32(d.p.Data()[dirOffsetGlobalDepth:], depth)
}

// GlobalDepthMask returns (1<<global_depth)-1.
func (d *DirectoryPage) GlobalDepthMask() uint32 {
	return (uint32(1) << d.GlobalDepth()) - 1
}

// Size returns 2^global_depth, the number of logically valid directory slots.
func (d *DirectoryPage) Size() uint32 {
	return uint32(1) << d.GlobalDepth()
}

func (d *DirectoryPage) bucketOffset(i int) int {
	return dirOffsetBucketIDs + 4*i
}

func (d *DirectoryPage) GetBucketPageID(i uint32) page.ID {
	raw := binary.LittleEndian.Uint32(d.p.Data()[d.bucketOffset(int(i)):])
	return page.ID(int32(raw))
}

func (d *DirectoryPage) setBucketPageIDRaw(i int, id page.ID) {
	binary.LittleEndian.PutUint32(d.p.Data()[d.bucketOffset(i):], uint32(int32(id)))
}

func (d *DirectoryPage) SetBucketPageID(i uint32, id page.ID) {
	d.setBucketPageIDRaw(int(i), id)
}

func (d *DirectoryPage) GetLocalDepth(i uint32) uint8 {
	return d.p.Data()[dirOffsetLocalDepths+int(i)]
}

func (d *DirectoryPage) setLocalDepthRaw(i int, depth uint8) {
	d.p.Data()[dirOffsetLocalDepths+i] = depth
}

func (d *DirectoryPage) SetLocalDepth(i uint32, depth uint8) {
	d.setLocalDepthRaw(int(i), depth)
}

func (d *DirectoryPage) IncrLocalDepth(i uint32) {
	d.SetLocalDepth(i, d.GetLocalDepth(i)+1)
}

func (d *DirectoryPage) DecrLocalDepth(i uint32) {
	d.SetLocalDepth(i, d.GetLocalDepth(i)-1)
}

// GetLocalHighBit returns the low local_depth[i] bits of i.
func (d *DirectoryPage) GetLocalHighBit(i uint32) uint32 {
	ld := d.GetLocalDepth(i)
	if ld == 0 {
		return 0
	}
	return i & ((uint32(1) << ld) - 1)
}

// GetSplitImageIndex returns the directory index that would merge with i if
// local_depth[i] were decremented.
func (d *DirectoryPage) GetSplitImageIndex(i uint32) uint32 {
	ld := d.GetLocalDepth(i)
	return i ^ (uint32(1) << (ld - 1))
}

// IncrGlobalDepth doubles the directory, duplicating every slot's bucket id
// and local depth into its mirror at index+old_size.
func (d *DirectoryPage) IncrGlobalDepth() {
	oldSize := d.Size()
	depth := d.GlobalDepth()
	for i := uint32(0); i < oldSize; i++ {
		d.SetBucketPageID(i+oldSize, d.GetBucketPageID(i))
		d.SetLocalDepth(i+oldSize, d.GetLocalDepth(i))
	}
	d.SetGlobalDepth(depth + 1)
}

// DecrGlobalDepth halves the directory.
func (d *DirectoryPage) DecrGlobalDepth() {
	d.SetGlobalDepth(d.GlobalDepth() - 1)
}

// CanShrink reports whether every occupied slot's local depth is strictly
// less than the global depth, meaning global depth can be decremented
// without losing any distinct bucket mapping.
func (d *DirectoryPage) CanShrink() bool {
	depth := d.GlobalDepth()
	if depth == 0 {
		return false
	}
	size := d.Size()
	for i := uint32(0); i < size; i++ {
		if uint32(d.GetLocalDepth(i)) >= depth {
			return false
		}
	}
	return true
}

// VerifyIntegrity checks the invariant that any two indices sharing the low
// min(local_depth) bits map to the same bucket, and that no local depth
// exceeds the global depth. Returns the first violation found, or nil.
func (d *DirectoryPage) VerifyIntegrity() error {
	size := d.Size()
	depth := d.GlobalDepth()
	for i := uint32(0); i < size; i++ {
		ld := uint32(d.GetLocalDepth(i))
		if ld > depth {
			return errLocalDepthExceedsGlobal(i, ld, depth)
		}
		for j := i + 1; j < size; j++ {
			mask := (uint32(1) << min(ld, uint32(d.GetLocalDepth(j)))) - 1
			if j&mask == i&mask {
				if d.GetBucketPageID(i) != d.GetBucketPageID(j) {
					return errInconsistentBucketMapping(i, j)
				}
			}
		}
	}
	return nil
}
