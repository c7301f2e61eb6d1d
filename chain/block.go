package chain

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/ropekit/ropekit/internal/refs"
	"github.com/ropekit/ropekit/pkg/memsize"
)

var blockHeaderSize = int(unsafe.Sizeof(block{}))

// block is a reference-counted run of bytes. An internal block owns its
// allocation and keeps the used region buf[lo:hi], leaving free space on
// both ends so it can grow in either direction. An external block wraps
// memory owned elsewhere: view is a stable window into the owner's bytes
// and buf is nil.
//
// The reference count tracks owners (chains, pinned handles, substring
// views). It gates mutability, not deallocation: a block may be grown,
// shrunk or cleared in place only while it has a unique owner. Dropping
// the last reference releases the owner of an external block.
type block struct {
	rc     refs.Count
	buf    []byte
	lo, hi int
	view   []byte
	owner  ByteOwner
}

func newInternal(capacity int) *block {
	if capacity <= 0 {
		panic("chain: newInternal: capacity out of range")
	}
	return &block{buf: make([]byte, capacity)}
}

func newExternal(owner ByteOwner, view []byte) *block {
	return &block{view: view, owner: owner}
}

func (b *block) Ref() { b.rc.Ref() }

// Unref drops one reference and reports whether it was the last. The last
// owner of an external block releases the foreign memory.
func (b *block) Unref() bool {
	if !b.rc.Unref() {
		return false
	}
	if r, ok := b.owner.(Releaser); ok {
		r.Release()
	}
	return true
}

func (b *block) HasUniqueOwner() bool { return b.rc.HasUniqueOwner() }

func (b *block) isInternal() bool { return b.buf != nil }
func (b *block) isExternal() bool { return b.buf == nil }

func (b *block) size() int {
	if b.isInternal() {
		return b.hi - b.lo
	}
	return len(b.view)
}

func (b *block) empty() bool { return b.size() == 0 }

func (b *block) bytes() []byte {
	if b.isInternal() {
		return b.buf[b.lo:b.hi]
	}
	return b.view
}

func (b *block) capacity() int {
	if !b.isInternal() {
		panic("chain: capacity of an external block")
	}
	return len(b.buf)
}

// An empty internal block can place its data anywhere in the allocation,
// so both ends count the whole capacity as free.
func (b *block) spaceBefore() int {
	if b.empty() {
		return len(b.buf)
	}
	return b.lo
}

func (b *block) spaceAfter() int {
	if b.empty() {
		return len(b.buf)
	}
	return len(b.buf) - b.hi
}

func (b *block) rawSpaceBefore() int { return b.lo }
func (b *block) rawSpaceAfter() int  { return len(b.buf) - b.hi }

func (b *block) canAppend(n int) bool {
	return b.isInternal() && b.HasUniqueOwner() && b.spaceAfter() >= n
}

func (b *block) canPrepend(n int) bool {
	return b.isInternal() && b.HasUniqueOwner() && b.spaceBefore() >= n
}

// canAppendMovingData reports whether n bytes fit at the back if the data
// is first slid toward the front of the allocation. Sliding is worthwhile
// only while the block is at most half full. On failure spaceBeforeIfNot
// reports the free space at the front, for the caller's decision whether a
// replacement block must also absorb this block's data.
func (b *block) canAppendMovingData(n int) (ok bool, spaceBeforeIfNot int) {
	if !b.isInternal() || !b.HasUniqueOwner() {
		return false, 0
	}
	if b.spaceAfter() >= n {
		return true, 0
	}
	if b.size()*2 <= len(b.buf) && b.lo+b.rawSpaceAfter() >= n {
		copy(b.buf, b.buf[b.lo:b.hi])
		b.hi -= b.lo
		b.lo = 0
		return true, 0
	}
	return false, b.spaceBefore()
}

func (b *block) canPrependMovingData(n int) (ok bool, spaceAfterIfNot int) {
	if !b.isInternal() || !b.HasUniqueOwner() {
		return false, 0
	}
	if b.spaceBefore() >= n {
		return true, 0
	}
	if b.size()*2 <= len(b.buf) && b.rawSpaceBefore()+b.rawSpaceAfter() >= n {
		newLo := len(b.buf) - b.size()
		copy(b.buf[newLo:], b.buf[b.lo:b.hi])
		b.lo = newLo
		b.hi = len(b.buf)
		return true, 0
	}
	return false, b.spaceAfter()
}

// appendBuffer claims up to maxLength bytes of free space at the back and
// returns it for the caller to fill. The claimed bytes become part of the
// block's data immediately.
func (b *block) appendBuffer(maxLength int) []byte {
	if !b.canAppend(0) {
		panic("chain: appendBuffer on a block that cannot append")
	}
	if b.empty() {
		b.lo, b.hi = 0, 0
	}
	n := min(b.rawSpaceAfter(), maxLength)
	span := b.buf[b.hi : b.hi+n]
	b.hi += n
	return span
}

func (b *block) prependBuffer(maxLength int) []byte {
	if !b.canPrepend(0) {
		panic("chain: prependBuffer on a block that cannot prepend")
	}
	if b.empty() {
		b.lo, b.hi = len(b.buf), len(b.buf)
	}
	n := min(b.rawSpaceBefore(), maxLength)
	span := b.buf[b.lo-n : b.lo]
	b.lo -= n
	return span
}

// append copies src to the back. When the block is empty the data is
// placed spaceBefore bytes from the start of the allocation.
func (b *block) append(src []byte, spaceBefore int) {
	if b.empty() {
		if spaceBefore+len(src) > len(b.buf) {
			panic("chain: append does not fit in the block")
		}
		b.lo, b.hi = spaceBefore, spaceBefore
	} else if b.rawSpaceAfter() < len(src) {
		panic("chain: append does not fit in the block")
	}
	copy(b.buf[b.hi:], src)
	b.hi += len(src)
}

// prepend copies src to the front. When the block is empty the data is
// placed spaceAfter bytes from the end of the allocation.
func (b *block) prepend(src []byte, spaceAfter int) {
	if b.empty() {
		if spaceAfter+len(src) > len(b.buf) {
			panic("chain: prepend does not fit in the block")
		}
		b.lo = len(b.buf) - spaceAfter
		b.hi = b.lo
	} else if b.rawSpaceBefore() < len(src) {
		panic("chain: prepend does not fit in the block")
	}
	copy(b.buf[b.lo-len(src):b.lo], src)
	b.lo -= len(src)
}

// tiny reports whether the block, grown by extra bytes, would still be
// below the merge threshold.
func (b *block) tiny(extra int) bool {
	if b.isInternal() {
		if extra > len(b.buf)-b.size() {
			panic("chain: tiny: extra does not fit in the block")
		}
	} else if extra != 0 {
		panic("chain: tiny: non-zero extra for an external block")
	}
	return b.size()+extra < minBufferSize
}

// wasteful reports whether the block, grown by extra bytes, would waste an
// unreasonable share of its allocation.
func (b *block) wasteful(extra int) bool {
	if !b.isInternal() {
		if extra != 0 {
			panic("chain: wasteful: non-zero extra for an external block")
		}
		return false
	}
	if extra > len(b.buf)-b.size() {
		panic("chain: wasteful: extra does not fit in the block")
	}
	return wastefulAllocation(len(b.buf), b.size()+extra)
}

func wastefulAllocation(capacity, size int) bool {
	return capacity-size > max(size, minBufferSize)
}

// copyBlock returns a right-sized internal copy of the block's data. The
// source's reference count is left to the caller.
func (b *block) copyBlock() *block {
	if b.empty() {
		panic("chain: copyBlock of an empty block")
	}
	out := newInternal(b.size())
	out.append(b.bytes(), 0)
	return out
}

// tryClear empties the block in place when its allocation can be reused.
func (b *block) tryClear() bool {
	if !b.isInternal() || !b.HasUniqueOwner() {
		return false
	}
	b.lo, b.hi = 0, 0
	return true
}

func (b *block) tryRemoveSuffix(n int) bool {
	if n > b.size() {
		panic("chain: tryRemoveSuffix: length to remove greater than block size")
	}
	if !b.HasUniqueOwner() {
		return false
	}
	if b.isInternal() {
		b.hi -= n
	} else {
		b.view = b.view[:len(b.view)-n]
		// A substring view records its window in the owner too; keep it
		// in step or a later collapse re-bases at the stale offset.
		if o, ok := b.owner.(*blockOwner); ok {
			o.len -= n
		}
	}
	return true
}

func (b *block) tryRemovePrefix(n int) bool {
	if n > b.size() {
		panic("chain: tryRemovePrefix: length to remove greater than block size")
	}
	if !b.HasUniqueOwner() {
		return false
	}
	if b.isInternal() {
		b.lo += n
	} else {
		b.view = b.view[n:]
		if o, ok := b.owner.(*blockOwner); ok {
			o.off += n
			o.len -= n
		}
	}
	return true
}

// registerShared adds the block's footprint to the estimate, once per
// block identity no matter how many chains share it.
func (b *block) registerShared(est *memsize.Estimator) {
	if !est.RegisterNode(b) {
		return
	}
	est.RegisterMemory(blockHeaderSize)
	if b.isInternal() {
		est.RegisterMemory(len(b.buf))
		return
	}
	if r, ok := b.owner.(SubobjectRegisterer); ok {
		r.RegisterSubobjects(est)
	} else {
		est.RegisterMemory(len(b.view))
	}
}

func (b *block) dumpTo(w io.Writer) {
	if b.isInternal() {
		fmt.Fprintf(w, "block { refs: %d size: %d space_before: %d space_after: %d }",
			b.rc.Get(), b.size(), b.rawSpaceBefore(), b.rawSpaceAfter())
		return
	}
	fmt.Fprintf(w, "block { refs: %d size: %d external: ", b.rc.Get(), b.size())
	if d, ok := b.owner.(StructureDumper); ok {
		d.DumpStructure(w)
	} else {
		fmt.Fprintf(w, "%T", b.owner)
	}
	fmt.Fprint(w, " }")
}
