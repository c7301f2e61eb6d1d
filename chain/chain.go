package chain

import (
	"math"

	"github.com/ropekit/ropekit/internal/buf"
)

// Chain is a sequence of bytes stored as an ordered list of
// reference-counted blocks. Appending and prepending are amortized O(1)
// and avoid copying existing data. Chains share blocks with each other on
// copy and concatenation; a shared block is never mutated, so sharing is
// invisible through the byte-level API.
//
// Sequences at most maxShortDataSize long are stored inline with no block
// allocation.
//
// The zero value is an empty chain, ready to use. A Chain is not safe for
// concurrent mutation; concurrent reads, including reads of chains sharing
// blocks with a chain being mutated elsewhere, are safe.
type Chain struct {
	size   int
	short  [maxShortDataSize]byte
	blocks blockPtrs
}

// FromBytes returns a chain holding a copy of data.
func FromBytes(data []byte, opts ...Options) *Chain {
	c := &Chain{}
	c.Append(data, opts...)
	return c
}

// FromOwned returns a chain that adopts data without copying when that is
// economical. The caller must not use data afterwards.
func FromOwned(data []byte, opts ...Options) *Chain {
	c := &Chain{}
	c.AppendOwned(data, opts...)
	return c
}

// Clone returns a chain with the same contents, sharing all blocks.
func (c *Chain) Clone() *Chain {
	out := &Chain{size: c.size}
	if c.blocks.length() == 0 {
		copy(out.short[:], c.shortData())
		return out
	}
	out.blocks.appendBlocks(c.blocks.live(), true)
	return out
}

// Size returns the number of bytes in the chain.
func (c *Chain) Size() int { return c.size }

// Empty reports whether the chain has no bytes.
func (c *Chain) Empty() bool { return c.size == 0 }

// shortData is valid only while the chain has no blocks.
func (c *Chain) shortData() []byte { return c.short[:c.size] }

func (c *Chain) blockCount() int {
	if c.blocks.length() == 0 {
		if c.size > 0 {
			return 1
		}
		return 0
	}
	return c.blocks.length()
}

// Clear removes all bytes. The first block's allocation is reused when
// nothing else owns it.
func (c *Chain) Clear() {
	c.size = 0
	if c.blocks.length() == 0 {
		return
	}
	keep := 0
	if c.blocks.front().tryClear() {
		keep = 1
	}
	for i := keep; i < c.blocks.length(); i++ {
		c.blocks.at(i).Unref()
	}
	c.blocks.truncate(keep)
}

// CopyTo copies the chain's bytes into dst, which must hold Size() bytes.
func (c *Chain) CopyTo(dst []byte) {
	if len(dst) < c.size {
		panic("chain: CopyTo: destination shorter than chain size")
	}
	if c.blocks.length() == 0 {
		copy(dst, c.shortData())
		return
	}
	off := 0
	for _, b := range c.blocks.live() {
		off += copy(dst[off:], b.bytes())
	}
}

// ToBytes returns a copy of the chain's bytes.
func (c *Chain) ToBytes() []byte {
	out := make([]byte, c.size)
	c.CopyTo(out)
	return out
}

// IntoBytes returns the chain's bytes, stealing the underlying buffer when
// the chain consists of a single uniquely-owned adopted buffer, and
// copying otherwise. The chain is left empty.
func (c *Chain) IntoBytes() []byte {
	if c.blocks.length() == 1 {
		b := c.blocks.front()
		if o, ok := b.owner.(*bytesOwner); ok && b.HasUniqueOwner() && len(b.view) == len(o.data) {
			data := o.data
			o.data = nil
			b.Unref()
			c.blocks.truncate(0)
			c.size = 0
			return data
		}
	}
	out := c.ToBytes()
	c.Clear()
	return out
}

// String returns the chain's bytes as a string.
func (c *Chain) String() string { return string(c.ToBytes()) }

// Flatten consolidates the chain into a single block and returns a view of
// its bytes, valid until the next mutation.
func (c *Chain) Flatten() []byte {
	switch c.blocks.length() {
	case 0:
		return c.shortData()
	case 1:
		return c.blocks.front().bytes()
	}
	flat := newInternal(max(c.size, 1))
	for _, b := range c.blocks.live() {
		flat.append(b.bytes(), 0)
		b.Unref()
	}
	c.blocks.truncate(0)
	c.blocks.pushBack(flat)
	return flat.bytes()
}

// AppendBuffer makes room for at least minLength and at most maxLength
// bytes at the back and returns the span for the caller to fill. The span
// is part of the chain immediately; use RemoveSuffix to return unused
// bytes. recommendedLength suggests a larger span when growing is cheap.
func (c *Chain) AppendBuffer(minLength, recommendedLength, maxLength int, opts ...Options) []byte {
	if minLength > maxLength {
		panic("chain: AppendBuffer: minLength greater than maxLength")
	}
	return c.appendBuffer(minLength, recommendedLength, maxLength, pickOptions(opts))
}

func (c *Chain) appendBuffer(minLength, recommendedLength, maxLength int, o Options) []byte {
	if _, ok := buf.AddOverflowSafe(c.size, minLength); !ok {
		panic("chain: AppendBuffer: chain size overflow")
	}
	var target *block
	if c.blocks.length() == 0 {
		if minLength <= maxShortDataSize-c.size {
			// Grow the short data unless the caller anticipates more than
			// fits there, in which case the copy into a block would be
			// wasted work.
			if recommendedLength <= maxShortDataSize-c.size && o.SizeHint <= maxShortDataSize {
				n := min(maxLength, maxShortDataSize-c.size)
				span := c.short[c.size : c.size+n]
				c.size += n
				return span
			}
			if minLength == 0 {
				return nil
			}
		}
		if minLength > maxBlockCapacity-c.size {
			moved := newInternal(maxShortDataSize)
			moved.append(c.shortData(), 0)
			c.blocks.pushBack(moved)
			target = newInternal(c.newBlockCapacity(0, minLength, recommendedLength, o))
		} else {
			target = newInternal(c.newBlockCapacity(
				c.size, max(minLength, maxShortDataSize-c.size), recommendedLength, o))
			target.append(c.shortData(), 0)
		}
		c.blocks.pushBack(target)
	} else {
		last := c.blocks.back()
		switch {
		case last.canAppend(minLength):
			target = last
		case minLength == 0:
			return nil
		case last.tiny(0) && minLength <= maxBlockCapacity-last.size():
			// Merge the tiny last block into a larger replacement.
			target = newInternal(c.newBlockCapacity(last.size(), minLength, recommendedLength, o))
			target.append(last.bytes(), 0)
			last.Unref()
			c.blocks.setBack(target)
		default:
			if last.wasteful(0) {
				// Shrink the last block to its data; reuse its allocation
				// for the new buffer when nothing else owns it.
				c.blocks.setBack(last.copyBlock())
				if last.tryClear() && last.canAppend(minLength) {
					target = last
				} else {
					last.Unref()
				}
			}
			if target == nil {
				target = newInternal(c.newBlockCapacity(0, minLength, recommendedLength, o))
			}
			c.blocks.pushBack(target)
		}
	}
	span := target.appendBuffer(min(maxLength, math.MaxInt-c.size))
	if len(span) < minLength {
		panic("chain: AppendBuffer: block has less space than promised")
	}
	c.size += len(span)
	return span
}

// PrependBuffer makes room for at least minLength and at most maxLength
// bytes at the front and returns the span for the caller to fill. The span
// is part of the chain immediately; use RemovePrefix to return unused
// bytes.
func (c *Chain) PrependBuffer(minLength, recommendedLength, maxLength int, opts ...Options) []byte {
	if minLength > maxLength {
		panic("chain: PrependBuffer: minLength greater than maxLength")
	}
	return c.prependBuffer(minLength, recommendedLength, maxLength, pickOptions(opts))
}

func (c *Chain) prependBuffer(minLength, recommendedLength, maxLength int, o Options) []byte {
	if _, ok := buf.AddOverflowSafe(c.size, minLength); !ok {
		panic("chain: PrependBuffer: chain size overflow")
	}
	var target *block
	if c.blocks.length() == 0 {
		if minLength <= maxShortDataSize-c.size {
			if recommendedLength <= maxShortDataSize-c.size && o.SizeHint <= maxShortDataSize {
				n := min(maxLength, maxShortDataSize-c.size)
				copy(c.short[n:n+c.size], c.shortData())
				c.size += n
				return c.short[:n]
			}
			if minLength == 0 {
				return nil
			}
		}
		if minLength > maxBlockCapacity-c.size {
			moved := newInternal(maxShortDataSize)
			moved.prepend(c.shortData(), 0)
			c.blocks.pushFront(moved)
			target = newInternal(c.newBlockCapacity(0, minLength, recommendedLength, o))
		} else {
			target = newInternal(c.newBlockCapacity(
				c.size, max(minLength, maxShortDataSize-c.size), recommendedLength, o))
			target.prepend(c.shortData(), 0)
		}
		c.blocks.pushFront(target)
	} else {
		first := c.blocks.front()
		switch {
		case first.canPrepend(minLength):
			target = first
		case minLength == 0:
			return nil
		case first.tiny(0) && minLength <= maxBlockCapacity-first.size():
			target = newInternal(c.newBlockCapacity(first.size(), minLength, recommendedLength, o))
			target.prepend(first.bytes(), 0)
			first.Unref()
			c.blocks.setFront(target)
		default:
			if first.wasteful(0) {
				c.blocks.setFrontSameSize(first.copyBlock())
				if first.tryClear() && first.canPrepend(minLength) {
					target = first
				} else {
					first.Unref()
				}
			}
			if target == nil {
				target = newInternal(c.newBlockCapacity(0, minLength, recommendedLength, o))
			}
			c.blocks.pushFront(target)
		}
	}
	span := target.prependBuffer(min(maxLength, math.MaxInt-c.size))
	if len(span) < minLength {
		panic("chain: PrependBuffer: block has less space than promised")
	}
	c.blocks.refreshFront()
	c.size += len(span)
	return span
}

// Append copies src to the back of the chain.
func (c *Chain) Append(src []byte, opts ...Options) {
	if len(src) == 0 {
		return
	}
	span := c.appendBuffer(len(src), 0, len(src), pickOptions(opts))
	copy(span, src)
}

// Prepend copies src to the front of the chain.
func (c *Chain) Prepend(src []byte, opts ...Options) {
	if len(src) == 0 {
		return
	}
	span := c.prependBuffer(len(src), 0, len(src), pickOptions(opts))
	copy(span, src)
}

// AppendOwned appends src, adopting its buffer without copying when src is
// long enough and its spare capacity is not excessive. The caller must not
// use src afterwards.
func (c *Chain) AppendOwned(src []byte, opts ...Options) {
	o := pickOptions(opts)
	if len(src) <= maxBytesToCopy || wastefulAllocation(cap(src), len(src)) {
		c.Append(src, o)
		return
	}
	c.appendBlock(newExternal(&bytesOwner{data: src}, src), true, o)
}

// PrependOwned prepends src, adopting its buffer without copying when that
// is economical. The caller must not use src afterwards.
func (c *Chain) PrependOwned(src []byte, opts ...Options) {
	o := pickOptions(opts)
	if len(src) <= maxBytesToCopy || wastefulAllocation(cap(src), len(src)) {
		c.Prepend(src, o)
		return
	}
	c.prependBlock(newExternal(&bytesOwner{data: src}, src), true, o)
}

// AppendChain appends src's bytes, sharing src's blocks. src is unchanged.
func (c *Chain) AppendChain(src *Chain, opts ...Options) {
	c.appendChain(src, false, pickOptions(opts))
}

// AppendChainMove appends src's bytes, moving src's blocks into c without
// touching their reference counts. src is left empty.
func (c *Chain) AppendChainMove(src *Chain, opts ...Options) {
	c.appendChain(src, true, pickOptions(opts))
}

// PrependChain prepends src's bytes, sharing src's blocks. src is
// unchanged.
func (c *Chain) PrependChain(src *Chain, opts ...Options) {
	c.prependChain(src, false, pickOptions(opts))
}

// PrependChainMove prepends src's bytes, moving src's blocks into c. src
// is left empty.
func (c *Chain) PrependChainMove(src *Chain, opts ...Options) {
	c.prependChain(src, true, pickOptions(opts))
}

// appendChain concatenates src at the back. Boundary blocks are merged
// when one of them is tiny or wasteful, so repeated concatenation of short
// chains does not accumulate fragments.
func (c *Chain) appendChain(src *Chain, steal bool, o Options) {
	if _, ok := buf.AddOverflowSafe(c.size, src.size); !ok {
		panic("chain: AppendChain: chain size overflow")
	}
	if src.blocks.length() == 0 {
		c.Append(src.shortData(), o)
		if steal {
			src.Clear()
		}
		return
	}
	srcBlocks := src.blocks.live()
	n := len(srcBlocks)
	srcFirst := srcBlocks[0]
	// With steal the skipped block's reference is consumed here; with
	// share it was never taken.
	drop := func(b *block) {
		if steal {
			b.Unref()
		}
	}
	skip := 0
	if c.blocks.length() == 0 {
		if srcFirst.tiny(0) || (n > 1 && srcFirst.wasteful(0)) {
			// The boundary block is not worth keeping: merge it with the
			// short data into one block.
			if c.size > 0 || !srcFirst.empty() {
				var capacity int
				if n == 1 {
					capacity = c.newBlockCapacity(
						c.size, max(srcFirst.size(), maxShortDataSize-c.size), 0, o)
				} else {
					capacity = max(c.size+srcFirst.size(), maxShortDataSize)
				}
				merged := newInternal(capacity)
				merged.append(c.shortData(), 0)
				merged.append(srcFirst.bytes(), 0)
				c.blocks.pushBack(merged)
			}
			drop(srcFirst)
			skip = 1
		} else if c.size > 0 {
			moved := newInternal(maxShortDataSize)
			moved.append(c.shortData(), 0)
			c.blocks.pushBack(moved)
		}
	} else {
		last := c.blocks.back()
		merge := last.tiny(0) && srcFirst.tiny(0) ||
			last.empty() && n > 1 && srcFirst.wasteful(0) ||
			last.wasteful(0) && n > 1 && (srcFirst.empty() || srcFirst.wasteful(0))
		switch {
		case merge:
			if last.empty() && srcFirst.empty() {
				c.blocks.popBack()
				last.Unref()
			} else if last.canAppend(srcFirst.size()) &&
				(n == 1 || !last.wasteful(srcFirst.size())) {
				last.append(srcFirst.bytes(), 0)
			} else {
				var capacity int
				if n == 1 {
					capacity = c.newBlockCapacity(last.size(), srcFirst.size(), 0, o)
				} else {
					capacity = last.size() + srcFirst.size()
				}
				merged := newInternal(capacity)
				merged.append(last.bytes(), 0)
				merged.append(srcFirst.bytes(), 0)
				last.Unref()
				c.blocks.setBack(merged)
			}
			drop(srcFirst)
			skip = 1
		case last.empty():
			c.blocks.popBack()
			last.Unref()
		case last.wasteful(0):
			if last.canAppend(srcFirst.size()) &&
				(n == 1 || !last.wasteful(srcFirst.size())) &&
				srcFirst.size() <= allocationCost+last.size() {
				last.append(srcFirst.bytes(), 0)
				drop(srcFirst)
				skip = 1
			} else {
				c.blocks.setBack(last.copyBlock())
				last.Unref()
			}
		case n > 1:
			if srcFirst.empty() {
				drop(srcFirst)
				skip = 1
			} else if srcFirst.wasteful(0) {
				if last.canAppend(srcFirst.size()) && !last.wasteful(srcFirst.size()) {
					last.append(srcFirst.bytes(), 0)
				} else {
					c.blocks.pushBack(srcFirst.copyBlock())
				}
				drop(srcFirst)
				skip = 1
			}
		}
	}
	c.blocks.appendBlocks(srcBlocks[skip:], !steal)
	c.size += src.size
	if steal {
		src.blocks.truncate(0)
		src.size = 0
	}
}

func (c *Chain) prependChain(src *Chain, steal bool, o Options) {
	if _, ok := buf.AddOverflowSafe(c.size, src.size); !ok {
		panic("chain: PrependChain: chain size overflow")
	}
	if src.blocks.length() == 0 {
		c.Prepend(src.shortData(), o)
		if steal {
			src.Clear()
		}
		return
	}
	srcBlocks := src.blocks.live()
	n := len(srcBlocks)
	srcLast := srcBlocks[n-1]
	drop := func(b *block) {
		if steal {
			b.Unref()
		}
	}
	keep := n
	if c.blocks.length() == 0 {
		if srcLast.tiny(0) || (n > 1 && srcLast.wasteful(0)) {
			if c.size > 0 || !srcLast.empty() {
				var capacity int
				if n == 1 {
					capacity = c.newBlockCapacity(
						c.size, max(srcLast.size(), maxShortDataSize-c.size), 0, o)
				} else {
					capacity = max(c.size+srcLast.size(), maxShortDataSize)
				}
				merged := newInternal(capacity)
				merged.prepend(c.shortData(), 0)
				merged.prepend(srcLast.bytes(), 0)
				c.blocks.pushFront(merged)
			}
			drop(srcLast)
			keep = n - 1
		} else if c.size > 0 {
			moved := newInternal(maxShortDataSize)
			moved.prepend(c.shortData(), 0)
			c.blocks.pushFront(moved)
		}
	} else {
		first := c.blocks.front()
		merge := first.tiny(0) && srcLast.tiny(0) ||
			first.empty() && n > 1 && srcLast.wasteful(0) ||
			first.wasteful(0) && n > 1 && (srcLast.empty() || srcLast.wasteful(0))
		switch {
		case merge:
			if first.empty() && srcLast.empty() {
				c.blocks.popFront()
				first.Unref()
			} else if first.canPrepend(srcLast.size()) &&
				(n == 1 || !first.wasteful(srcLast.size())) {
				first.prepend(srcLast.bytes(), 0)
				c.blocks.refreshFront()
			} else {
				var capacity int
				if n == 1 {
					capacity = c.newBlockCapacity(first.size(), srcLast.size(), 0, o)
				} else {
					capacity = first.size() + srcLast.size()
				}
				merged := newInternal(capacity)
				merged.prepend(first.bytes(), 0)
				merged.prepend(srcLast.bytes(), 0)
				first.Unref()
				c.blocks.setFront(merged)
			}
			drop(srcLast)
			keep = n - 1
		case first.empty():
			c.blocks.popFront()
			first.Unref()
		case first.wasteful(0):
			if first.canPrepend(srcLast.size()) &&
				(n == 1 || !first.wasteful(srcLast.size())) &&
				srcLast.size() <= allocationCost+first.size() {
				first.prepend(srcLast.bytes(), 0)
				c.blocks.refreshFront()
				drop(srcLast)
				keep = n - 1
			} else {
				c.blocks.setFrontSameSize(first.copyBlock())
				first.Unref()
			}
		case n > 1:
			if srcLast.empty() {
				drop(srcLast)
				keep = n - 1
			} else if srcLast.wasteful(0) {
				if first.canPrepend(srcLast.size()) && !first.wasteful(srcLast.size()) {
					first.prepend(srcLast.bytes(), 0)
					c.blocks.refreshFront()
				} else {
					c.blocks.pushFront(srcLast.copyBlock())
				}
				drop(srcLast)
				keep = n - 1
			}
		}
	}
	c.blocks.prependBlocks(srcBlocks[:keep], !steal)
	c.size += src.size
	if steal {
		src.blocks.truncate(0)
		src.size = 0
	}
}

// appendBlock appends a single block, merging it into the back block when
// either side is tiny and adopting it otherwise. With steal the caller's
// reference is consumed.
func (c *Chain) appendBlock(b *block, steal bool, o Options) {
	if _, ok := buf.AddOverflowSafe(c.size, b.size()); !ok {
		panic("chain: Append: chain size overflow")
	}
	drop := func() {
		if steal {
			b.Unref()
		}
	}
	if b.empty() {
		drop()
		return
	}
	if c.blocks.length() == 0 {
		if c.size > 0 {
			if b.tiny(0) {
				merged := newInternal(c.newBlockCapacity(
					c.size, max(b.size(), maxShortDataSize-c.size), 0, o))
				merged.append(c.shortData(), 0)
				merged.append(b.bytes(), 0)
				c.blocks.pushBack(merged)
				c.size += b.size()
				drop()
				return
			}
			moved := newInternal(maxShortDataSize)
			moved.append(c.shortData(), 0)
			c.blocks.pushBack(moved)
		}
	} else {
		last := c.blocks.back()
		if last.tiny(0) && b.tiny(0) {
			if last.canAppend(b.size()) {
				last.append(b.bytes(), 0)
			} else {
				merged := newInternal(c.newBlockCapacity(last.size(), b.size(), 0, o))
				merged.append(last.bytes(), 0)
				merged.append(b.bytes(), 0)
				last.Unref()
				c.blocks.setBack(merged)
			}
			c.size += b.size()
			drop()
			return
		}
		if last.empty() {
			last.Unref()
			if !steal {
				b.Ref()
			}
			c.blocks.setBack(b)
			c.size += b.size()
			return
		}
		if last.wasteful(0) {
			if last.canAppend(b.size()) && b.size() <= allocationCost+last.size() {
				last.append(b.bytes(), 0)
				c.size += b.size()
				drop()
				return
			}
			c.blocks.setBack(last.copyBlock())
			last.Unref()
		}
	}
	if !steal {
		b.Ref()
	}
	c.blocks.pushBack(b)
	c.size += b.size()
}

func (c *Chain) prependBlock(b *block, steal bool, o Options) {
	if _, ok := buf.AddOverflowSafe(c.size, b.size()); !ok {
		panic("chain: Prepend: chain size overflow")
	}
	drop := func() {
		if steal {
			b.Unref()
		}
	}
	if b.empty() {
		drop()
		return
	}
	if c.blocks.length() == 0 {
		if c.size > 0 {
			if b.tiny(0) {
				merged := newInternal(c.newBlockCapacity(
					c.size, max(b.size(), maxShortDataSize-c.size), 0, o))
				merged.prepend(c.shortData(), 0)
				merged.prepend(b.bytes(), 0)
				c.blocks.pushFront(merged)
				c.size += b.size()
				drop()
				return
			}
			moved := newInternal(maxShortDataSize)
			moved.prepend(c.shortData(), 0)
			c.blocks.pushFront(moved)
		}
	} else {
		first := c.blocks.front()
		if first.tiny(0) && b.tiny(0) {
			if first.canPrepend(b.size()) {
				first.prepend(b.bytes(), 0)
				c.blocks.refreshFront()
			} else {
				merged := newInternal(c.newBlockCapacity(first.size(), b.size(), 0, o))
				merged.prepend(first.bytes(), 0)
				merged.prepend(b.bytes(), 0)
				first.Unref()
				c.blocks.setFront(merged)
			}
			c.size += b.size()
			drop()
			return
		}
		if first.empty() {
			first.Unref()
			if !steal {
				b.Ref()
			}
			c.blocks.setFront(b)
			c.size += b.size()
			return
		}
		if first.wasteful(0) {
			if first.canPrepend(b.size()) && b.size() <= allocationCost+first.size() {
				first.prepend(b.bytes(), 0)
				c.blocks.refreshFront()
				c.size += b.size()
				drop()
				return
			}
			c.blocks.setFrontSameSize(first.copyBlock())
			first.Unref()
		}
	}
	if !steal {
		b.Ref()
	}
	c.blocks.pushFront(b)
	c.size += b.size()
}

// RemoveSuffix removes the last length bytes.
func (c *Chain) RemoveSuffix(length int, opts ...Options) {
	if length == 0 {
		return
	}
	if length > c.size {
		panic("chain: RemoveSuffix: length to remove greater than current size")
	}
	c.size -= length
	if c.blocks.length() == 0 {
		return
	}
	last := c.blocks.back()
	if length <= last.size() && last.tryRemoveSuffix(length) {
		return
	}
	c.removeSuffixSlow(length, pickOptions(opts))
}

// RemovePrefix removes the first length bytes.
func (c *Chain) RemovePrefix(length int, opts ...Options) {
	if length == 0 {
		return
	}
	if length > c.size {
		panic("chain: RemovePrefix: length to remove greater than current size")
	}
	if c.blocks.length() == 0 {
		copy(c.short[:c.size-length], c.short[length:c.size])
		c.size -= length
		return
	}
	c.size -= length
	first := c.blocks.front()
	if length <= first.size() && first.tryRemovePrefix(length) {
		c.blocks.refreshFront()
		return
	}
	c.removePrefixSlow(length, pickOptions(opts))
}

// removeSuffixSlow pops whole blocks spanned by the removal, then keeps
// the remainder of the boundary block as a substring view or a copy.
func (c *Chain) removeSuffixSlow(length int, o Options) {
	if length > c.blocks.back().size() {
		for {
			b := c.blocks.back()
			length -= b.size()
			b.Unref()
			c.blocks.popBack()
			if c.blocks.length() == 0 {
				panic("chain: invariant broken: sum of block sizes smaller than chain size")
			}
			if length <= c.blocks.back().size() {
				break
			}
		}
		if c.blocks.back().tryRemoveSuffix(length) {
			return
		}
	}
	b := c.blocks.back()
	c.blocks.popBack()
	if length == b.size() {
		b.Unref()
		return
	}
	n := b.size() - length
	// Re-appending the remainder adds its size back.
	c.size -= n
	if n <= maxBytesToCopy {
		c.Append(b.bytes()[:n], o)
		b.Unref()
		return
	}
	c.appendBlock(newBlockView(b, 0, n, true), true, o)
}

func (c *Chain) removePrefixSlow(length int, o Options) {
	if length > c.blocks.front().size() {
		for {
			b := c.blocks.front()
			length -= b.size()
			b.Unref()
			c.blocks.popFront()
			if c.blocks.length() == 0 {
				panic("chain: invariant broken: sum of block sizes smaller than chain size")
			}
			if length <= c.blocks.front().size() {
				break
			}
		}
		if c.blocks.front().tryRemovePrefix(length) {
			c.blocks.refreshFront()
			return
		}
	}
	b := c.blocks.front()
	c.blocks.popFront()
	if length == b.size() {
		b.Unref()
		return
	}
	n := b.size() - length
	c.size -= n
	if n <= maxBytesToCopy {
		c.Prepend(b.bytes()[length:], o)
		b.Unref()
		return
	}
	c.prependBlock(newBlockView(b, length, n, true), true, o)
}
