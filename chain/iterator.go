package chain

import (
	"sort"

	"github.com/ropekit/ropekit/internal/buf"
	"github.com/ropekit/ropekit/internal/refs"
)

// BlockIterator walks a chain's blocks in order. Inline short data appears
// as a single virtual block. The iterator starts before the first block:
//
//	for it := c.Blocks(); it.Next(); {
//		process(it.Bytes())
//	}
//
// Iterators are invalidated by mutation of the chain.
type BlockIterator struct {
	chain *Chain
	index int
}

// Blocks returns an iterator positioned before the first block.
func (c *Chain) Blocks() BlockIterator {
	return BlockIterator{chain: c, index: -1}
}

// BlockCount returns the number of blocks an iterator would yield.
func (c *Chain) BlockCount() int { return c.blockCount() }

// Next advances to the next block and reports whether one exists.
func (it *BlockIterator) Next() bool {
	if it.index >= it.chain.blockCount() {
		return false
	}
	it.index++
	return it.index < it.chain.blockCount()
}

func (it BlockIterator) current() []byte {
	if it.index < 0 || it.index >= it.chain.blockCount() {
		panic("chain: BlockIterator out of range")
	}
	if it.chain.blocks.length() == 0 {
		return it.chain.shortData()
	}
	return it.chain.blocks.at(it.index).bytes()
}

// Bytes returns the current block's data, valid until the chain is
// mutated.
func (it BlockIterator) Bytes() []byte { return it.current() }

// Pin returns an independently owned handle to the current block. The
// handle stays valid after the chain is mutated or dropped; release it
// with Drop. Pinning the short-data block copies it.
func (it BlockIterator) Pin() Block {
	data := it.current()
	if it.chain.blocks.length() == 0 {
		pinned := newInternal(maxShortDataSize)
		pinned.append(data, 0)
		return Block{p: refs.Own(pinned)}
	}
	return Block{p: refs.Shared(it.chain.blocks.at(it.index))}
}

// AppendTo appends the current block to dest, sharing it when possible.
func (it BlockIterator) AppendTo(dest *Chain, opts ...Options) {
	o := pickOptions(opts)
	if it.chain.blocks.length() == 0 {
		dest.Append(it.current(), o)
		return
	}
	dest.appendBlock(it.chain.blocks.at(it.index), false, o)
}

// PrependTo prepends the current block to dest, sharing it when possible.
func (it BlockIterator) PrependTo(dest *Chain, opts ...Options) {
	o := pickOptions(opts)
	if it.chain.blocks.length() == 0 {
		dest.Prepend(it.current(), o)
		return
	}
	dest.prependBlock(it.chain.blocks.at(it.index), false, o)
}

// AppendRangeTo appends bytes [lo:hi) of the current block to dest. Short
// ranges are copied; longer ones share the block through a substring view.
func (it BlockIterator) AppendRangeTo(lo, hi int, dest *Chain, opts ...Options) {
	data := it.current()
	if !buf.Has(data, lo, hi-lo) {
		panic("chain: AppendRangeTo: range out of bounds")
	}
	o := pickOptions(opts)
	if it.chain.blocks.length() == 0 {
		dest.Append(data[lo:hi], o)
		return
	}
	appendRange(it.chain.blocks.at(it.index), lo, hi, dest, o)
}

// PrependRangeTo prepends bytes [lo:hi) of the current block to dest.
func (it BlockIterator) PrependRangeTo(lo, hi int, dest *Chain, opts ...Options) {
	data := it.current()
	if !buf.Has(data, lo, hi-lo) {
		panic("chain: PrependRangeTo: range out of bounds")
	}
	o := pickOptions(opts)
	if it.chain.blocks.length() == 0 {
		dest.Prepend(data[lo:hi], o)
		return
	}
	prependRange(it.chain.blocks.at(it.index), lo, hi, dest, o)
}

// Position locates the block containing byte position pos and returns an
// iterator at that block together with the offset of pos within it.
// pos == Size() yields an exhausted iterator. The lookup is O(log n) in
// the number of blocks.
func (c *Chain) Position(pos int) (BlockIterator, int) {
	if pos < 0 || pos > c.size {
		panic("chain: Position out of range")
	}
	if pos == c.size {
		return BlockIterator{chain: c, index: c.blockCount()}, 0
	}
	if c.blocks.length() == 0 {
		return BlockIterator{chain: c, index: 0}, pos
	}
	if c.blocks.inline() {
		if front := c.blocks.front(); pos < front.size() {
			return BlockIterator{chain: c, index: 0}, pos
		}
		return BlockIterator{chain: c, index: 1}, pos - c.blocks.front().size()
	}
	base := c.blocks.off[c.blocks.begin]
	i := sort.Search(c.blocks.length()-1, func(k int) bool {
		return pos < c.blocks.off[c.blocks.begin+k+1]-base
	})
	return BlockIterator{chain: c, index: i},
		pos - (c.blocks.off[c.blocks.begin+i] - base)
}
