package chain

import (
	"math"

	"github.com/ropekit/ropekit/internal/buf"
)

const (
	// maxShortDataSize is the inline short-data capacity. Chains at or
	// below this size hold their bytes directly in the container with no
	// block allocation.
	maxShortDataSize = 16

	// minBufferSize is the tiny-block threshold: blocks shorter than this
	// are merge candidates rather than being kept as separate blocks.
	minBufferSize = 64

	// allocationCost weighs allocating a new block against copying bytes
	// into an existing one. Appending up to this many bytes in place is
	// considered cheaper than a block rewrite.
	allocationCost = 256

	// maxBytesToCopy caps how many bytes are copied in preference to
	// sharing or wrapping a block.
	maxBytesToCopy = 255

	// maxBlockCapacity bounds a single block's allocation.
	maxBlockCapacity = math.MaxInt / 2
)

// Options tune block sizing decisions. The zero value of a field selects
// its default. Exact thresholds are policy, not contract: only the logical
// byte content of a chain is observable.
type Options struct {
	// SizeHint is the expected final size of the chain, when known.
	// Growth decisions size blocks toward the hint and avoid placing data
	// in the inline short-data slot that would soon be copied out of it.
	SizeHint int

	// MinBlockSize is the minimum capacity of a newly allocated block.
	MinBlockSize int

	// MaxBlockSize is the maximum capacity of a newly allocated block.
	MaxBlockSize int
}

// DefaultOptions are the sizing defaults applied where no explicit Options
// are passed.
var DefaultOptions = Options{
	MinBlockSize: minBufferSize,
	MaxBlockSize: 64 << 10,
}

func pickOptions(opts []Options) Options {
	if len(opts) == 0 {
		return DefaultOptions
	}
	o := opts[0]
	if o.SizeHint < 0 {
		o.SizeHint = 0
	}
	if o.MinBlockSize <= 0 {
		o.MinBlockSize = DefaultOptions.MinBlockSize
	}
	if o.MaxBlockSize <= 0 {
		o.MaxBlockSize = DefaultOptions.MaxBlockSize
	}
	if o.MaxBlockSize < o.MinBlockSize {
		o.MaxBlockSize = o.MinBlockSize
	}
	return o
}

// bufferLength decides how many bytes of capacity a new buffer gets:
// at least minLength, at most maxLength (which is raised to minLength if
// needed), sized to finish exactly at a pending size hint when one is in
// range, and otherwise following recommended.
func bufferLength(minLength, maxLength, sizeHint, currentSize, recommended int) int {
	if maxLength < minLength {
		maxLength = minLength
	}
	if sizeHint > currentSize && sizeHint-currentSize >= minLength {
		recommended = sizeHint - currentSize
	}
	return min(max(recommended, minLength), maxLength)
}

// newBlockCapacity sizes a replacement block that absorbs replaced bytes of
// existing data plus at least minLength bytes of new data.
func (c *Chain) newBlockCapacity(replaced, minLength, recommended int, o Options) int {
	if replaced > c.size {
		panic("chain: newBlockCapacity: length to replace greater than current size")
	}
	if minLength > maxBlockCapacity-replaced {
		panic("chain: block capacity overflow")
	}
	goal := max(recommended, c.size-replaced, buf.SaturatingSub(o.MinBlockSize, replaced))
	return replaced + bufferLength(
		minLength,
		buf.SaturatingSub(o.MaxBlockSize, replaced),
		o.SizeHint, c.size, goal)
}
