package chain

import (
	"math"

	"github.com/ropekit/ropekit/internal/buf"
)

// ChunkSource supplies bytes as a sequence of chunks. Remaining returns a
// view of the unconsumed part of the current chunk, or an empty slice when
// the source is exhausted; Advance consumes n bytes of it. Views returned
// by Remaining must stay valid and immutable after Advance, so a consumer
// may adopt them without copying.
type ChunkSource interface {
	Remaining() []byte
	Advance(n int)
}

// Buffers is a byte sequence stored as an ordered list of non-empty
// chunks. It is the exchange format between chains and callers that
// produce or consume data in fragments. A Buffers obtained from ToBuffers
// or IntoBuffers keeps the underlying blocks alive until Release is
// called.
type Buffers struct {
	chunks [][]byte
	pins   []*block
}

// NewBuffers wraps the given chunks without copying, skipping empty ones.
// The chunks must stay valid and immutable for the lifetime of the
// Buffers.
func NewBuffers(chunks ...[]byte) Buffers {
	b := Buffers{chunks: make([][]byte, 0, len(chunks))}
	for _, chunk := range chunks {
		if len(chunk) > 0 {
			b.chunks = append(b.chunks, chunk)
		}
	}
	return b
}

// Len returns the total number of bytes across all chunks.
func (b Buffers) Len() int {
	total := 0
	for _, chunk := range b.chunks {
		total += len(chunk)
	}
	return total
}

// Chunks returns the chunk list. The caller must not mutate the chunks.
func (b Buffers) Chunks() [][]byte { return b.chunks }

// Release drops the block references pinned by this Buffers and empties
// it. Chunk views are invalid afterwards.
func (b *Buffers) Release() {
	for _, pin := range b.pins {
		pin.Unref()
	}
	b.pins = nil
	b.chunks = nil
}

// Cursor returns a ChunkSource reading the Buffers from the beginning.
func (b Buffers) Cursor() *BuffersCursor {
	return &BuffersCursor{chunks: b.chunks}
}

// BuffersCursor is a ChunkSource over a Buffers.
type BuffersCursor struct {
	chunks [][]byte
	index  int
	off    int
}

// Remaining returns the unconsumed part of the current chunk.
func (cur *BuffersCursor) Remaining() []byte {
	if cur.index >= len(cur.chunks) {
		return nil
	}
	return cur.chunks[cur.index][cur.off:]
}

// Advance consumes n bytes of the current chunk.
func (cur *BuffersCursor) Advance(n int) {
	if cur.index >= len(cur.chunks) || n > len(cur.chunks[cur.index])-cur.off {
		panic("chain: Advance past the current chunk")
	}
	cur.off += n
	if cur.off == len(cur.chunks[cur.index]) {
		cur.index++
		cur.off = 0
	}
}

// FromBuffers returns a chain holding src's bytes. Large chunks are
// adopted without copying; see AppendBuffers.
func FromBuffers(src Buffers, opts ...Options) *Chain {
	c := &Chain{}
	c.AppendBuffers(src, opts...)
	return c
}

// AppendFrom appends length bytes read from src. Short chunks are
// accumulated and copied together; long chunks are adopted as external
// blocks without copying, relying on the ChunkSource contract that chunk
// views stay valid and immutable.
func (c *Chain) AppendFrom(src ChunkSource, length int, opts ...Options) {
	o := pickOptions(opts)
	// While batching short chunks, aim block sizing at the end of the
	// batch rather than the caller's overall hint.
	batchOpts := o
	batchOpts.SizeHint = c.size
	var batch [][]byte
	flush := func(flushOpts Options) {
		for _, chunk := range batch {
			c.Append(chunk, flushOpts)
		}
		batch = batch[:0]
	}
	for length > 0 {
		chunk := src.Remaining()
		if len(chunk) == 0 {
			panic("chain: AppendFrom: source exhausted before length bytes")
		}
		if len(chunk) > length {
			chunk = chunk[:length]
		}
		if len(chunk) <= maxBytesToCopy {
			batch = append(batch, chunk)
			batchOpts.SizeHint = buf.SaturatingAdd(batchOpts.SizeHint, len(chunk), math.MaxInt)
		} else {
			flush(batchOpts)
			c.appendBlock(newExternal(&bytesOwner{data: chunk}, chunk), true, o)
			batchOpts.SizeHint = c.size
		}
		src.Advance(len(chunk))
		length -= len(chunk)
	}
	flush(o)
}

// AppendBuffers appends src's bytes. Chunks longer than the copy threshold
// are adopted without copying; src's chunks must then stay valid and
// immutable for the life of the data.
func (c *Chain) AppendBuffers(src Buffers, opts ...Options) {
	c.AppendFrom(src.Cursor(), src.Len(), opts...)
}

// PrependBuffers prepends src's bytes, with the same adoption behavior as
// AppendBuffers.
func (c *Chain) PrependBuffers(src Buffers, opts ...Options) {
	total := src.Len()
	if total == 0 {
		return
	}
	if total <= maxBytesToCopy {
		flat := make([]byte, 0, total)
		for _, chunk := range src.Chunks() {
			flat = append(flat, chunk...)
		}
		c.Prepend(flat, opts...)
		return
	}
	tmp := FromBuffers(src, opts...)
	c.PrependChainMove(tmp, opts...)
}

// ToBuffers returns the chain's bytes as chunks. Long blocks are shared,
// not copied, and stay pinned until the result is Released; short blocks
// and inline data are copied.
func (c *Chain) ToBuffers() Buffers {
	var out Buffers
	if c.blocks.length() == 0 {
		if c.size > 0 {
			out.chunks = append(out.chunks, append([]byte(nil), c.shortData()...))
		}
		return out
	}
	for _, b := range c.blocks.live() {
		switch {
		case b.empty():
		case b.size() <= maxBytesToCopy:
			out.chunks = append(out.chunks, append([]byte(nil), b.bytes()...))
		default:
			b.Ref()
			out.pins = append(out.pins, b)
			out.chunks = append(out.chunks, b.bytes())
		}
	}
	return out
}

// IntoBuffers returns the chain's bytes as chunks, moving block ownership
// into the result instead of sharing. The chain is left empty.
func (c *Chain) IntoBuffers() Buffers {
	var out Buffers
	if c.blocks.length() == 0 {
		if c.size > 0 {
			out.chunks = append(out.chunks, append([]byte(nil), c.shortData()...))
		}
		c.size = 0
		return out
	}
	for _, b := range c.blocks.live() {
		switch {
		case b.empty():
			b.Unref()
		case b.size() <= maxBytesToCopy:
			out.chunks = append(out.chunks, append([]byte(nil), b.bytes()...))
			b.Unref()
		default:
			out.pins = append(out.pins, b)
			out.chunks = append(out.chunks, b.bytes())
		}
	}
	c.blocks.truncate(0)
	c.size = 0
	return out
}
