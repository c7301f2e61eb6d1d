package chain

import (
	"fmt"
	"io"

	"github.com/ropekit/ropekit/internal/buf"
	"github.com/ropekit/ropekit/internal/refs"
	"github.com/ropekit/ropekit/pkg/memsize"
)

// ByteOwner is the contract for foreign memory wrapped by an external
// block. Bytes must return the same view, with immutable contents, for as
// long as any block refers to the owner.
//
// Owners may additionally implement Releaser, StructureDumper and
// SubobjectRegisterer.
type ByteOwner interface {
	Bytes() []byte
}

// Releaser is an optional ByteOwner capability. Release is called exactly
// once, when the last block referring to the owner is dropped.
type Releaser interface {
	Release()
}

// StructureDumper is an optional ByteOwner capability consulted by
// DumpStructure.
type StructureDumper interface {
	DumpStructure(w io.Writer)
}

// SubobjectRegisterer is an optional ByteOwner capability consulted by
// memory estimation. Owners that do not implement it are charged the
// length of their byte view.
type SubobjectRegisterer interface {
	RegisterSubobjects(est *memsize.Estimator)
}

// bytesOwner adopts a caller-provided []byte, including its spare
// capacity, without copying.
type bytesOwner struct {
	data []byte
}

func (o *bytesOwner) Bytes() []byte { return o.data }

func (o *bytesOwner) DumpStructure(w io.Writer) {
	fmt.Fprintf(w, "[bytes] { len: %d cap: %d }", len(o.data), cap(o.data))
}

func (o *bytesOwner) RegisterSubobjects(est *memsize.Estimator) {
	est.RegisterMemory(cap(o.data))
}

// blockOwner keeps a referenced block alive on behalf of a substring view
// of it. The view is identified by an explicit offset and length into the
// target's data rather than by pointer containment.
type blockOwner struct {
	target   *block
	off, len int
}

func (o *blockOwner) Bytes() []byte {
	data, ok := buf.Slice(o.target.bytes(), o.off, o.len)
	if !ok {
		panic("chain: view range outside its target block")
	}
	return data
}

func (o *blockOwner) Release() { o.target.Unref() }

func (o *blockOwner) DumpStructure(w io.Writer) {
	fmt.Fprintf(w, "[view] { offset: %d ", o.off)
	o.target.dumpTo(w)
	fmt.Fprint(w, " }")
}

func (o *blockOwner) RegisterSubobjects(est *memsize.Estimator) {
	o.target.registerShared(est)
}

// newBlockView wraps target.bytes()[off:off+n] as an external block holding
// a reference to target. A view of a view points at the root block
// directly so chains of removals do not stack owners. With steal the
// caller's reference to target is consumed, otherwise a new one is taken.
func newBlockView(target *block, off, n int, steal bool) *block {
	if inner, ok := target.owner.(*blockOwner); ok {
		root := inner.target
		off += inner.off
		root.Ref()
		if steal {
			target.Unref()
		}
		target = root
	} else if !steal {
		target.Ref()
	}
	o := &blockOwner{target: target, off: off, len: n}
	return newExternal(o, o.Bytes())
}

// Block is an independently owned handle to a single block of bytes. The
// zero value is an empty handle. Handles obtained from Pin or NewExternal
// hold a block reference until Drop is called.
type Block struct {
	p refs.Ptr[*block]
}

// NewExternal wraps owner's bytes as a Block without copying. The handle
// owns the sole reference; when the last reference is dropped and owner
// implements Releaser, Release is called.
func NewExternal(owner ByteOwner) Block {
	return Block{p: refs.Own(newExternal(owner, owner.Bytes()))}
}

// Bytes returns the handle's byte view.
func (bl Block) Bytes() []byte {
	if bl.p.IsEmpty() {
		return nil
	}
	return bl.p.Get().bytes()
}

// Len returns the number of bytes in the handle.
func (bl Block) Len() int {
	if bl.p.IsEmpty() {
		return 0
	}
	return bl.p.Get().size()
}

// Share returns a new handle owning an additional reference.
func (bl Block) Share() Block {
	return Block{p: bl.p.Share()}
}

// Drop releases the handle's reference and empties the handle.
func (bl *Block) Drop() {
	bl.p.Drop()
}

// AppendTo appends the handle's bytes to dest, sharing the block.
func (bl Block) AppendTo(dest *Chain, opts ...Options) {
	if bl.p.IsEmpty() {
		return
	}
	dest.appendBlock(bl.p.Get(), false, pickOptions(opts))
}

// PrependTo prepends the handle's bytes to dest, sharing the block.
func (bl Block) PrependTo(dest *Chain, opts ...Options) {
	if bl.p.IsEmpty() {
		return
	}
	dest.prependBlock(bl.p.Get(), false, pickOptions(opts))
}

// AppendRangeTo appends bytes [lo:hi) of the handle to dest. Short ranges
// are copied; longer ones share the block through a substring view.
func (bl Block) AppendRangeTo(lo, hi int, dest *Chain, opts ...Options) {
	if !buf.Has(bl.Bytes(), lo, hi-lo) {
		panic("chain: AppendRangeTo: range out of bounds")
	}
	appendRange(bl.p.Get(), lo, hi, dest, pickOptions(opts))
}

func appendRange(b *block, lo, hi int, dest *Chain, o Options) {
	switch {
	case lo == hi:
	case hi-lo == b.size():
		dest.appendBlock(b, false, o)
	case hi-lo <= maxBytesToCopy:
		dest.Append(b.bytes()[lo:hi], o)
	default:
		dest.appendBlock(newBlockView(b, lo, hi-lo, false), true, o)
	}
}

func prependRange(b *block, lo, hi int, dest *Chain, o Options) {
	switch {
	case lo == hi:
	case hi-lo == b.size():
		dest.prependBlock(b, false, o)
	case hi-lo <= maxBytesToCopy:
		dest.Prepend(b.bytes()[lo:hi], o)
	default:
		dest.prependBlock(newBlockView(b, lo, hi-lo, false), true, o)
	}
}

// EstimateMemory estimates the memory usage of the handle's block.
func (bl Block) EstimateMemory() int {
	est := memsize.New()
	if !bl.p.IsEmpty() {
		bl.p.Get().registerShared(est)
	}
	return est.Total()
}

// DumpStructure writes a human-readable description of the handle.
func (bl Block) DumpStructure(w io.Writer) {
	if bl.p.IsEmpty() {
		fmt.Fprint(w, "block { empty }")
		return
	}
	bl.p.Get().dumpTo(w)
}
