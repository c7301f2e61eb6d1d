// Package refs provides the shared-ownership primitives used by chain
// blocks: an atomic reference count embedded in the counted object, and a
// generic handle over any such object.
//
// Go's garbage collector reclaims memory, so the count does not drive
// deallocation. It drives mutability decisions instead: an object may be
// modified in place only while it has exactly one owner. Losing track of a
// reference (never calling Unref) is therefore safe but pessimistic, while
// an extra Unref would allow mutation of shared bytes and must never happen.
package refs

import "sync/atomic"

// Count is an atomic reference count. The zero value has one owner.
type Count struct {
	// Number of owners beyond the first, so the zero value is usable.
	extra atomic.Int64
}

// Ref registers one more owner.
func (c *Count) Ref() { c.extra.Add(1) }

// Unref drops one owner and reports whether the dropped owner was the last
// one. It returns true exactly once per lifetime of the counted object;
// afterwards the object may be recycled by the caller.
func (c *Count) Unref() bool {
	// A plain load avoids the read-modify-write in the common single-owner
	// case.
	return c.extra.Load() == 0 || c.extra.Add(-1) == -1
}

// HasUniqueOwner reports whether there is only one owner of the object.
//
// This is a snapshot, not a lock. It is reliable only when the caller is
// known to be one of the owners: then a result of true means no other owner
// exists now or later (owners can only be added through an existing owner),
// which is what makes in-place mutation sound. It must not be used to
// synchronize access to the pointee's contents across goroutines.
func (c *Count) HasUniqueOwner() bool { return c.extra.Load() == 0 }

// Get returns the current number of owners. Only suitable for diagnostics;
// the value may be stale as soon as it is returned.
func (c *Count) Get() int64 { return c.extra.Load() + 1 }

// Counted is the contract an object must satisfy to be managed by Ptr.
// Objects embed a Count and forward these methods to it.
type Counted interface {
	comparable
	Ref()
	Unref() bool
	HasUniqueOwner() bool
}

// Ptr is a shared handle over an object that manages its own reference
// count. The zero Ptr is empty. Copying a Ptr does not register ownership;
// use Share for that.
type Ptr[T Counted] struct {
	ptr T
}

// Own wraps an object the caller already owns. The reference count is not
// changed.
func Own[T Counted](obj T) Ptr[T] { return Ptr[T]{ptr: obj} }

// Shared wraps an object and registers a new owner.
func Shared[T Counted](obj T) Ptr[T] {
	var zero T
	if obj != zero {
		obj.Ref()
	}
	return Ptr[T]{ptr: obj}
}

// Get returns the held object, or the zero value if the Ptr is empty.
func (p Ptr[T]) Get() T { return p.ptr }

// IsEmpty reports whether the Ptr holds no object.
func (p Ptr[T]) IsEmpty() bool {
	var zero T
	return p.ptr == zero
}

// IsUnique reports whether this handle is the only owner of a held object.
// An empty Ptr is not unique.
func (p Ptr[T]) IsUnique() bool {
	var zero T
	return p.ptr != zero && p.ptr.HasUniqueOwner()
}

// Share returns a new handle to the same object, registering one more owner.
func (p Ptr[T]) Share() Ptr[T] { return Shared(p.ptr) }

// Release returns the held object and leaves the Ptr empty. The reference
// count is not changed; ownership moves to the caller.
func (p *Ptr[T]) Release() T {
	obj := p.ptr
	var zero T
	p.ptr = zero
	return obj
}

// Drop gives up this handle's ownership and leaves the Ptr empty. It
// reports whether the dropped owner was the last one.
func (p *Ptr[T]) Drop() bool {
	var zero T
	if p.ptr == zero {
		return false
	}
	last := p.ptr.Unref()
	p.ptr = zero
	return last
}

// Reset replaces the held object with obj, taking ownership of it. The
// previous object, if any, loses an owner.
func (p *Ptr[T]) Reset(obj T) {
	var zero T
	if p.ptr != zero {
		p.ptr.Unref()
	}
	p.ptr = obj
}

// ResetWith replaces the held object with a freshly constructed value.
// When the current object is uniquely owned, assign reinitializes it in
// place and no allocation happens; otherwise make constructs a new object
// and the old one loses an owner. assign must leave the object in the same
// state make would have produced.
func (p *Ptr[T]) ResetWith(assign func(T), make func() T) {
	if p.IsUnique() {
		assign(p.ptr)
		return
	}
	p.Reset(make())
}
