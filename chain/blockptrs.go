package chain

// blockPtrs holds a chain's block pointers. Up to two blocks live in the
// inline slots; beyond that the pointers spill into an allocated array
// with free slots kept on both ends so pushes at either end stay amortized
// O(1). A parallel array of cumulative offsets, maintained only in the
// spilled form, supports binary search by position. Offsets are relative
// to off[begin]: the front block's stored offset is not necessarily zero
// after front pushes or prefix removals.
type blockPtrs struct {
	here [2]*block
	arr  []*block
	off  []int
	// Live window [begin:end) into here (arr == nil, begin always 0) or arr.
	begin, end int
}

func (p *blockPtrs) inline() bool { return p.arr == nil }

func (p *blockPtrs) length() int { return p.end - p.begin }

func (p *blockPtrs) slots() []*block {
	if p.arr == nil {
		return p.here[:]
	}
	return p.arr
}

// live returns the window of current block pointers.
func (p *blockPtrs) live() []*block { return p.slots()[p.begin:p.end] }

func (p *blockPtrs) at(i int) *block { return p.slots()[p.begin+i] }

func (p *blockPtrs) front() *block { return p.slots()[p.begin] }

func (p *blockPtrs) back() *block { return p.slots()[p.end-1] }

// setBack replaces the last pointer. The block's own offset is unaffected
// by its size, so no offset maintenance is needed.
func (p *blockPtrs) setBack(b *block) { p.slots()[p.end-1] = b }

// setFrontSameSize replaces the first pointer with a block of equal size.
func (p *blockPtrs) setFrontSameSize(b *block) { p.slots()[p.begin] = b }

// setFront replaces the first pointer and repairs its offset.
func (p *blockPtrs) setFront(b *block) {
	p.slots()[p.begin] = b
	p.refreshFront()
}

// refreshFront recomputes the front block's offset from its current size.
// Must be called after the front block's size changes in place.
func (p *blockPtrs) refreshFront() {
	if p.arr != nil && p.length() >= 2 {
		p.off[p.begin] = p.off[p.begin+1] - p.arr[p.begin].size()
	}
}

func (p *blockPtrs) pushBack(b *block) {
	p.reserveBack(1)
	p.pushBackNoReserve(b)
}

func (p *blockPtrs) pushBackNoReserve(b *block) {
	s := p.slots()
	s[p.end] = b
	if p.arr != nil {
		if p.begin == p.end {
			p.off[p.end] = 0
		} else {
			p.off[p.end] = p.off[p.end-1] + s[p.end-1].size()
		}
	}
	p.end++
}

func (p *blockPtrs) pushFront(b *block) {
	p.reserveFront(1)
	p.pushFrontNoReserve(b)
}

func (p *blockPtrs) pushFrontNoReserve(b *block) {
	wasEmpty := p.begin == p.end
	p.begin--
	p.slots()[p.begin] = b
	if p.arr != nil {
		if wasEmpty {
			p.off[p.begin] = 0
		} else {
			p.off[p.begin] = p.off[p.begin+1] - b.size()
		}
	}
}

func (p *blockPtrs) popBack() {
	p.slots()[p.end-1] = nil
	p.end--
}

func (p *blockPtrs) popFront() {
	if p.arr == nil {
		p.here[0] = p.here[1]
		p.here[1] = nil
		p.end--
		return
	}
	p.arr[p.begin] = nil
	p.begin++
}

// truncate keeps the first n blocks of the window. Dropped pointers are
// not unreferenced; that is the caller's job.
func (p *blockPtrs) truncate(n int) {
	s := p.slots()
	for i := p.begin + n; i < p.end; i++ {
		s[i] = nil
	}
	p.end = p.begin + n
}

// appendBlocks pushes src in order at the back. With share each block
// gains a reference; otherwise the caller's references are transferred.
func (p *blockPtrs) appendBlocks(src []*block, share bool) {
	if len(src) == 0 {
		return
	}
	p.reserveBack(len(src))
	for _, b := range src {
		if share {
			b.Ref()
		}
		p.pushBackNoReserve(b)
	}
}

func (p *blockPtrs) prependBlocks(src []*block, share bool) {
	if len(src) == 0 {
		return
	}
	p.reserveFront(len(src))
	for i := len(src) - 1; i >= 0; i-- {
		b := src[i]
		if share {
			b.Ref()
		}
		p.pushFrontNoReserve(b)
	}
}

func (p *blockPtrs) reserveBack(extra int) {
	capEnd := 2
	if p.arr != nil {
		capEnd = len(p.arr)
	}
	if extra <= capEnd-p.end {
		return
	}
	p.reserveBackSlow(extra)
}

func (p *blockPtrs) reserveFront(extra int) {
	if extra <= p.begin {
		return
	}
	p.reserveFrontSlow(extra)
}

func (p *blockPtrs) reserveBackSlow(extra int) {
	size := p.length()
	final := size + extra
	if p.arr != nil && final*2 <= len(p.arr) {
		// The array is at most half full: recentering the window makes
		// room without reallocating.
		newBegin := (len(p.arr) - final) / 2
		copy(p.arr[newBegin:newBegin+size], p.arr[p.begin:p.end])
		copy(p.off[newBegin:newBegin+size], p.off[p.begin:p.end])
		for i := newBegin + size; i < p.end; i++ {
			p.arr[i] = nil
		}
		p.begin, p.end = newBegin, newBegin+size
		return
	}
	oldCap := 2
	if p.arr != nil {
		oldCap = len(p.arr)
	}
	newCap := max(p.end+extra, oldCap+oldCap/2, 16)
	p.reallocate(newCap, p.begin, size)
}

func (p *blockPtrs) reserveFrontSlow(extra int) {
	size := p.length()
	if p.arr == nil {
		if p.end+extra <= 2 {
			// Shift the inline pointers toward the back.
			p.here[1] = p.here[0]
			p.here[0] = nil
			p.begin += extra
			p.end += extra
			return
		}
		newCap := max(size+extra, 16)
		p.reallocate(newCap, newCap-size, size)
		return
	}
	final := size + extra
	if final*2 <= len(p.arr) {
		newEnd := len(p.arr) - (len(p.arr)-final)/2
		newBegin := newEnd - size
		copy(p.arr[newBegin:newEnd], p.arr[p.begin:p.end])
		copy(p.off[newBegin:newEnd], p.off[p.begin:p.end])
		for i := p.begin; i < newBegin; i++ {
			p.arr[i] = nil
		}
		p.begin, p.end = newBegin, newEnd
		return
	}
	newCap := max(len(p.arr)-p.begin+extra, len(p.arr)+len(p.arr)/2, 16)
	tail := len(p.arr) - p.end
	p.reallocate(newCap, newCap-tail-size, size)
}

// reallocate moves the live window into a fresh array of newCap slots,
// placing it at newBegin. Offsets are carried over, or synthesized when
// spilling out of the inline slots.
func (p *blockPtrs) reallocate(newCap, newBegin, size int) {
	newArr := make([]*block, newCap)
	newOff := make([]int, newCap)
	copy(newArr[newBegin:], p.slots()[p.begin:p.end])
	if p.arr != nil {
		copy(newOff[newBegin:], p.off[p.begin:p.end])
	} else {
		if size >= 1 {
			newOff[newBegin] = 0
		}
		if size == 2 {
			newOff[newBegin+1] = newArr[newBegin].size()
		}
		p.here[0], p.here[1] = nil, nil
	}
	p.arr, p.off = newArr, newOff
	p.begin, p.end = newBegin, newBegin+size
}
