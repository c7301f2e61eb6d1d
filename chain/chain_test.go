package chain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ropekit/ropekit/pkg/memsize"
)

// mkdata returns n bytes of a deterministic non-repeating-ish pattern.
func mkdata(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i*7 + i/251)
	}
	return out
}

// checkInvariants verifies the structural invariants of a chain: size
// equals the sum of block sizes, block regions are in bounds, and stored
// cumulative offsets match the block sizes.
func checkInvariants(t *testing.T, c *Chain) {
	t.Helper()
	if c.blocks.length() == 0 {
		require.LessOrEqual(t, c.size, maxShortDataSize)
		return
	}
	sum := 0
	for i := 0; i < c.blocks.length(); i++ {
		b := c.blocks.at(i)
		require.NotNil(t, b)
		if b.isInternal() {
			require.GreaterOrEqual(t, b.lo, 0)
			require.LessOrEqual(t, b.lo, b.hi)
			require.LessOrEqual(t, b.hi, len(b.buf))
		}
		sum += b.size()
	}
	require.Equal(t, c.size, sum, "chain size does not match sum of block sizes")
	if !c.blocks.inline() {
		base := c.blocks.off[c.blocks.begin]
		cum := 0
		for i := 0; i < c.blocks.length(); i++ {
			require.Equal(t, cum, c.blocks.off[c.blocks.begin+i]-base,
				"offset of block %d", i)
			cum += c.blocks.at(i).size()
		}
	}
}

func TestShortDataStaysInline(t *testing.T) {
	c := &Chain{}
	c.Append([]byte("12345678"))
	c.Append([]byte("abcdefgh"))
	assert.Equal(t, 16, c.Size())
	assert.Equal(t, 0, c.blocks.length(), "16 bytes should need no block")
	assert.Equal(t, 1, c.BlockCount())
	assert.Equal(t, "12345678abcdefgh", c.String())

	// One more byte does not fit inline and moves the data into a block.
	c.Append([]byte("!"))
	assert.Equal(t, 17, c.Size())
	assert.Equal(t, 1, c.blocks.length())
	assert.Equal(t, "12345678abcdefgh!", c.String())
	checkInvariants(t, c)
}

func TestSizeHintSkipsShortData(t *testing.T) {
	c := &Chain{}
	c.Append([]byte("abc"), Options{SizeHint: 1000})
	assert.Equal(t, 1, c.blocks.length(),
		"a hint beyond the inline capacity should go straight to a block")
	assert.Equal(t, "abc", c.String())
}

func TestAppendPrependRoundTrip(t *testing.T) {
	for _, chunk := range []int{1, 3, 16, 17, 64, 255, 256, 1000} {
		c := &Chain{}
		var want []byte
		data := mkdata(chunk)
		for i := 0; i < 50; i++ {
			if i%3 == 2 {
				c.Prepend(data)
				want = append(append([]byte(nil), data...), want...)
			} else {
				c.Append(data)
				want = append(want, data...)
			}
			checkInvariants(t, c)
		}
		require.Equal(t, len(want), c.Size(), "chunk size %d", chunk)
		require.True(t, bytes.Equal(want, c.ToBytes()), "chunk size %d", chunk)
		require.True(t, c.EqualBytes(want))
	}
}

func TestAppendBufferContract(t *testing.T) {
	c := &Chain{}
	span := c.AppendBuffer(10, 0, 100)
	require.GreaterOrEqual(t, len(span), 10)
	require.LessOrEqual(t, len(span), 100)
	copy(span, mkdata(len(span)))
	assert.Equal(t, len(span), c.Size())

	// Unused room claimed by the span is returned with RemoveSuffix.
	c.RemoveSuffix(c.Size() - 10)
	assert.Equal(t, 10, c.Size())
	assert.True(t, bytes.Equal(mkdata(len(span))[:10], c.ToBytes()))
	checkInvariants(t, c)
}

func TestAppendBufferZeroMinLength(t *testing.T) {
	c := &Chain{}
	c.Append(mkdata(300))
	shared := c.blocks.back()
	shared.Ref() // simulate another owner; the block must not grow in place
	span := c.AppendBuffer(0, 0, 100)
	assert.Empty(t, span, "no room may be claimed in a shared block for minLength 0")
	shared.Unref()
}

func TestTinyBlocksMergeOnConcatenation(t *testing.T) {
	opts := Options{MinBlockSize: 16}
	a := &Chain{}
	a.Append([]byte("abc"), Options{SizeHint: 100, MinBlockSize: 16})
	require.Equal(t, 1, a.blocks.length(), "hinted append should use a block")

	b := &Chain{}
	b.Append([]byte("de"), Options{SizeHint: 100, MinBlockSize: 16})
	require.Equal(t, 1, b.blocks.length())

	a.AppendChain(b, opts)
	assert.Equal(t, "abcde", a.String())
	assert.Equal(t, 1, a.blocks.length(), "two tiny boundary blocks should merge")
	assert.Equal(t, "de", b.String(), "sharing append must not change the source")
	checkInvariants(t, a)
	checkInvariants(t, b)
}

func TestCopyOnWriteSharing(t *testing.T) {
	data := mkdata(400)
	c1 := FromOwned(append([]byte(nil), data...))
	require.Equal(t, 1, c1.blocks.length())
	require.EqualValues(t, 1, c1.blocks.front().rc.Get())

	c2 := c1.Clone()
	assert.EqualValues(t, 2, c1.blocks.front().rc.Get())
	assert.Same(t, c1.blocks.front(), c2.blocks.front())

	// Growing one chain must not disturb the other.
	c2.Append(mkdata(100))
	assert.True(t, c1.EqualBytes(data))
	assert.Equal(t, 500, c2.Size())

	// Shrinking into a shared block must not mutate it.
	c2.RemoveSuffix(150)
	assert.True(t, c1.EqualBytes(data))
	assert.True(t, c2.EqualBytes(data[:350]))
	checkInvariants(t, c1)
	checkInvariants(t, c2)
}

func TestAppendChainMoveTransfersBlocks(t *testing.T) {
	src := FromOwned(mkdata(500))
	b := src.blocks.front()
	require.EqualValues(t, 1, b.rc.Get())

	dest := &Chain{}
	dest.AppendChainMove(src)
	assert.True(t, src.Empty(), "moved-from chain must be empty")
	assert.Equal(t, 0, src.blocks.length())
	assert.True(t, dest.EqualBytes(mkdata(500)))
	assert.EqualValues(t, 1, b.rc.Get(),
		"a move transfers ownership without adding references")
	checkInvariants(t, dest)
}

func TestAppendChainSharesBlocks(t *testing.T) {
	src := FromOwned(mkdata(500))
	b := src.blocks.front()

	dest := &Chain{}
	dest.AppendChain(src)
	assert.True(t, src.EqualBytes(mkdata(500)), "shared source keeps its bytes")
	assert.EqualValues(t, 2, b.rc.Get())
	assert.True(t, dest.EqualBytes(mkdata(500)))
}

func TestPrependChainMove(t *testing.T) {
	dest := FromOwned(mkdata(300))
	src := FromOwned(bytes.Repeat([]byte("x"), 300))
	dest.PrependChainMove(src)
	assert.True(t, src.Empty())
	want := append(bytes.Repeat([]byte("x"), 300), mkdata(300)...)
	assert.True(t, dest.EqualBytes(want))
	checkInvariants(t, dest)
}

func TestCompareIgnoresLayout(t *testing.T) {
	data := mkdata(600)

	flat := FromBytes(data)
	adopted := FromOwned(append([]byte(nil), data...))
	piecewise := &Chain{}
	for i := 0; i < len(data); i += 37 {
		piecewise.Append(data[i:min(i+37, len(data))])
	}
	moved := &Chain{}
	moved.AppendChainMove(flat.Clone())

	for _, c := range []*Chain{flat, adopted, piecewise, moved} {
		assert.Equal(t, 0, flat.Compare(c))
		assert.True(t, flat.Equal(c))
		assert.Equal(t, 0, c.CompareBytes(data))
	}
}

func TestCompareTotalOrder(t *testing.T) {
	values := [][]byte{
		nil,
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		[]byte("abd"),
		[]byte("b"),
		mkdata(600),
	}
	mk := func(data []byte, layout int) *Chain {
		switch layout {
		case 0:
			return FromBytes(data)
		case 1:
			c := &Chain{}
			for i := range data {
				c.Append(data[i : i+1])
			}
			return c
		default:
			return FromOwned(append([]byte(nil), data...))
		}
	}
	for i, a := range values {
		for j, b := range values {
			want := bytes.Compare(a, b)
			for la := 0; la < 3; la++ {
				for lb := 0; lb < 3; lb++ {
					got := mk(a, la).Compare(mk(b, lb))
					require.Equal(t, want, got,
						"values %d vs %d, layouts %d vs %d", i, j, la, lb)
				}
			}
		}
	}
}

func TestRemoveSuffixAcrossBlocks(t *testing.T) {
	for _, remove := range []int{0, 1, 255, 256, 300, 500, 799, 800} {
		c := &Chain{}
		want := mkdata(800)
		for i := 0; i < 800; i += 200 {
			c.AppendOwned(append([]byte(nil), want[i:i+200]...))
		}
		c.RemoveSuffix(remove)
		require.Equal(t, 800-remove, c.Size(), "remove %d", remove)
		require.True(t, c.EqualBytes(want[:800-remove]), "remove %d", remove)
		checkInvariants(t, c)
	}
}

func TestRemovePrefixAcrossBlocks(t *testing.T) {
	for _, remove := range []int{0, 1, 255, 256, 300, 500, 799, 800} {
		c := &Chain{}
		want := mkdata(800)
		for i := 0; i < 800; i += 200 {
			c.AppendOwned(append([]byte(nil), want[i:i+200]...))
		}
		c.RemovePrefix(remove)
		require.Equal(t, 800-remove, c.Size(), "remove %d", remove)
		require.True(t, c.EqualBytes(want[remove:]), "remove %d", remove)
		checkInvariants(t, c)
	}
}

func TestRemovePrefixShortData(t *testing.T) {
	c := FromBytes([]byte("abcdefgh"))
	c.RemovePrefix(3)
	assert.Equal(t, "defgh", c.String())
	c.RemoveSuffix(2)
	assert.Equal(t, "def", c.String())
}

func TestRemoveFromSharedBlockLeavesItIntact(t *testing.T) {
	want := mkdata(1000)
	c1 := FromOwned(append([]byte(nil), want...))
	c2 := c1.Clone()

	c2.RemovePrefix(300)
	assert.True(t, c1.EqualBytes(want), "removal through a copy must not mutate shared bytes")
	assert.True(t, c2.EqualBytes(want[300:]))
	require.Equal(t, 1, c2.blocks.length())
	assert.True(t, c2.blocks.front().isExternal(),
		"large remainder of a shared block should be a view, not a copy")
	checkInvariants(t, c1)
	checkInvariants(t, c2)
}

func TestRepeatedRemovalsThroughSharedView(t *testing.T) {
	want := mkdata(2000)
	c := FromOwned(append([]byte(nil), want...))
	orig := c.Clone()

	// The first removal through the shared block leaves a substring view;
	// the second shrinks that view in place while it is unique; the third,
	// through another clone, rebuilds a view over the same root.
	c.RemovePrefix(300)
	c.RemovePrefix(100)
	mid := c.Clone()
	c.RemovePrefix(100)
	assert.True(t, c.EqualBytes(want[500:]))
	assert.True(t, mid.EqualBytes(want[400:]))
	assert.True(t, orig.EqualBytes(want))
	checkInvariants(t, c)
	checkInvariants(t, mid)
	checkInvariants(t, orig)

	// Trimming the other end of the rebuilt view must honor both bounds.
	c.RemoveSuffix(700)
	assert.True(t, c.EqualBytes(want[500:1300]))
	checkInvariants(t, c)

	// Same sequence from the suffix side.
	s := orig.Clone()
	s.RemoveSuffix(300)
	s.RemoveSuffix(100)
	tail := s.Clone()
	s.RemoveSuffix(100)
	assert.True(t, s.EqualBytes(want[:1500]))
	assert.True(t, tail.EqualBytes(want[:1600]))
	checkInvariants(t, s)
	checkInvariants(t, tail)
}

func TestRemovalsAgainstReferenceSlice(t *testing.T) {
	want := mkdata(4000)
	c := FromOwned(append([]byte(nil), want...))
	ref := want
	var pinned []*Chain
	for i := 0; c.Size() > 0; i++ {
		// Clones on most steps keep blocks shared, so removals alternate
		// between in-place view shrinks and fresh views of the root.
		if i%3 != 0 {
			pinned = append(pinned, c.Clone())
		}
		if i%2 == 0 {
			n := min(317, c.Size())
			c.RemovePrefix(n)
			ref = ref[n:]
		} else {
			n := min(211, c.Size())
			c.RemoveSuffix(n)
			ref = ref[:len(ref)-n]
		}
		require.True(t, c.EqualBytes(ref), "step %d", i)
		checkInvariants(t, c)
	}
	for _, p := range pinned {
		p.Clear()
	}
}

func TestFlatten(t *testing.T) {
	c := &Chain{}
	want := mkdata(900)
	for i := 0; i < 900; i += 300 {
		c.AppendOwned(append([]byte(nil), want[i:i+300]...))
	}
	require.Greater(t, c.blocks.length(), 1)

	flat := c.Flatten()
	assert.True(t, bytes.Equal(want, flat))
	assert.Equal(t, 1, c.blocks.length())
	assert.True(t, c.EqualBytes(want))
	checkInvariants(t, c)

	// Flattening again is a no-op returning the same view.
	assert.True(t, bytes.Equal(want, c.Flatten()))
}

func TestIntoBytesStealsAdoptedBuffer(t *testing.T) {
	data := mkdata(1000)
	c := FromOwned(data)
	out := c.IntoBytes()
	assert.True(t, c.Empty())
	require.Len(t, out, 1000)
	assert.Same(t, &data[0], &out[0], "a sole adopted buffer should be returned without copying")
}

func TestIntoBytesCopiesSharedBlocks(t *testing.T) {
	data := mkdata(1000)
	c1 := FromOwned(append([]byte(nil), data...))
	c2 := c1.Clone()
	out := c2.IntoBytes()
	assert.True(t, bytes.Equal(data, out))
	assert.True(t, c2.Empty())
	assert.True(t, c1.EqualBytes(data), "shared blocks must be copied out, not stolen")
}

func TestAppendOwnedCopiesSmallSlices(t *testing.T) {
	src := []byte("hello world")
	c := &Chain{}
	c.AppendOwned(src)
	src[0] = 'X'
	assert.Equal(t, "hello world", c.String(), "short adopted slices are copied")
}

func TestClearReusesUniqueBlock(t *testing.T) {
	c := FromBytes(mkdata(500))
	require.Equal(t, 1, c.blocks.length())
	b := c.blocks.front()
	c.Clear()
	assert.True(t, c.Empty())
	require.Equal(t, 1, c.blocks.length())
	assert.Same(t, b, c.blocks.front(), "a uniquely owned block allocation survives Clear")
	c.Append(mkdata(100))
	assert.Same(t, b, c.blocks.front())
	checkInvariants(t, c)
}

func TestPositionLookup(t *testing.T) {
	c := &Chain{}
	sizes := []int{300, 500, 400, 600}
	var want []byte
	for _, n := range sizes {
		chunk := mkdata(n)
		c.AppendOwned(append([]byte(nil), chunk...))
		want = append(want, chunk...)
	}
	require.Equal(t, len(sizes), c.blocks.length())

	for _, pos := range []int{0, 1, 299, 300, 799, 800, 1199, 1200, 1799} {
		it, off := c.Position(pos)
		data := it.Bytes()
		require.Less(t, off, len(data), "pos %d", pos)
		assert.Equal(t, want[pos], data[off], "pos %d", pos)
	}

	it, off := c.Position(c.Size())
	assert.Equal(t, 0, off)
	assert.False(t, it.Next(), "position at Size() is exhausted")
}

func TestPositionShortData(t *testing.T) {
	c := FromBytes([]byte("abcde"))
	it, off := c.Position(3)
	assert.Equal(t, byte('d'), it.Bytes()[off])
}

func TestBlockIteratorPinOutlivesChain(t *testing.T) {
	c := FromOwned(mkdata(400))
	it := c.Blocks()
	require.True(t, it.Next())
	pinned := it.Pin()
	c.Clear()
	assert.True(t, bytes.Equal(mkdata(400), pinned.Bytes()))
	pinned.Drop()
	assert.Zero(t, pinned.Len())
}

func TestAppendRangeTo(t *testing.T) {
	data := mkdata(1000)
	c := FromOwned(append([]byte(nil), data...))
	it := c.Blocks()
	require.True(t, it.Next())

	small := &Chain{}
	it.AppendRangeTo(10, 20, small)
	assert.True(t, small.EqualBytes(data[10:20]))

	large := &Chain{}
	it.AppendRangeTo(100, 900, large)
	assert.True(t, large.EqualBytes(data[100:900]))
	require.Equal(t, 1, large.blocks.length())
	assert.True(t, large.blocks.front().isExternal(),
		"a long range should be shared through a view")
	assert.EqualValues(t, 2, c.blocks.front().rc.Get(),
		"the view keeps a reference to the source block")

	large.Clear()
	assert.EqualValues(t, 1, c.blocks.front().rc.Get(),
		"dropping the view releases the source block")

	assert.Panics(t, func() { it.AppendRangeTo(-1, 10, small) })
	assert.Panics(t, func() { it.AppendRangeTo(20, 10, small) })
	assert.Panics(t, func() { it.AppendRangeTo(0, 1001, small) })
	assert.Panics(t, func() { it.PrependRangeTo(900, 1001, small) })
}

func TestSharedBlocksCountedOnceInMemoryEstimate(t *testing.T) {
	c1 := FromOwned(mkdata(10000))
	c2 := c1.Clone()

	single := c1.EstimateMemory()
	est := memsize.New()
	c1.RegisterSubobjects(est)
	c2.RegisterSubobjects(est)
	combined := est.Total()
	assert.Less(t, combined, 2*single,
		"a block shared by two chains must be charged once")
	assert.GreaterOrEqual(t, combined, 10000)
}

func TestDumpStructure(t *testing.T) {
	var sb strings.Builder
	c := FromOwned(mkdata(400))
	c.Append(mkdata(20))
	c.DumpStructure(&sb)
	out := sb.String()
	assert.Contains(t, out, "chain {")
	assert.Contains(t, out, "size: 420")
	assert.Contains(t, out, "block {")
}

type testOwner struct {
	data     []byte
	released int
}

func (o *testOwner) Bytes() []byte { return o.data }
func (o *testOwner) Release()      { o.released++ }

func TestExternalOwnerReleasedOnce(t *testing.T) {
	owner := &testOwner{data: mkdata(5000)}
	bl := NewExternal(owner)

	c1 := &Chain{}
	c2 := &Chain{}
	bl.AppendTo(c1)
	bl.AppendTo(c2)
	bl.Drop()
	assert.Equal(t, 0, owner.released)
	assert.True(t, c1.EqualBytes(owner.data))

	c1.Clear()
	assert.Equal(t, 0, owner.released)
	c2.Clear()
	assert.Equal(t, 1, owner.released, "the last drop releases the owner exactly once")
}

func TestExternalViewReleasesRoot(t *testing.T) {
	owner := &testOwner{data: mkdata(5000)}
	bl := NewExternal(owner)
	c := &Chain{}
	bl.AppendTo(c)
	bl.Drop()

	c.RemovePrefix(1000)
	c.RemoveSuffix(1000)
	assert.True(t, c.EqualBytes(owner.data[1000:4000]))
	assert.Equal(t, 0, owner.released)

	c.Clear()
	assert.Equal(t, 1, owner.released,
		"dropping the last view releases the root owner")
}

func TestRemoveSuffixPanicsBeyondSize(t *testing.T) {
	c := FromBytes([]byte("abc"))
	assert.Panics(t, func() { c.RemoveSuffix(4) })
	assert.Panics(t, func() { c.RemovePrefix(4) })
}

func TestAppendBufferPanicsOnBadRange(t *testing.T) {
	c := &Chain{}
	assert.Panics(t, func() { c.AppendBuffer(10, 0, 5) })
	assert.Panics(t, func() { c.PrependBuffer(10, 0, 5) })
}
