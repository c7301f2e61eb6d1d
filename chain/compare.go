package chain

import "bytes"

// Compare lexicographically compares the byte contents of c and other,
// returning -1, 0 or 1. Block boundaries do not affect the result: chains
// with equal bytes in different layouts compare equal. The comparison
// walks both chains in lock step and copies nothing.
func (c *Chain) Compare(other *Chain) int {
	x := c.Blocks()
	y := other.Blocks()
	var xb, yb []byte
	for {
		for len(xb) == 0 && x.Next() {
			xb = x.Bytes()
		}
		for len(yb) == 0 && y.Next() {
			yb = y.Bytes()
		}
		if len(xb) == 0 || len(yb) == 0 {
			break
		}
		n := min(len(xb), len(yb))
		if r := bytes.Compare(xb[:n], yb[:n]); r != 0 {
			return r
		}
		xb, yb = xb[n:], yb[n:]
	}
	switch {
	case len(xb) > 0:
		return 1
	case len(yb) > 0:
		return -1
	default:
		return 0
	}
}

// CompareBytes lexicographically compares the chain's contents with other.
func (c *Chain) CompareBytes(other []byte) int {
	x := c.Blocks()
	var xb []byte
	for {
		for len(xb) == 0 && x.Next() {
			xb = x.Bytes()
		}
		if len(xb) == 0 || len(other) == 0 {
			break
		}
		n := min(len(xb), len(other))
		if r := bytes.Compare(xb[:n], other[:n]); r != 0 {
			return r
		}
		xb, other = xb[n:], other[n:]
	}
	switch {
	case len(xb) > 0:
		return 1
	case len(other) > 0:
		return -1
	default:
		return 0
	}
}

// Equal reports whether c and other hold the same bytes.
func (c *Chain) Equal(other *Chain) bool {
	return c.size == other.size && c.Compare(other) == 0
}

// EqualBytes reports whether the chain's contents equal other.
func (c *Chain) EqualBytes(other []byte) bool {
	return c.size == len(other) && c.CompareBytes(other) == 0
}
