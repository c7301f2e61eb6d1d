// Package buf provides overflow-safe size arithmetic for byte-buffer
// bookkeeping. Block capacity heuristics multiply and add caller-supplied
// sizes, so every step that could overflow int goes through these helpers.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// SaturatingAdd adds two non-negative sizes, capping the result at max.
func SaturatingAdd(a, b, max int) int {
	sum, ok := AddOverflowSafe(a, b)
	if !ok || sum > max {
		return max
	}
	return sum
}

// SaturatingSub subtracts b from a, flooring the result at zero.
func SaturatingSub(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
