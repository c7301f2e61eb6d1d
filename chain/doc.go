// Package chain implements a byte sequence stored as a list of
// reference-counted blocks.
//
// A Chain behaves like a contiguous []byte at the API level, but appending
// and prepending do not move existing data, concatenating chains shares
// their blocks instead of copying, and foreign memory (mmapped files,
// caller-owned buffers) can be wrapped as blocks with zero copies.
// Sequences of at most 16 bytes are stored inline without any allocation.
//
// Blocks are immutable while shared. Mutations happen in place only on
// blocks with a single owner, so logically distinct chains never observe
// each other's writes. Block boundaries are an implementation detail
// tuned by Options; only the byte content is part of a chain's observable
// value, and Compare and Equal ignore layout entirely.
//
// Chains are not safe for concurrent mutation. Concurrent reads are safe,
// including reads through other chains sharing the same blocks.
package chain
