// Package memsize estimates the memory footprint of a graph of owned
// objects. Shared nodes (blocks referenced by several chains) are counted
// once: callers register each node by identity before adding its footprint.
package memsize

// Estimator accumulates a best-effort memory estimate. The zero value is
// not usable; call New.
type Estimator struct {
	total int
	seen  map[any]struct{}
}

// New returns an empty Estimator.
func New() *Estimator {
	return &Estimator{seen: make(map[any]struct{})}
}

// RegisterNode records a node by identity and reports whether it was seen
// for the first time. Callers should only add the node's footprint when
// RegisterNode returns true. The key is typically a pointer to the node.
func (e *Estimator) RegisterNode(key any) bool {
	if key == nil {
		return false
	}
	if _, ok := e.seen[key]; ok {
		return false
	}
	e.seen[key] = struct{}{}
	return true
}

// RegisterMemory adds n bytes to the estimate.
func (e *Estimator) RegisterMemory(n int) { e.total += n }

// Total returns the accumulated estimate in bytes.
func (e *Estimator) Total() int { return e.total }
