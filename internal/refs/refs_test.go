package refs

import "testing"

type node struct {
	Count
	released bool
}

func TestCountZeroValueHasOneOwner(t *testing.T) {
	var c Count
	if !c.HasUniqueOwner() {
		t.Fatal("zero Count should report a unique owner")
	}
	if got := c.Get(); got != 1 {
		t.Fatalf("Get() = %d, want 1", got)
	}
}

func TestCountRefUnref(t *testing.T) {
	var c Count
	c.Ref()
	if c.HasUniqueOwner() {
		t.Fatal("two owners reported as unique")
	}
	if c.Unref() {
		t.Fatal("Unref with two owners reported last")
	}
	if !c.HasUniqueOwner() {
		t.Fatal("back to one owner, not reported unique")
	}
	if !c.Unref() {
		t.Fatal("Unref of the last owner not reported")
	}
}

func TestPtrOwnAndShare(t *testing.T) {
	n := &node{}
	p := Own(n)
	if !p.IsUnique() {
		t.Fatal("sole owner not unique")
	}
	q := p.Share()
	if p.IsUnique() || q.IsUnique() {
		t.Fatal("shared pointer reported unique")
	}
	if q.Drop() {
		t.Fatal("first Drop reported last")
	}
	if !p.Drop() {
		t.Fatal("second Drop not reported last")
	}
	if !p.IsEmpty() {
		t.Fatal("dropped pointer not empty")
	}
}

func TestPtrResetWithReusesUniqueNode(t *testing.T) {
	n := &node{}
	p := Own(n)
	var made bool
	p.ResetWith(
		func(old *node) { old.released = false },
		func() *node { made = true; return &node{} },
	)
	if made {
		t.Fatal("make called although the node was unique")
	}
	if p.Get() != n {
		t.Fatal("unique node not reused in place")
	}

	q := p.Share()
	p.ResetWith(
		func(old *node) { t.Fatal("assign called on a shared node") },
		func() *node { return &node{} },
	)
	if p.Get() == n {
		t.Fatal("shared node reused in place")
	}
	if !q.Drop() {
		t.Fatal("q should hold the last reference to the original node")
	}
	p.Drop()
}

func TestPtrRelease(t *testing.T) {
	n := &node{}
	p := Own(n)
	got := p.Release()
	if got != n || !p.IsEmpty() {
		t.Fatal("Release should hand over the node and empty the pointer")
	}
	if !got.Unref() {
		t.Fatal("released node should still carry its reference")
	}
}
