package memsize

import "testing"

func TestRegisterNodeDeduplicates(t *testing.T) {
	e := New()
	n1 := new(int)
	n2 := new(int)
	if !e.RegisterNode(n1) {
		t.Fatal("first registration should report a new node")
	}
	if e.RegisterNode(n1) {
		t.Fatal("second registration of the same node should be ignored")
	}
	if !e.RegisterNode(n2) {
		t.Fatal("a distinct node should register as new")
	}
	if e.RegisterNode(nil) {
		t.Fatal("nil should never register")
	}
}

func TestTotalAccumulates(t *testing.T) {
	e := New()
	e.RegisterMemory(128)
	e.RegisterMemory(64)
	if got := e.Total(); got != 192 {
		t.Fatalf("Total() = %d, want 192", got)
	}
}
