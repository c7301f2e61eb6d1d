package chain

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/ropekit/ropekit/pkg/memsize"
)

var (
	chainHeaderSize = int(unsafe.Sizeof(Chain{}))
	ptrSlotSize     = int(unsafe.Sizeof((*block)(nil)) + unsafe.Sizeof(int(0)))
)

// EstimateMemory returns an estimate of the chain's total memory
// footprint, counting each shared block once.
func (c *Chain) EstimateMemory() int {
	est := memsize.New()
	est.RegisterMemory(chainHeaderSize)
	c.RegisterSubobjects(est)
	return est.Total()
}

// RegisterSubobjects adds the chain's owned and shared memory to est,
// excluding the Chain header itself. Registering several chains against
// one estimator counts blocks they share once.
func (c *Chain) RegisterSubobjects(est *memsize.Estimator) {
	if !c.blocks.inline() {
		est.RegisterMemory(len(c.blocks.arr) * ptrSlotSize)
	}
	for _, b := range c.blocks.live() {
		b.registerShared(est)
	}
}

// DumpStructure writes a human-readable description of the chain's block
// layout for debugging.
func (c *Chain) DumpStructure(w io.Writer) {
	fmt.Fprintf(w, "chain {\n  size: %d memory: %d\n", c.size, c.EstimateMemory())
	if c.blocks.length() == 0 && c.size > 0 {
		fmt.Fprintf(w, "  short_data { size: %d }\n", c.size)
	}
	for _, b := range c.blocks.live() {
		fmt.Fprint(w, "  ")
		b.dumpTo(w)
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "}")
}
