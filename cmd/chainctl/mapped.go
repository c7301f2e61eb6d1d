package main

import (
	"fmt"
	"io"

	"github.com/ropekit/ropekit/chain"
	"github.com/ropekit/ropekit/internal/mmfile"
)

// mappedFile exposes a memory-mapped file as externally owned chain bytes.
// The mapping is released when the last block referring to it is dropped.
type mappedFile struct {
	path    string
	data    []byte
	cleanup func() error
}

func mapFile(path string) (*mappedFile, error) {
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return nil, err
	}
	return &mappedFile{path: path, data: data, cleanup: cleanup}, nil
}

func (m *mappedFile) Bytes() []byte { return m.data }

func (m *mappedFile) Release() {
	if err := m.cleanup(); err != nil {
		printVerbose("unmap %s: %v\n", m.path, err)
	}
}

func (m *mappedFile) DumpStructure(w io.Writer) {
	fmt.Fprintf(w, "[mmap] { path: %q size: %d }", m.path, len(m.data))
}

// chainFromFile maps path and wraps it as a single-block chain, split into
// blockSize pieces when blockSize > 0.
func chainFromFile(path string, blockSize int) (*chain.Chain, error) {
	m, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	bl := chain.NewExternal(m)
	defer bl.Drop()
	c := &chain.Chain{}
	if blockSize <= 0 || blockSize >= bl.Len() {
		bl.AppendTo(c)
		return c, nil
	}
	for lo := 0; lo < bl.Len(); lo += blockSize {
		bl.AppendRangeTo(lo, min(lo+blockSize, bl.Len()), c)
	}
	return c, nil
}
