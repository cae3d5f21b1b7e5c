// Package allocator provides the bulk-lifetime Arena and fixed-size Pool
// allocators the scanner's hot paths use to avoid a per-match heap
// allocation: a chunked bump allocator and a fixed-size free-list
// allocator. Chunks are plain []byte slices managed by the runtime GC,
// and the pool is a generic free list over value slots rather than raw
// pointers. Per-object destruction is unsupported; that constraint is
// deliberate.
package allocator

import (
	"fmt"
)

const defaultChunkSize = 64 * 1024

// Arena is a monotonic bump allocator backed by a list of chunks. It is
// single-threaded per instance; callers pin one Arena to one worker.
type Arena struct {
	chunkSize int
	chunks    []*arenaChunk
}

type arenaChunk struct {
	data []byte
	used int
}

// NewArena creates an Arena whose chunks default to defaultChunkSize bytes,
// growing as needed for larger single allocations.
func NewArena() *Arena {
	return &Arena{chunkSize: defaultChunkSize}
}

// Allocate returns a zeroed byte slice of size bytes, aligned to alignment
// (which must be a power of two), carved out of the arena's current chunk
// or a freshly created one.
func (a *Arena) Allocate(size int, alignment int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("allocator: negative size %d", size)
	}
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("allocator: alignment %d is not a power of two", alignment)
	}

	if len(a.chunks) > 0 {
		c := a.chunks[len(a.chunks)-1]
		if buf, ok := c.tryAllocate(size, alignment); ok {
			return buf, nil
		}
	}

	newSize := a.chunkSize
	if requested := size + alignment; requested > newSize {
		newSize = requested
	}
	c, err := newArenaChunk(newSize)
	if err != nil {
		return nil, fmt.Errorf("allocator: out of memory creating %d-byte chunk: %w", newSize, err)
	}
	a.chunks = append(a.chunks, c)

	buf, ok := c.tryAllocate(size, alignment)
	if !ok {
		return nil, fmt.Errorf("allocator: freshly created %d-byte chunk cannot satisfy %d-byte request at alignment %d", newSize, size, alignment)
	}
	return buf, nil
}

func newArenaChunk(size int) (*arenaChunk, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid chunk size %d", size)
	}
	return &arenaChunk{data: make([]byte, size)}, nil
}

func (c *arenaChunk) tryAllocate(size, alignment int) ([]byte, bool) {
	aligned := alignUp(c.used, alignment)
	end := aligned + size
	if end > len(c.data) {
		return nil, false
	}
	c.used = end
	return c.data[aligned:end], true
}

func alignUp(offset, alignment int) int {
	return (offset + alignment - 1) &^ (alignment - 1)
}

// Reset zeros used bytes in every chunk and retains capacity for reuse,
// matching the original's "reset keeps chunks, zeros used region" contract.
func (a *Arena) Reset() {
	for _, c := range a.chunks {
		for i := 0; i < c.used; i++ {
			c.data[i] = 0
		}
		c.used = 0
	}
}

// ShrinkToFit drops every chunk but the first.
func (a *Arena) ShrinkToFit() {
	if len(a.chunks) > 1 {
		a.chunks = a.chunks[:1]
	}
}

// ClearAll destroys all chunks, returning the arena to its initial state.
func (a *Arena) ClearAll() {
	a.chunks = nil
}

// NumChunks reports how many chunks the arena currently holds, for tests
// and diagnostics.
func (a *Arena) NumChunks() int {
	return len(a.chunks)
}
