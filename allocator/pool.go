package allocator

import "fmt"

// Pool is a free-list allocator of fixed-size T slots. Slots come from
// growable blocks of blockObjects elements; a deallocated slot's index
// is pushed back onto the free list. Double-free is unchecked. Pool is
// single-threaded per instance; callers pin one Pool to one worker (the
// scanner pins one per result-batch worker).
type Pool[T any] struct {
	blockObjects int
	blocks       [][]T
	freeList     []int32 // indices into the flattened block space
}

// NewPool creates a Pool whose blocks each hold blockObjects elements.
func NewPool[T any](blockObjects int) (*Pool[T], error) {
	if blockObjects <= 0 {
		return nil, fmt.Errorf("allocator: blockObjects must be > 0, got %d", blockObjects)
	}
	return &Pool[T]{blockObjects: blockObjects}, nil
}

// Reserve pre-allocates enough blocks to satisfy at least n live slots
// without growing mid-batch, mirroring the original's ScanResult::reserve
// call before a scan loop starts.
func (p *Pool[T]) Reserve(n int) {
	for p.capacity() < n {
		p.addBlock()
	}
}

func (p *Pool[T]) capacity() int {
	return len(p.blocks) * p.blockObjects
}

func (p *Pool[T]) addBlock() {
	block := make([]T, p.blockObjects)
	base := int32(len(p.blocks) * p.blockObjects)
	p.blocks = append(p.blocks, block)
	for i := p.blockObjects - 1; i >= 0; i-- {
		p.freeList = append(p.freeList, base+int32(i))
	}
}

// slot returns a pointer to the pool-owned storage for a flattened index.
func (p *Pool[T]) slot(index int32) *T {
	block := int(index) / p.blockObjects
	offset := int(index) % p.blockObjects
	return &p.blocks[block][offset]
}

// Allocate pops the head of the free list, creating a new block if empty,
// and returns a pointer to the zero-valued slot plus an opaque handle used
// to Deallocate it later.
func (p *Pool[T]) Allocate() (*T, int32) {
	if len(p.freeList) == 0 {
		p.addBlock()
	}
	last := len(p.freeList) - 1
	idx := p.freeList[last]
	p.freeList = p.freeList[:last]
	slot := p.slot(idx)
	var zero T
	*slot = zero
	return slot, idx
}

// Deallocate returns a slot (identified by the handle Allocate returned)
// to the free list. Double-free is unchecked, matching the original.
func (p *Pool[T]) Deallocate(handle int32) {
	p.freeList = append(p.freeList, handle)
}

// Reset rebuilds the free list across all existing blocks, discarding any
// outstanding allocations.
func (p *Pool[T]) Reset() {
	p.freeList = p.freeList[:0]
	for b := len(p.blocks) - 1; b >= 0; b-- {
		base := int32(b * p.blockObjects)
		for i := p.blockObjects - 1; i >= 0; i-- {
			p.freeList = append(p.freeList, base+int32(i))
		}
	}
}

// Len reports how many slots are currently allocated (not on the free
// list).
func (p *Pool[T]) Len() int {
	return p.capacity() - len(p.freeList)
}
