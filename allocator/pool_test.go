package allocator

import "testing"

type record struct {
	Address uint64
	Value   [4]byte
}

func TestPoolAllocateAndDeallocate(t *testing.T) {
	p, err := NewPool[record](4)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	slot, handle := p.Allocate()
	slot.Address = 0x1000
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}

	p.Deallocate(handle)
	if p.Len() != 0 {
		t.Fatalf("Len after Deallocate = %d, want 0", p.Len())
	}
}

func TestPoolGrowsNewBlockWhenFreeListEmpty(t *testing.T) {
	p, _ := NewPool[record](2)
	p.Allocate()
	p.Allocate()
	// third allocation must grow a new block transparently
	slot, _ := p.Allocate()
	if slot == nil {
		t.Fatal("expected non-nil slot from grown block")
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
}

func TestPoolReserveAvoidsMidBatchGrowth(t *testing.T) {
	p, _ := NewPool[record](8)
	p.Reserve(100)
	before := len(p.blocks)
	for i := 0; i < 100; i++ {
		p.Allocate()
	}
	if len(p.blocks) != before {
		t.Fatalf("Reserve should have pre-allocated enough blocks; grew from %d to %d", before, len(p.blocks))
	}
}

func TestPoolAllocateZeroesSlot(t *testing.T) {
	p, _ := NewPool[record](4)
	slot, handle := p.Allocate()
	slot.Address = 42
	p.Deallocate(handle)

	slot2, handle2 := p.Allocate()
	if handle2 != handle {
		t.Fatalf("expected LIFO free list reuse of handle %d, got %d", handle, handle2)
	}
	if slot2.Address != 0 {
		t.Fatalf("reused slot not zeroed, got Address=%d", slot2.Address)
	}
}

func TestPoolResetRebuildsFreeList(t *testing.T) {
	p, _ := NewPool[record](4)
	p.Allocate()
	p.Allocate()
	p.Reset()
	if p.Len() != 0 {
		t.Fatalf("Len after Reset = %d, want 0", p.Len())
	}
}

func TestNewPoolRejectsNonPositiveBlockSize(t *testing.T) {
	if _, err := NewPool[record](0); err == nil {
		t.Fatal("expected error for blockObjects=0")
	}
}
