// Package plugintest provides an in-process fake implementation of
// plugin.MemoryReader backed by a flat []byte arena, so scanner and
// breakpoint tests can drive real read/write paths without a live OS
// debuggee - mirroring how golang-debug's own tests exercise gosym/dwarf
// parsing against fixture binaries rather than a live process.
package plugintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/PHTNCx64/vertex/plugin"
)

// FakeMemory is a single contiguous region starting at Base, backed by an
// in-process byte slice. It implements plugin.MemoryReader.
type FakeMemory struct {
	mu        sync.Mutex
	Base      uint64
	data      []byte
	FailReads map[uint64]bool // absolute read start addresses that force a read error
	pointer   int
}

// NewFakeMemory creates a FakeMemory region of the given size at base,
// all zero-initialized.
func NewFakeMemory(base uint64, size int) *FakeMemory {
	return &FakeMemory{Base: base, data: make([]byte, size), FailReads: map[uint64]bool{}, pointer: 8}
}

// Write seeds bytes into the fake region at an absolute address, for test
// setup (not part of the MemoryReader interface - this simulates "the
// target process already contains this data").
func (f *FakeMemory) Write(address uint64, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off := address - f.Base
	copy(f.data[off:], data)
}

func (f *FakeMemory) ReadMemory(ctx context.Context, address uint64, out []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads[address] {
		return fmt.Errorf("fake read failure injected at %#x", address)
	}
	if address < f.Base || address+uint64(len(out)) > f.Base+uint64(len(f.data)) {
		return fmt.Errorf("read out of bounds: addr=%#x len=%d", address, len(out))
	}
	off := address - f.Base
	copy(out, f.data[off:off+uint64(len(out))])
	return nil
}

func (f *FakeMemory) WriteMemory(ctx context.Context, address uint64, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if address < f.Base || address+uint64(len(data)) > f.Base+uint64(len(f.data)) {
		return fmt.Errorf("write out of bounds: addr=%#x len=%d", address, len(data))
	}
	off := address - f.Base
	copy(f.data[off:], data)
	return nil
}

func (f *FakeMemory) EnumerateRegions(ctx context.Context) ([]plugin.Region, error) {
	return []plugin.Region{{Base: f.Base, Size: uint64(len(f.data))}}, nil
}

func (f *FakeMemory) KillProcess(ctx context.Context) error          { return nil }
func (f *FakeMemory) IsProcessValid(ctx context.Context) (bool, error) { return true, nil }
func (f *FakeMemory) ListProcesses(ctx context.Context) ([]plugin.ProcessInfo, error) {
	return []plugin.ProcessInfo{{PID: 1, Name: "fake"}}, nil
}
func (f *FakeMemory) OpenProcess(ctx context.Context, pid uint32) error { return nil }
func (f *FakeMemory) PointerSize(ctx context.Context) (int, error)     { return 8, nil }

var _ plugin.MemoryReader = (*FakeMemory)(nil)
