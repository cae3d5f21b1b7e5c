// Package breakpointtest provides fake ThreadContext/ThreadHandleCache
// implementations so breakpoint.Manager can be tested without a live OS
// thread, mirroring plugin/plugintest's FakeMemory.
package breakpointtest

import (
	"context"
	"sync"

	"github.com/PHTNCx64/vertex/breakpoint"
)

// FakeThreadContext records the last DebugRegisters written per thread
// and the suspend/resume call sequence, so tests can assert Manager
// applies slots to every known thread rather than just one.
type FakeThreadContext struct {
	mu        sync.Mutex
	Regs      map[uint32]breakpoint.DebugRegisters
	Suspended map[uint32]int
	Resumed   map[uint32]int
	FailWrite map[uint32]bool
}

func NewFakeThreadContext() *FakeThreadContext {
	return &FakeThreadContext{
		Regs:      map[uint32]breakpoint.DebugRegisters{},
		Suspended: map[uint32]int{},
		Resumed:   map[uint32]int{},
		FailWrite: map[uint32]bool{},
	}
}

func (f *FakeThreadContext) ReadDebugRegisters(ctx context.Context, threadID uint32) (breakpoint.DebugRegisters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Regs[threadID], nil
}

func (f *FakeThreadContext) WriteDebugRegisters(ctx context.Context, threadID uint32, regs breakpoint.DebugRegisters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrite[threadID] {
		return context.DeadlineExceeded
	}
	f.Regs[threadID] = regs
	return nil
}

func (f *FakeThreadContext) Suspend(ctx context.Context, threadID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Suspended[threadID]++
	return nil
}

func (f *FakeThreadContext) Resume(ctx context.Context, threadID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resumed[threadID]++
	return nil
}

// FakeThreadHandleCache is a fixed roster of thread IDs.
type FakeThreadHandleCache struct {
	IDs []uint32
}

func (f *FakeThreadHandleCache) ThreadIDs() []uint32 { return f.IDs }

var (
	_ breakpoint.ThreadContext     = (*FakeThreadContext)(nil)
	_ breakpoint.ThreadHandleCache = (*FakeThreadHandleCache)(nil)
)
