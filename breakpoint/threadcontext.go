package breakpoint

import "context"

// ThreadContext abstracts a single thread's debug-register file and
// suspend/resume control, so Manager's apply-all-hardware-slots loop is
// written once instead of once per native-vs-WoW64 variant: the native
// and WoW64 register-context calls are identical except for the
// GetThreadContext/Wow64GetThreadContext entry point and the
// DWORD-vs-uint64 DR7 width, a duality this interface erases.
type ThreadContext interface {
	ReadDebugRegisters(ctx context.Context, threadID uint32) (DebugRegisters, error)
	WriteDebugRegisters(ctx context.Context, threadID uint32, regs DebugRegisters) error
	Suspend(ctx context.Context, threadID uint32) error
	Resume(ctx context.Context, threadID uint32) error
}

// ThreadHandleCache is the set of threads a ThreadContext implementation
// currently has open handles for: applying a watchpoint to "all threads"
// needs a live roster, not just the thread that happened to hit the last
// event.
type ThreadHandleCache interface {
	ThreadIDs() []uint32
}

// maxDWordAddress is the largest address a WoW64 (32-bit) thread's Dr0-Dr3
// registers can hold. WriteDebugRegisters implementations for a WoW64
// thread must reject addresses above this rather than silently
// truncating them: a silently-wrong breakpoint address is worse than a
// clear error here.
const maxDWordAddress = 0xFFFFFFFF
