package debugger

import (
	"context"
	"sync"

	"github.com/PHTNCx64/vertex/breakpoint"
	"github.com/PHTNCx64/vertex/dispatcher"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/registry"
	"github.com/PHTNCx64/vertex/verrors"
)

type tempBreakpoint struct {
	id   uint32
	kind tempBreakpointKind
}

// DebugLoop drives the attach/run/step/detach lifecycle of one process.
// It owns no OS state directly: every effect goes through
// plugin.DebuggerPlugin (event loop, resume/step commands) or
// breakpoint.Manager (breakpoint/watchpoint bookkeeping). A dedicated
// dispatcher.Debugger queue runs DebuggerPlugin.Run, which invokes
// DebugLoop's Callbacks synchronously on that one pinned thread; DebugLoop
// never calls back into DebuggerPlugin from inside a callback, returning
// a plugin.DebugAction instead (see Callbacks' doc comment).
type DebugLoop struct {
	dp     plugin.DebuggerPlugin
	mem    plugin.MemoryReader
	bpMgr  *breakpoint.Manager
	disasm plugin.Disassembler
	reg    *registry.Registry
	disp   *dispatcher.Dispatcher
	obs    Observer

	mu                sync.Mutex
	state             State
	pid               uint32
	ctx               context.Context
	attachPending     bool
	lastStoppedThread uint32
	tempBreakpoints   map[uint64]tempBreakpoint
	steppingOver      map[uint32]stepOverRecord
	expectingStep     map[uint32]bool
}

// New creates a DebugLoop. disasm may be nil, in which case StepOver
// always behaves like StepInto: telling a call apart from any other
// instruction requires decoding it, and without a disassembler that
// distinction is unavailable.
func New(dp plugin.DebuggerPlugin, mem plugin.MemoryReader, bpMgr *breakpoint.Manager, disasm plugin.Disassembler, reg *registry.Registry, disp *dispatcher.Dispatcher, obs Observer) *DebugLoop {
	return &DebugLoop{
		dp:              dp,
		mem:             mem,
		bpMgr:           bpMgr,
		disasm:          disasm,
		reg:             reg,
		disp:            disp,
		obs:             obs,
		state:           Detached,
		tempBreakpoints: make(map[uint64]tempBreakpoint),
		steppingOver:    make(map[uint32]stepOverRecord),
		expectingStep:   make(map[uint32]bool),
	}
}

func (l *DebugLoop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// setState transitions and fires OnStateChanged exactly once, and only
// when the state actually changes.
func (l *DebugLoop) setState(new State) {
	l.mu.Lock()
	old := l.state
	if old == new {
		l.mu.Unlock()
		return
	}
	l.state = new
	l.mu.Unlock()
	l.obs.fireStateChanged(old, new)
}

// Attach starts the debug loop for pid. A failed attach leaves the
// state at Detached and reports the error through Observer.OnError
// rather than changing state.
func (l *DebugLoop) Attach(ctx context.Context, pid uint32) error {
	l.mu.Lock()
	if l.state != Detached {
		l.mu.Unlock()
		return verrors.New("debugger.Attach", verrors.ResourceBusy, "already attached to a process")
	}
	l.mu.Unlock()

	if err := l.dp.Attach(ctx, pid); err != nil {
		wrapped := verrors.Wrap("debugger.Attach", verrors.IoFailed, err)
		l.obs.fireError(wrapped)
		return wrapped
	}

	l.mu.Lock()
	l.pid = pid
	l.ctx = ctx
	l.attachPending = true
	l.mu.Unlock()
	l.setState(Attached)

	callbacks := &plugin.Callbacks{
		OnAttached:      func(uint32) {},
		OnDetached:      func(uint32) { l.setState(Detached) },
		OnStateChanged:  func(string, string) {},
		OnError:         l.obs.fireError,
		OnBreakpointHit: l.handleBreakpointHit,
		OnSingleStep:    l.handleSingleStep,
		OnException:     l.handleException,
		OnWatchpointHit: func(ev plugin.WatchpointHitEvent) plugin.DebugAction { return plugin.ContinueUnhandled },
		OnCreateThread:  func(plugin.ThreadEvent) plugin.DebugAction { return plugin.ContinueExecution },
		OnExitThread:    func(plugin.ThreadEvent) plugin.DebugAction { return plugin.ContinueExecution },
		OnLoadModule:    func(plugin.ModuleEvent) plugin.DebugAction { return plugin.ContinueExecution },
		OnUnloadModule:  func(plugin.ModuleEvent) plugin.DebugAction { return plugin.ContinueExecution },
		OnOutputString: func(s string) plugin.DebugAction {
			if l.obs.OnOutputString != nil {
				l.obs.OnOutputString(s)
			}
			return plugin.ContinueExecution
		},
	}

	return l.disp.SubmitAsync(dispatcher.Debugger, 0, func() error {
		return l.dp.Run(ctx, callbacks)
	})
}

// Detach ends the debug loop from any state.
func (l *DebugLoop) Detach(ctx context.Context) error {
	if err := l.dp.Detach(ctx); err != nil {
		return verrors.Wrap("debugger.Detach", verrors.IoFailed, err)
	}
	l.setState(Detached)
	return nil
}

// Continue resumes a paused target. If the paused thread is stepping
// over a user software breakpoint, this performs the
// restore-byte-then-single-step half of that protocol instead of a
// plain resume; the re-insert happens on the following single-step
// exception.
func (l *DebugLoop) Continue(ctx context.Context, passException bool) error {
	l.mu.Lock()
	tid := l.lastStoppedThread
	rec, hasRec := l.steppingOver[tid]
	l.mu.Unlock()

	if hasRec && rec.kind == stepOverSoftwareBreakpoint {
		if err := l.bpMgr.StepOverBreakpoint(ctx, rec.breakpointID); err != nil {
			return err
		}
		if err := l.dp.Step(ctx, plugin.StepInto); err != nil {
			return verrors.Wrap("debugger.Continue", verrors.IoFailed, err)
		}
		l.setState(Stepping)
		return nil
	}

	if err := l.dp.Continue(ctx, passException); err != nil {
		return verrors.Wrap("debugger.Continue", verrors.IoFailed, err)
	}
	l.setState(Running)
	return nil
}

// Pause requests the target stop at its next opportunity.
func (l *DebugLoop) Pause(ctx context.Context) error {
	if err := l.dp.Pause(ctx); err != nil {
		return verrors.Wrap("debugger.Pause", verrors.IoFailed, err)
	}
	return nil
}

// StepInto sets the trap flag and resumes.
func (l *DebugLoop) StepInto(ctx context.Context, threadID uint32) error {
	l.mu.Lock()
	l.expectingStep[threadID] = true
	l.mu.Unlock()
	if err := l.dp.Step(ctx, plugin.StepInto); err != nil {
		return verrors.Wrap("debugger.StepInto", verrors.IoFailed, err)
	}
	l.setState(Stepping)
	return nil
}

// StepOver disassembles the current instruction; a call steps over it
// via a temp breakpoint at the fallthrough address, anything else acts
// as StepInto.
func (l *DebugLoop) StepOver(ctx context.Context, threadID uint32) error {
	if l.disasm == nil {
		return l.StepInto(ctx, threadID)
	}
	ip, err := l.dp.GetInstructionPointer(ctx, threadID)
	if err != nil {
		return verrors.Wrap("debugger.StepOver", verrors.IoFailed, err)
	}
	info, err := l.disasm.Decode(ctx, ip)
	if err != nil {
		return verrors.Wrap("debugger.StepOver", verrors.IoFailed, err)
	}
	if !info.IsCall {
		return l.StepInto(ctx, threadID)
	}
	return l.setTempBreakpointAndContinue(ctx, ip+uint64(info.Length), tempStepOver)
}

// StepOut reads the stack-top return address (width depends on the
// attached process's pointer size) and runs to it.
func (l *DebugLoop) StepOut(ctx context.Context, threadID uint32) error {
	sp, err := l.dp.GetStackPointer(ctx, threadID)
	if err != nil {
		return verrors.Wrap("debugger.StepOut", verrors.IoFailed, err)
	}
	buf := make([]byte, l.reg.PointerSize)
	if err := l.mem.ReadMemory(ctx, sp, buf); err != nil {
		return verrors.Wrap("debugger.StepOut", verrors.IoFailed, err)
	}
	var retAddr uint64
	if l.reg.PointerSize == 4 {
		retAddr = uint64(l.reg.ByteOrder.Uint32(buf))
	} else {
		retAddr = l.reg.ByteOrder.Uint64(buf)
	}
	return l.setTempBreakpointAndContinue(ctx, retAddr, tempStepOut)
}

// RunToAddress sets a temp breakpoint at addr and resumes.
func (l *DebugLoop) RunToAddress(ctx context.Context, addr uint64) error {
	return l.setTempBreakpointAndContinue(ctx, addr, tempRunToAddress)
}

func (l *DebugLoop) setTempBreakpointAndContinue(ctx context.Context, addr uint64, kind tempBreakpointKind) error {
	id, err := l.bpMgr.SetSoftwareBreakpoint(ctx, addr)
	if err != nil {
		return verrors.Wrap("debugger.setTempBreakpointAndContinue", verrors.IoFailed, err)
	}
	l.mu.Lock()
	l.tempBreakpoints[addr] = tempBreakpoint{id: id, kind: kind}
	l.mu.Unlock()
	if err := l.dp.Continue(ctx, false); err != nil {
		return verrors.Wrap("debugger.setTempBreakpointAndContinue", verrors.IoFailed, err)
	}
	l.setState(Stepping)
	return nil
}

// handleBreakpointHit classifies an INT3 exception: a pending attach
// trap, a temp breakpoint used for stepping, a user breakpoint, or an
// unrelated trap.
func (l *DebugLoop) handleBreakpointHit(ev plugin.BreakpointHitEvent) plugin.DebugAction {
	threadID, addr := ev.ThreadID, ev.Address

	l.mu.Lock()
	pending := l.attachPending
	l.attachPending = false
	l.mu.Unlock()
	if pending {
		return plugin.ContinueExecution
	}

	l.mu.Lock()
	tb, isTemp := l.tempBreakpoints[addr]
	if isTemp {
		delete(l.tempBreakpoints, addr)
	}
	l.mu.Unlock()
	if isTemp {
		l.bpMgr.RemoveBreakpoint(l.ctx, tb.id)
		l.dp.SetInstructionPointer(l.ctx, threadID, addr)
		l.mu.Lock()
		l.lastStoppedThread = threadID
		l.mu.Unlock()
		l.setState(Paused)
		l.obs.fireSingleStep(SingleStepEvent{ThreadID: threadID, Address: addr})
		return plugin.WaitForCommand
	}

	if bp, ok := l.bpMgr.LookupByAddress(addr); ok {
		if err := l.bpMgr.StepOverBreakpoint(l.ctx, bp.ID); err != nil {
			l.obs.fireError(verrors.Wrap("debugger.handleBreakpointHit", verrors.IoFailed, err))
		}
		l.dp.SetInstructionPointer(l.ctx, threadID, addr)
		l.bpMgr.RecordHit(bp.ID)
		l.mu.Lock()
		l.steppingOver[threadID] = stepOverRecord{kind: stepOverSoftwareBreakpoint, breakpointID: bp.ID}
		l.lastStoppedThread = threadID
		l.mu.Unlock()
		l.setState(BreakpointHit)
		l.obs.fireBreakpointHit(BreakpointHitEvent{ID: bp.ID, ThreadID: threadID, Address: addr})
		return plugin.WaitForCommand
	}

	l.mu.Lock()
	l.lastStoppedThread = threadID
	l.mu.Unlock()
	l.setState(Paused)
	return plugin.WaitForCommand
}

// handleSingleStep resumes a watchpoint that just fired (re-arming it
// after one clean instruction), completes a breakpoint step-over, or
// reports an explicitly requested single step; anything else passes
// through unmodified.
func (l *DebugLoop) handleSingleStep(ev plugin.SingleStepEvent) plugin.DebugAction {
	threadID := ev.ThreadID

	if ev.WatchpointSlot >= 0 {
		wp, ok := l.bpMgr.WatchpointBySlot(ev.WatchpointSlot)
		if !ok {
			return plugin.ContinueExecution
		}
		l.bpMgr.RecordWatchpointHit(wp.ID, ev.Address)
		if err := l.bpMgr.TemporarilyDisableWatchpoint(l.ctx, wp.ID); err != nil {
			l.obs.fireError(verrors.Wrap("debugger.handleSingleStep", verrors.IoFailed, err))
		}
		l.mu.Lock()
		l.steppingOver[threadID] = stepOverRecord{kind: stepOverWatchpoint, watchpointID: wp.ID}
		l.mu.Unlock()
		l.obs.fireWatchpointHit(WatchpointHitEvent{ID: wp.ID, ThreadID: threadID, LastAccessorAddress: ev.Address})
		return plugin.StepOneInstruction
	}

	l.mu.Lock()
	rec, hasRec := l.steppingOver[threadID]
	l.mu.Unlock()

	if hasRec && rec.kind == stepOverWatchpoint {
		if err := l.bpMgr.ReEnableWatchpoint(l.ctx, rec.watchpointID); err != nil {
			l.obs.fireError(verrors.Wrap("debugger.handleSingleStep", verrors.IoFailed, err))
		}
		l.mu.Lock()
		delete(l.steppingOver, threadID)
		l.mu.Unlock()
		return plugin.ContinueExecution
	}

	if hasRec && rec.kind == stepOverSoftwareBreakpoint {
		if err := l.bpMgr.ReinstateBreakpoint(l.ctx, rec.breakpointID); err != nil {
			l.obs.fireError(verrors.Wrap("debugger.handleSingleStep", verrors.IoFailed, err))
		}
		l.mu.Lock()
		delete(l.steppingOver, threadID)
		l.lastStoppedThread = threadID
		l.mu.Unlock()
		l.setState(Paused)
		l.obs.fireSingleStep(SingleStepEvent{ThreadID: threadID, Address: ev.Address})
		return plugin.WaitForCommand
	}

	l.mu.Lock()
	expecting := l.expectingStep[threadID]
	l.expectingStep[threadID] = false
	l.lastStoppedThread = threadID
	l.mu.Unlock()
	if expecting {
		l.setState(Paused)
		l.obs.fireSingleStep(SingleStepEvent{ThreadID: threadID, Address: ev.Address})
		return plugin.WaitForCommand
	}

	// (d) unrelated single-step: pass through.
	return plugin.ContinueExecution
}

// handleException surfaces an unrecognized target exception to the
// observer and hands execution back unhandled so the target's own
// exception handling (or crash) proceeds.
func (l *DebugLoop) handleException(ev plugin.ExceptionEvent) plugin.DebugAction {
	l.setState(Exception)
	l.obs.fireError(verrors.New("debugger.handleException", verrors.Unsupported, "unhandled target exception"))
	return plugin.ContinueUnhandled
}
