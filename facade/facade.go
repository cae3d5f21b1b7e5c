// Package facade presents a snapshot-read and command-submission surface
// to an external UI: cached_registers, cached_breakpoints,
// scan_results_range, plus every scan/debug/breakpoint command, backed
// by the dispatcher's named channels so none of those operations blocks
// another.
package facade

import (
	"context"
	"sync"
	"time"

	"github.com/PHTNCx64/vertex/breakpoint"
	"github.com/PHTNCx64/vertex/debugger"
	"github.com/PHTNCx64/vertex/dispatcher"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/registry"
	"github.com/PHTNCx64/vertex/scanner"
)

// RegisterSnapshot is a cached_registers reading for one thread.
type RegisterSnapshot map[string]uint64

// Facade wires the dispatcher, scanner, breakpoint manager, and debug
// loop behind one snapshot/command surface. It holds no OS state of its
// own beyond the caches it refreshes from debugger.Observer events.
type Facade struct {
	disp  *dispatcher.Dispatcher
	mem   plugin.MemoryReader
	dp    plugin.DebuggerPlugin
	scan  *scanner.Scanner
	bpMgr *breakpoint.Manager
	loop  *debugger.DebugLoop
	reg   *registry.Registry

	mu            sync.Mutex
	registers     map[uint32]RegisterSnapshot
	frozen        map[uint64]frozenValue
	freezeRunning bool
	stopFreeze    chan struct{}
	processes     []plugin.ProcessInfo
}

type frozenValue struct {
	value []byte
}

// New builds a Facade. observer receives every loop event after the
// facade has updated its own caches from it, so a UI can still subscribe
// directly without racing the cache refresh.
func New(disp *dispatcher.Dispatcher, mem plugin.MemoryReader, dp plugin.DebuggerPlugin, scan *scanner.Scanner, bpMgr *breakpoint.Manager, disasm plugin.Disassembler, reg *registry.Registry, observer debugger.Observer) *Facade {
	f := &Facade{
		disp:      disp,
		mem:       mem,
		dp:        dp,
		scan:      scan,
		bpMgr:     bpMgr,
		reg:       reg,
		registers: make(map[uint32]RegisterSnapshot),
		frozen:    make(map[uint64]frozenValue),
	}

	wrapped := debugger.Observer{
		OnStateChanged: observer.OnStateChanged,
		OnError:        observer.OnError,
		OnOutputString: observer.OnOutputString,
		OnBreakpointHit: func(ev debugger.BreakpointHitEvent) {
			f.refreshRegisters(ev.ThreadID)
			if observer.OnBreakpointHit != nil {
				observer.OnBreakpointHit(ev)
			}
		},
		OnSingleStep: func(ev debugger.SingleStepEvent) {
			f.refreshRegisters(ev.ThreadID)
			if observer.OnSingleStep != nil {
				observer.OnSingleStep(ev)
			}
		},
		OnWatchpointHit: func(ev debugger.WatchpointHitEvent) {
			f.refreshRegisters(ev.ThreadID)
			if observer.OnWatchpointHit != nil {
				observer.OnWatchpointHit(ev)
			}
		},
	}
	f.loop = debugger.New(dp, mem, bpMgr, disasm, reg, disp, wrapped)
	return f
}

func (f *Facade) refreshRegisters(threadID uint32) {
	regs, err := f.dp.ReadRegisters(context.Background(), threadID)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.registers[threadID] = regs
	f.mu.Unlock()
}

// CachedRegisters returns the last snapshot taken for threadID, without
// touching the target.
func (f *Facade) CachedRegisters(threadID uint32) (RegisterSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registers[threadID]
	return r, ok
}

// CachedBreakpoints returns every tracked breakpoint.
func (f *Facade) CachedBreakpoints() []breakpoint.Breakpoint { return f.bpMgr.Breakpoints() }

// CachedWatchpoints returns every tracked watchpoint.
func (f *Facade) CachedWatchpoints() []breakpoint.Watchpoint { return f.bpMgr.Watchpoints() }

// ScanResultsRange pages through the active scan generation's results.
func (f *Facade) ScanResultsRange(start, count uint64) []scanner.ScanResultRecord {
	return f.scan.ScanResultsRange(start, count)
}

// WaitForScanCompletion blocks until the active scan finishes or timeout
// elapses.
func (f *Facade) WaitForScanCompletion(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return f.scan.WaitForCompletion(ctx)
}

// State returns the debug loop's current state.
func (f *Facade) State() debugger.State { return f.loop.State() }

// Attach, Detach, and the step/continue commands delegate straight to
// the debug loop; the facade's value is the cache it layers on top, not
// a reinterpretation of these commands.
func (f *Facade) Attach(ctx context.Context, pid uint32) error { return f.loop.Attach(ctx, pid) }
func (f *Facade) Detach(ctx context.Context) error             { return f.loop.Detach(ctx) }
func (f *Facade) Continue(ctx context.Context, passException bool) error {
	return f.loop.Continue(ctx, passException)
}
func (f *Facade) Pause(ctx context.Context) error { return f.loop.Pause(ctx) }
func (f *Facade) StepInto(ctx context.Context, threadID uint32) error {
	return f.loop.StepInto(ctx, threadID)
}
func (f *Facade) StepOver(ctx context.Context, threadID uint32) error {
	return f.loop.StepOver(ctx, threadID)
}
func (f *Facade) StepOut(ctx context.Context, threadID uint32) error {
	return f.loop.StepOut(ctx, threadID)
}
func (f *Facade) RunToAddress(ctx context.Context, addr uint64) error {
	return f.loop.RunToAddress(ctx, addr)
}

// FirstScan, NextScan, UndoScan, and AbortScan delegate to the scanner.
func (f *Facade) FirstScan(ctx context.Context, cfg scanner.ScanConfig) error {
	return f.scan.FirstScan(ctx, cfg)
}
func (f *Facade) NextScan(ctx context.Context, cfg scanner.ScanConfig) error {
	return f.scan.NextScan(ctx, cfg)
}
func (f *Facade) UndoScan() error { return f.scan.UndoScan() }
func (f *Facade) AbortScan()      { f.scan.Abort() }

// SetBreakpoint picks the software or hardware path by kind and delegates
// to breakpoint.Manager.
func (f *Facade) SetBreakpoint(ctx context.Context, address uint64, kind plugin.BreakpointKind) (uint32, error) {
	if kind == plugin.Hardware {
		return f.bpMgr.SetHardwareBreakpoint(ctx, address, 1)
	}
	return f.bpMgr.SetSoftwareBreakpoint(ctx, address)
}
func (f *Facade) RemoveBreakpoint(ctx context.Context, id uint32) error {
	return f.bpMgr.RemoveBreakpoint(ctx, id)
}
func (f *Facade) EnableBreakpoint(ctx context.Context, id uint32, enabled bool) error {
	return f.bpMgr.EnableBreakpoint(ctx, id, enabled)
}
func (f *Facade) SetWatchpoint(ctx context.Context, spec plugin.WatchpointSpec) (uint32, error) {
	return f.bpMgr.SetWatchpoint(ctx, spec)
}
func (f *Facade) RemoveWatchpoint(ctx context.Context, id uint32) error {
	return f.bpMgr.RemoveWatchpoint(ctx, id)
}
func (f *Facade) EnableWatchpoint(ctx context.Context, id uint32, enabled bool) error {
	return f.bpMgr.EnableWatchpoint(ctx, id, enabled)
}
