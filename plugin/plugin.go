// Package plugin defines the external-collaborator contracts: the
// interface the platform plugin must fulfill (memory read/write, region
// enumeration, process control) and the interface the debugger plugin
// must fulfill (attach/continue/step/breakpoints) plus the synchronous
// callback set it invokes. Nothing in this package touches an OS; it
// exists purely as the seam between the core (scanner, debugger,
// dispatcher) and the platform-specific plugin that actually issues
// ReadProcessMemory/ptrace/WriteProcessMemory calls.
package plugin

import "context"

// Region describes one mapped region of the target's address space, as
// returned by MemoryReader.EnumerateRegions.
type Region struct {
	Base       uint64
	Size       uint64
	ModuleName string // "" if the region is not backed by a module
}

// MemoryReader is the plugin contract consumed by the core. Implementations
// are supplied by the platform plugin; the core never assumes anything
// about how reads and writes reach the target process.
type MemoryReader interface {
	ReadMemory(ctx context.Context, address uint64, out []byte) error
	WriteMemory(ctx context.Context, address uint64, data []byte) error
	EnumerateRegions(ctx context.Context) ([]Region, error)
	KillProcess(ctx context.Context) error
	IsProcessValid(ctx context.Context) (bool, error)
	ListProcesses(ctx context.Context) ([]ProcessInfo, error)
	OpenProcess(ctx context.Context, pid uint32) error
	PointerSize(ctx context.Context) (int, error)
}

// ProcessInfo is the minimal process identity the platform plugin
// reports - only what OpenProcess needs to disambiguate.
type ProcessInfo struct {
	PID  uint32
	Name string
}

// DebugAction is the reply a debug-event handler gives the platform
// plugin's event loop: whether to resume the target, resume passing the
// exception on unhandled, or hold the target paused until an explicit
// command arrives through the plugin contract.
type DebugAction int

const (
	ContinueExecution DebugAction = iota
	ContinueUnhandled
	WaitForCommand
	// StepOneInstruction asks the plugin to set the trap flag and resume
	// for exactly one instruction, then report back through OnSingleStep,
	// without the core re-entering DebuggerPlugin.Step itself - used to
	// mask a watchpoint's DR slot and let the faulting instruction retire
	// as a single step before re-enabling it.
	StepOneInstruction
)

func (a DebugAction) String() string {
	switch a {
	case ContinueExecution:
		return "ContinueExecution"
	case ContinueUnhandled:
		return "ContinueUnhandled"
	case WaitForCommand:
		return "WaitForCommand"
	case StepOneInstruction:
		return "StepOneInstruction"
	default:
		return "DebugAction(unknown)"
	}
}

// StepMode selects the granularity of a debugger_step request.
type StepMode int

const (
	StepInto StepMode = iota
	StepOver
	StepOut
)

func (m StepMode) String() string {
	switch m {
	case StepInto:
		return "StepInto"
	case StepOver:
		return "StepOver"
	case StepOut:
		return "StepOut"
	default:
		return "StepMode(unknown)"
	}
}

// BreakpointKind distinguishes software (INT3) from hardware (DR-register)
// breakpoints.
type BreakpointKind int

const (
	Software BreakpointKind = iota
	Hardware
)

func (k BreakpointKind) String() string {
	if k == Software {
		return "Software"
	}
	return "Hardware"
}

// WatchAccess is the access type a watchpoint traps on.
type WatchAccess int

const (
	WatchRead WatchAccess = iota
	WatchWrite
	WatchReadWrite
	WatchExecute
)

// WatchpointSpec is the request shape for DebuggerPlugin.SetWatchpoint.
type WatchpointSpec struct {
	Address uint64
	Size    uint8 // 1, 2, 4, or 8
	Access  WatchAccess
}

// DebuggerPlugin is the plugin contract produced for the core: the set
// of operations the core's debug loop drives. A platform plugin translates
// these into Win32 debug API / ptrace calls; the core issues only these
// calls and never touches native handles directly.
type DebuggerPlugin interface {
	Run(ctx context.Context, callbacks *Callbacks) error
	Attach(ctx context.Context, pid uint32) error
	Detach(ctx context.Context) error
	Continue(ctx context.Context, passException bool) error
	Pause(ctx context.Context) error
	Step(ctx context.Context, mode StepMode) error
	RunToAddress(ctx context.Context, addr uint64) error

	SetBreakpoint(ctx context.Context, addr uint64, kind BreakpointKind) (id uint32, err error)
	RemoveBreakpoint(ctx context.Context, id uint32) error
	EnableBreakpoint(ctx context.Context, id uint32, enabled bool) error

	SetWatchpoint(ctx context.Context, spec WatchpointSpec) (id uint32, err error)
	RemoveWatchpoint(ctx context.Context, id uint32) error
	EnableWatchpoint(ctx context.Context, id uint32, enabled bool) error

	GetInstructionPointer(ctx context.Context, threadID uint32) (uint64, error)
	SetInstructionPointer(ctx context.Context, threadID uint32, addr uint64) error
	GetStackPointer(ctx context.Context, threadID uint32) (uint64, error)

	// ReadRegisters returns every register named in the attached
	// process's registry.Registry, keyed by register name, for the
	// facade's cached_registers snapshot.
	ReadRegisters(ctx context.Context, threadID uint32) (map[string]uint64, error)
}

// InstructionInfo is the minimal decode result the debug loop needs to
// implement StepOver: whether the instruction at an address is a call
// (direct or indirect), and how many bytes it occupies, so the loop can
// compute the fallthrough address without itself becoming a
// disassembler.
type InstructionInfo struct {
	IsCall bool
	Length int
}

// Disassembler is the external collaborator contract for the one piece of
// instruction decoding the debug loop needs. A real implementation would
// wrap a capstone/zydis-style decoder; the core only ever asks it one
// question.
type Disassembler interface {
	Decode(ctx context.Context, address uint64) (InstructionInfo, error)
}

// ExceptionEvent carries the details of an ExceptionGeneral dispatch.
type ExceptionEvent struct {
	ThreadID uint32
	Code     uint32
	Address  uint64
}

// BreakpointHitEvent is delivered on a user software or hardware
// breakpoint hit.
type BreakpointHitEvent struct {
	ID       uint32
	ThreadID uint32
	Address  uint64
}

// SingleStepEvent is delivered when a single-step trap completes
// (StepInto, the tail of a step-over/breakpoint-restore protocol, or a
// hardware watchpoint trap surfacing as a single-step exception).
// WatchpointSlot is the DR6-identified slot index (0-3) when this trap
// was actually a watchpoint hit, or -1 for an ordinary single-step -
// DR6 itself is read by the platform plugin, which is the only layer
// with a live thread context; the core only ever needs the slot number
// to correlate it against breakpoint.Manager's slot table.
type SingleStepEvent struct {
	ThreadID       uint32
	Address        uint64
	WatchpointSlot int
}

// WatchpointHitEvent is delivered when a hardware watchpoint traps.
type WatchpointHitEvent struct {
	ID                  uint32
	ThreadID            uint32
	LastAccessorAddress uint64
}

// ModuleEvent describes a LoadDll/UnloadDll event.
type ModuleEvent struct {
	Name    string
	Base    uint64
	Size    uint64
	Exports []ExportEntry
	Imports []ImportEntry
}

// ExportEntry and ImportEntry model PE import/export table entries.
// The core only carries this shape; parsing the PE directories
// themselves is a platform-plugin responsibility.
type ExportEntry struct {
	Name    string
	Address uint64
	Ordinal uint16
}

type ImportEntry struct {
	Module  string
	Name    string
	Ordinal uint16
}

// ThreadEvent describes a CreateThread/ExitThread event.
type ThreadEvent struct {
	ThreadID uint32
}

// Callbacks are invoked synchronously on the debug thread.
// Implementations must not re-enter DebuggerPlugin calls from
// inside a callback - a handler that wants the target to stay paused
// returns WaitForCommand and the core later issues Continue/Step from
// outside any callback, once a command actually arrives; it must not
// block the debug thread waiting for one.
type Callbacks struct {
	OnAttached     func(pid uint32)
	OnDetached     func(pid uint32)
	OnStateChanged func(old, new string)
	OnError        func(err error)

	OnBreakpointHit func(ev BreakpointHitEvent) DebugAction
	OnSingleStep    func(ev SingleStepEvent) DebugAction
	OnException     func(ev ExceptionEvent) DebugAction
	OnWatchpointHit func(ev WatchpointHitEvent) DebugAction
	OnCreateThread  func(ev ThreadEvent) DebugAction
	OnExitThread    func(ev ThreadEvent) DebugAction
	OnLoadModule    func(ev ModuleEvent) DebugAction
	OnUnloadModule  func(ev ModuleEvent) DebugAction
	OnOutputString  func(s string) DebugAction
}
