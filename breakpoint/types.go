// Package breakpoint implements the Breakpoint Manager: software (INT3)
// and hardware (DR0-DR3) breakpoints plus hardware watchpoints, sharing
// the same four debug-register slots. Manager is an ordinary value the
// debugger package owns one of per attached process, not a global
// singleton.
package breakpoint

import (
	"github.com/PHTNCx64/vertex/plugin"
)

// State is a breakpoint or watchpoint's enabled/disabled status.
type State int

const (
	Enabled State = iota
	Disabled
)

// Breakpoint is one software or hardware breakpoint.
type Breakpoint struct {
	ID       uint32
	Address  uint64
	Kind     plugin.BreakpointKind
	State    State
	HitCount uint64

	// OriginalBytes holds the instruction bytes overwritten by the
	// registry's breakpoint instruction (0xCC on x86/amd64) for a
	// Software breakpoint; nil/unused for Hardware.
	OriginalBytes []byte

	// RegisterIndex is the DR0-DR3 slot a Hardware breakpoint occupies;
	// unused for Software.
	RegisterIndex int
}

// Watchpoint is one hardware watchpoint. Watchpoints and
// hardware breakpoints draw from the same four-slot register budget.
type Watchpoint struct {
	ID                  uint32
	Address             uint64
	Size                uint8
	Access              plugin.WatchAccess
	Enabled             bool
	TemporarilyDisabled bool
	RegisterIndex       int
	HitCount            uint64
	LastAccessorAddress uint64
}

// DebugRegisters is the DR0-DR3 + DR7 register file one thread carries,
// in the width-agnostic form Manager computes; ThreadContext
// implementations narrow DR7 to 32 bits for a WoW64 thread.
type DebugRegisters struct {
	DR  [4]uint64
	DR7 uint64
}
