// Package debugger implements the debug loop: a typed state machine
// driven by plugin.Callbacks events, classifying INT3/single-step
// exceptions into attach-synthetic/temp-breakpoint/user-breakpoint cases,
// and issuing the four step commands through breakpoint.Manager and a
// plugin.DebuggerPlugin.
package debugger

import "fmt"

// State is one node of the debug-loop state machine.
type State int

const (
	Detached State = iota
	Attached
	Running
	Paused
	Stepping
	BreakpointHit
	Exception
)

func (s State) String() string {
	switch s {
	case Detached:
		return "Detached"
	case Attached:
		return "Attached"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stepping:
		return "Stepping"
	case BreakpointHit:
		return "BreakpointHit"
	case Exception:
		return "Exception"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BreakpointHitEvent and SingleStepEvent mirror the plugin package's
// shapes but with IDs resolved against breakpoint.Manager rather than
// left to the platform plugin, which has no notion of our breakpoint
// IDs.
type BreakpointHitEvent struct {
	ID       uint32
	ThreadID uint32
	Address  uint64
}

type SingleStepEvent struct {
	ThreadID uint32
	Address  uint64
}

type WatchpointHitEvent struct {
	ID                  uint32
	ThreadID            uint32
	LastAccessorAddress uint64
}

// Observer is the set of loop-level callbacks consumed by the facade,
// distinct from plugin.Callbacks (which the platform plugin drives): this
// is what DebugLoop itself emits once it has finished classifying a raw
// platform event.
type Observer struct {
	OnStateChanged  func(old, new State)
	OnBreakpointHit func(ev BreakpointHitEvent)
	OnSingleStep    func(ev SingleStepEvent)
	OnWatchpointHit func(ev WatchpointHitEvent)
	OnError         func(err error)
	OnOutputString  func(s string)
}

func (o Observer) fireStateChanged(old, new State) {
	if o.OnStateChanged != nil {
		o.OnStateChanged(old, new)
	}
}

func (o Observer) fireBreakpointHit(ev BreakpointHitEvent) {
	if o.OnBreakpointHit != nil {
		o.OnBreakpointHit(ev)
	}
}

func (o Observer) fireSingleStep(ev SingleStepEvent) {
	if o.OnSingleStep != nil {
		o.OnSingleStep(ev)
	}
}

func (o Observer) fireWatchpointHit(ev WatchpointHitEvent) {
	if o.OnWatchpointHit != nil {
		o.OnWatchpointHit(ev)
	}
}

func (o Observer) fireError(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

// stepOverKind distinguishes what a thread is stepping over when its next
// single-step exception arrives.
type stepOverKind int

const (
	stepOverNone stepOverKind = iota
	stepOverSoftwareBreakpoint
	stepOverWatchpoint
)

// stepOverRecord tracks, per thread, what the pending single-step
// exception will need to finish.
type stepOverRecord struct {
	kind         stepOverKind
	breakpointID uint32
	watchpointID uint32
}

// tempBreakpointKind distinguishes why a temp breakpoint was set, purely
// for observability; the handling is identical for all three.
type tempBreakpointKind int

const (
	tempStepOver tempBreakpointKind = iota
	tempStepOut
	tempRunToAddress
)
