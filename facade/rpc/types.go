// Package rpc defines the net/rpc wire types and the Server/Client pair
// that expose a facade.Facade across a process boundary, one
// Request/Response pair per method, covering the scan/debug/
// breakpoint/watchpoint surface.
package rpc

import (
	"github.com/PHTNCx64/vertex/breakpoint"
	"github.com/PHTNCx64/vertex/debugger"
	"github.com/PHTNCx64/vertex/facade"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/scanner"
)

// For regularity, each method has a unique Request and a Response type
// even when not strictly necessary - same convention proxyrpc follows.

type AttachRequest struct{ PID uint32 }
type AttachResponse struct{}

type DetachRequest struct{}
type DetachResponse struct{}

type ContinueRequest struct{ PassException bool }
type ContinueResponse struct{}

type PauseRequest struct{}
type PauseResponse struct{}

type StepIntoRequest struct{ ThreadID uint32 }
type StepIntoResponse struct{}

type StepOverRequest struct{ ThreadID uint32 }
type StepOverResponse struct{}

type StepOutRequest struct{ ThreadID uint32 }
type StepOutResponse struct{}

type RunToAddressRequest struct{ Address uint64 }
type RunToAddressResponse struct{}

type StateRequest struct{}
type StateResponse struct{ State debugger.State }

type FirstScanRequest struct{ Config scanner.ScanConfig }
type FirstScanResponse struct{}

type NextScanRequest struct{ Config scanner.ScanConfig }
type NextScanResponse struct{}

type UndoScanRequest struct{}
type UndoScanResponse struct{}

type AbortScanRequest struct{}
type AbortScanResponse struct{}

type WaitForScanCompletionRequest struct{ TimeoutMillis int64 }
type WaitForScanCompletionResponse struct{}

type ScanResultsRangeRequest struct {
	Start uint64
	Count uint64
}
type ScanResultsRangeResponse struct {
	Results []scanner.ScanResultRecord
}

type CachedRegistersRequest struct{ ThreadID uint32 }
type CachedRegistersResponse struct {
	Registers facade.RegisterSnapshot
	Found     bool
}

type CachedBreakpointsRequest struct{}
type CachedBreakpointsResponse struct {
	Breakpoints []breakpoint.Breakpoint
}

type CachedWatchpointsRequest struct{}
type CachedWatchpointsResponse struct {
	Watchpoints []breakpoint.Watchpoint
}

type SetBreakpointRequest struct {
	Address uint64
	Kind    plugin.BreakpointKind
}
type SetBreakpointResponse struct{ ID uint32 }

type RemoveBreakpointRequest struct{ ID uint32 }
type RemoveBreakpointResponse struct{}

type EnableBreakpointRequest struct {
	ID      uint32
	Enabled bool
}
type EnableBreakpointResponse struct{}

type SetWatchpointRequest struct{ Spec plugin.WatchpointSpec }
type SetWatchpointResponse struct{ ID uint32 }

type RemoveWatchpointRequest struct{ ID uint32 }
type RemoveWatchpointResponse struct{}

type EnableWatchpointRequest struct {
	ID      uint32
	Enabled bool
}
type EnableWatchpointResponse struct{}

type FreezeAddressRequest struct {
	Address uint64
	Value   []byte
}
type FreezeAddressResponse struct{}

type UnfreezeAddressRequest struct{ Address uint64 }
type UnfreezeAddressResponse struct{}

type FrozenAddressesRequest struct{}
type FrozenAddressesResponse struct {
	Addresses []facade.FrozenAddress
}

type StartFreezePollingRequest struct{ IntervalMillis int64 }
type StartFreezePollingResponse struct{}

type StopFreezePollingRequest struct{}
type StopFreezePollingResponse struct{}

type RefreshProcessListRequest struct{}
type RefreshProcessListResponse struct{}

type CachedProcessListRequest struct{}
type CachedProcessListResponse struct {
	Processes []plugin.ProcessInfo
}
