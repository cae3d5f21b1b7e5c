package rpc

import (
	"net"
	"net/rpc"
	"time"

	"github.com/PHTNCx64/vertex/breakpoint"
	"github.com/PHTNCx64/vertex/debugger"
	"github.com/PHTNCx64/vertex/facade"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/scanner"
)

// Client is the rpc.Client-wrapping counterpart to Server. It never
// spawns a remote process over SSH: facade/rpc is local-loopback/pipe
// transport only, a same-host console talking to a running vertex
// server over a pipe or localhost socket.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a Server listening on network/address (e.g.
// ("tcp", "127.0.0.1:4747") or ("unix", "/run/vertex.sock")).
func Dial(network, address string) (*Client, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: rpc.NewClient(conn)}, nil
}

// NewClient wraps an already-established net/rpc client, for callers
// that built their own codec (e.g. over an os.Pipe pair rather than a
// socket).
func NewClient(c *rpc.Client) *Client { return &Client{rpc: c} }

func (c *Client) Close() error { return c.rpc.Close() }

func (c *Client) Attach(pid uint32) error {
	return c.rpc.Call("Server.Attach", &AttachRequest{PID: pid}, &AttachResponse{})
}

func (c *Client) Detach() error {
	return c.rpc.Call("Server.Detach", &DetachRequest{}, &DetachResponse{})
}

func (c *Client) Continue(passException bool) error {
	return c.rpc.Call("Server.Continue", &ContinueRequest{PassException: passException}, &ContinueResponse{})
}

func (c *Client) Pause() error {
	return c.rpc.Call("Server.Pause", &PauseRequest{}, &PauseResponse{})
}

func (c *Client) StepInto(threadID uint32) error {
	return c.rpc.Call("Server.StepInto", &StepIntoRequest{ThreadID: threadID}, &StepIntoResponse{})
}

func (c *Client) StepOver(threadID uint32) error {
	return c.rpc.Call("Server.StepOver", &StepOverRequest{ThreadID: threadID}, &StepOverResponse{})
}

func (c *Client) StepOut(threadID uint32) error {
	return c.rpc.Call("Server.StepOut", &StepOutRequest{ThreadID: threadID}, &StepOutResponse{})
}

func (c *Client) RunToAddress(address uint64) error {
	return c.rpc.Call("Server.RunToAddress", &RunToAddressRequest{Address: address}, &RunToAddressResponse{})
}

func (c *Client) State() (debugger.State, error) {
	var resp StateResponse
	err := c.rpc.Call("Server.State", &StateRequest{}, &resp)
	return resp.State, err
}

func (c *Client) FirstScan(cfg scanner.ScanConfig) error {
	return c.rpc.Call("Server.FirstScan", &FirstScanRequest{Config: cfg}, &FirstScanResponse{})
}

func (c *Client) NextScan(cfg scanner.ScanConfig) error {
	return c.rpc.Call("Server.NextScan", &NextScanRequest{Config: cfg}, &NextScanResponse{})
}

func (c *Client) UndoScan() error {
	return c.rpc.Call("Server.UndoScan", &UndoScanRequest{}, &UndoScanResponse{})
}

func (c *Client) AbortScan() error {
	return c.rpc.Call("Server.AbortScan", &AbortScanRequest{}, &AbortScanResponse{})
}

func (c *Client) WaitForScanCompletion(timeout time.Duration) error {
	req := &WaitForScanCompletionRequest{TimeoutMillis: timeout.Milliseconds()}
	return c.rpc.Call("Server.WaitForScanCompletion", req, &WaitForScanCompletionResponse{})
}

func (c *Client) ScanResultsRange(start, count uint64) ([]scanner.ScanResultRecord, error) {
	var resp ScanResultsRangeResponse
	err := c.rpc.Call("Server.ScanResultsRange", &ScanResultsRangeRequest{Start: start, Count: count}, &resp)
	return resp.Results, err
}

func (c *Client) CachedRegisters(threadID uint32) (facade.RegisterSnapshot, bool, error) {
	var resp CachedRegistersResponse
	err := c.rpc.Call("Server.CachedRegisters", &CachedRegistersRequest{ThreadID: threadID}, &resp)
	return resp.Registers, resp.Found, err
}

func (c *Client) CachedBreakpoints() ([]breakpoint.Breakpoint, error) {
	var resp CachedBreakpointsResponse
	err := c.rpc.Call("Server.CachedBreakpoints", &CachedBreakpointsRequest{}, &resp)
	return resp.Breakpoints, err
}

func (c *Client) CachedWatchpoints() ([]breakpoint.Watchpoint, error) {
	var resp CachedWatchpointsResponse
	err := c.rpc.Call("Server.CachedWatchpoints", &CachedWatchpointsRequest{}, &resp)
	return resp.Watchpoints, err
}

func (c *Client) SetBreakpoint(address uint64, kind plugin.BreakpointKind) (uint32, error) {
	var resp SetBreakpointResponse
	err := c.rpc.Call("Server.SetBreakpoint", &SetBreakpointRequest{Address: address, Kind: kind}, &resp)
	return resp.ID, err
}

func (c *Client) RemoveBreakpoint(id uint32) error {
	return c.rpc.Call("Server.RemoveBreakpoint", &RemoveBreakpointRequest{ID: id}, &RemoveBreakpointResponse{})
}

func (c *Client) EnableBreakpoint(id uint32, enabled bool) error {
	req := &EnableBreakpointRequest{ID: id, Enabled: enabled}
	return c.rpc.Call("Server.EnableBreakpoint", req, &EnableBreakpointResponse{})
}

func (c *Client) SetWatchpoint(spec plugin.WatchpointSpec) (uint32, error) {
	var resp SetWatchpointResponse
	err := c.rpc.Call("Server.SetWatchpoint", &SetWatchpointRequest{Spec: spec}, &resp)
	return resp.ID, err
}

func (c *Client) RemoveWatchpoint(id uint32) error {
	return c.rpc.Call("Server.RemoveWatchpoint", &RemoveWatchpointRequest{ID: id}, &RemoveWatchpointResponse{})
}

func (c *Client) EnableWatchpoint(id uint32, enabled bool) error {
	req := &EnableWatchpointRequest{ID: id, Enabled: enabled}
	return c.rpc.Call("Server.EnableWatchpoint", req, &EnableWatchpointResponse{})
}

func (c *Client) FreezeAddress(address uint64, value []byte) error {
	req := &FreezeAddressRequest{Address: address, Value: value}
	return c.rpc.Call("Server.FreezeAddress", req, &FreezeAddressResponse{})
}

func (c *Client) UnfreezeAddress(address uint64) error {
	return c.rpc.Call("Server.UnfreezeAddress", &UnfreezeAddressRequest{Address: address}, &UnfreezeAddressResponse{})
}

func (c *Client) FrozenAddresses() ([]facade.FrozenAddress, error) {
	var resp FrozenAddressesResponse
	err := c.rpc.Call("Server.FrozenAddresses", &FrozenAddressesRequest{}, &resp)
	return resp.Addresses, err
}

func (c *Client) StartFreezePolling(interval time.Duration) error {
	req := &StartFreezePollingRequest{IntervalMillis: interval.Milliseconds()}
	return c.rpc.Call("Server.StartFreezePolling", req, &StartFreezePollingResponse{})
}

func (c *Client) StopFreezePolling() error {
	return c.rpc.Call("Server.StopFreezePolling", &StopFreezePollingRequest{}, &StopFreezePollingResponse{})
}

func (c *Client) RefreshProcessList() error {
	return c.rpc.Call("Server.RefreshProcessList", &RefreshProcessListRequest{}, &RefreshProcessListResponse{})
}

func (c *Client) CachedProcessList() ([]plugin.ProcessInfo, error) {
	var resp CachedProcessListResponse
	err := c.rpc.Call("Server.CachedProcessList", &CachedProcessListRequest{}, &resp)
	return resp.Processes, err
}
