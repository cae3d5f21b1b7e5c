package rpc

import (
	"context"
	"time"

	"github.com/PHTNCx64/vertex/facade"
)

// Server adapts a facade.Facade's method surface to net/rpc's
// func(*Request, *Response) error convention, mirroring
// golang-debug/program/server's Server type (there wrapping a ptrace
// Process, here wrapping the facade composition directly). Register with
// rpc.Register(rpc.NewServer(f)) and serve over any net/rpc codec.
type Server struct {
	f *facade.Facade
}

// NewServer wraps f for RPC registration.
func NewServer(f *facade.Facade) *Server { return &Server{f: f} }

func (s *Server) Attach(req *AttachRequest, resp *AttachResponse) error {
	return s.f.Attach(context.Background(), req.PID)
}

func (s *Server) Detach(req *DetachRequest, resp *DetachResponse) error {
	return s.f.Detach(context.Background())
}

func (s *Server) Continue(req *ContinueRequest, resp *ContinueResponse) error {
	return s.f.Continue(context.Background(), req.PassException)
}

func (s *Server) Pause(req *PauseRequest, resp *PauseResponse) error {
	return s.f.Pause(context.Background())
}

func (s *Server) StepInto(req *StepIntoRequest, resp *StepIntoResponse) error {
	return s.f.StepInto(context.Background(), req.ThreadID)
}

func (s *Server) StepOver(req *StepOverRequest, resp *StepOverResponse) error {
	return s.f.StepOver(context.Background(), req.ThreadID)
}

func (s *Server) StepOut(req *StepOutRequest, resp *StepOutResponse) error {
	return s.f.StepOut(context.Background(), req.ThreadID)
}

func (s *Server) RunToAddress(req *RunToAddressRequest, resp *RunToAddressResponse) error {
	return s.f.RunToAddress(context.Background(), req.Address)
}

func (s *Server) State(req *StateRequest, resp *StateResponse) error {
	resp.State = s.f.State()
	return nil
}

func (s *Server) FirstScan(req *FirstScanRequest, resp *FirstScanResponse) error {
	return s.f.FirstScan(context.Background(), req.Config)
}

func (s *Server) NextScan(req *NextScanRequest, resp *NextScanResponse) error {
	return s.f.NextScan(context.Background(), req.Config)
}

func (s *Server) UndoScan(req *UndoScanRequest, resp *UndoScanResponse) error {
	return s.f.UndoScan()
}

func (s *Server) AbortScan(req *AbortScanRequest, resp *AbortScanResponse) error {
	s.f.AbortScan()
	return nil
}

func (s *Server) WaitForScanCompletion(req *WaitForScanCompletionRequest, resp *WaitForScanCompletionResponse) error {
	return s.f.WaitForScanCompletion(context.Background(), time.Duration(req.TimeoutMillis)*time.Millisecond)
}

func (s *Server) ScanResultsRange(req *ScanResultsRangeRequest, resp *ScanResultsRangeResponse) error {
	resp.Results = s.f.ScanResultsRange(req.Start, req.Count)
	return nil
}

func (s *Server) CachedRegisters(req *CachedRegistersRequest, resp *CachedRegistersResponse) error {
	regs, ok := s.f.CachedRegisters(req.ThreadID)
	resp.Registers = regs
	resp.Found = ok
	return nil
}

func (s *Server) CachedBreakpoints(req *CachedBreakpointsRequest, resp *CachedBreakpointsResponse) error {
	resp.Breakpoints = s.f.CachedBreakpoints()
	return nil
}

func (s *Server) CachedWatchpoints(req *CachedWatchpointsRequest, resp *CachedWatchpointsResponse) error {
	resp.Watchpoints = s.f.CachedWatchpoints()
	return nil
}

func (s *Server) SetBreakpoint(req *SetBreakpointRequest, resp *SetBreakpointResponse) error {
	id, err := s.f.SetBreakpoint(context.Background(), req.Address, req.Kind)
	resp.ID = id
	return err
}

func (s *Server) RemoveBreakpoint(req *RemoveBreakpointRequest, resp *RemoveBreakpointResponse) error {
	return s.f.RemoveBreakpoint(context.Background(), req.ID)
}

func (s *Server) EnableBreakpoint(req *EnableBreakpointRequest, resp *EnableBreakpointResponse) error {
	return s.f.EnableBreakpoint(context.Background(), req.ID, req.Enabled)
}

func (s *Server) SetWatchpoint(req *SetWatchpointRequest, resp *SetWatchpointResponse) error {
	id, err := s.f.SetWatchpoint(context.Background(), req.Spec)
	resp.ID = id
	return err
}

func (s *Server) RemoveWatchpoint(req *RemoveWatchpointRequest, resp *RemoveWatchpointResponse) error {
	return s.f.RemoveWatchpoint(context.Background(), req.ID)
}

func (s *Server) EnableWatchpoint(req *EnableWatchpointRequest, resp *EnableWatchpointResponse) error {
	return s.f.EnableWatchpoint(context.Background(), req.ID, req.Enabled)
}

func (s *Server) FreezeAddress(req *FreezeAddressRequest, resp *FreezeAddressResponse) error {
	s.f.FreezeAddress(req.Address, req.Value)
	return nil
}

func (s *Server) UnfreezeAddress(req *UnfreezeAddressRequest, resp *UnfreezeAddressResponse) error {
	s.f.UnfreezeAddress(req.Address)
	return nil
}

func (s *Server) FrozenAddresses(req *FrozenAddressesRequest, resp *FrozenAddressesResponse) error {
	resp.Addresses = s.f.FrozenAddresses()
	return nil
}

func (s *Server) StartFreezePolling(req *StartFreezePollingRequest, resp *StartFreezePollingResponse) error {
	return s.f.StartFreezePolling(time.Duration(req.IntervalMillis) * time.Millisecond)
}

func (s *Server) StopFreezePolling(req *StopFreezePollingRequest, resp *StopFreezePollingResponse) error {
	s.f.StopFreezePolling()
	return nil
}

func (s *Server) RefreshProcessList(req *RefreshProcessListRequest, resp *RefreshProcessListResponse) error {
	return s.f.RefreshProcessList(context.Background())
}

func (s *Server) CachedProcessList(req *CachedProcessListRequest, resp *CachedProcessListResponse) error {
	resp.Processes = s.f.CachedProcessList()
	return nil
}
