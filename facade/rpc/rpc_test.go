package rpc_test

import (
	"context"
	"net"
	"net/rpc"
	"testing"
	"time"

	"github.com/PHTNCx64/vertex/breakpoint"
	"github.com/PHTNCx64/vertex/breakpoint/breakpointtest"
	"github.com/PHTNCx64/vertex/debugger"
	"github.com/PHTNCx64/vertex/dispatcher"
	"github.com/PHTNCx64/vertex/facade"
	vrpc "github.com/PHTNCx64/vertex/facade/rpc"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/plugin/plugintest"
	"github.com/PHTNCx64/vertex/registry"
	"github.com/PHTNCx64/vertex/scanner"
)

type noopDebuggerPlugin struct{}

func (noopDebuggerPlugin) Run(ctx context.Context, cb *plugin.Callbacks) error { return nil }
func (noopDebuggerPlugin) Attach(ctx context.Context, pid uint32) error       { return nil }
func (noopDebuggerPlugin) Detach(ctx context.Context) error                  { return nil }
func (noopDebuggerPlugin) Continue(ctx context.Context, passException bool) error {
	return nil
}
func (noopDebuggerPlugin) Pause(ctx context.Context) error { return nil }
func (noopDebuggerPlugin) Step(ctx context.Context, mode plugin.StepMode) error {
	return nil
}
func (noopDebuggerPlugin) RunToAddress(ctx context.Context, addr uint64) error { return nil }
func (noopDebuggerPlugin) SetBreakpoint(ctx context.Context, addr uint64, kind plugin.BreakpointKind) (uint32, error) {
	return 0, nil
}
func (noopDebuggerPlugin) RemoveBreakpoint(ctx context.Context, id uint32) error { return nil }
func (noopDebuggerPlugin) EnableBreakpoint(ctx context.Context, id uint32, enabled bool) error {
	return nil
}
func (noopDebuggerPlugin) SetWatchpoint(ctx context.Context, spec plugin.WatchpointSpec) (uint32, error) {
	return 0, nil
}
func (noopDebuggerPlugin) RemoveWatchpoint(ctx context.Context, id uint32) error { return nil }
func (noopDebuggerPlugin) EnableWatchpoint(ctx context.Context, id uint32, enabled bool) error {
	return nil
}
func (noopDebuggerPlugin) GetInstructionPointer(ctx context.Context, threadID uint32) (uint64, error) {
	return 0, nil
}
func (noopDebuggerPlugin) SetInstructionPointer(ctx context.Context, threadID uint32, addr uint64) error {
	return nil
}
func (noopDebuggerPlugin) GetStackPointer(ctx context.Context, threadID uint32) (uint64, error) {
	return 0, nil
}
func (noopDebuggerPlugin) ReadRegisters(ctx context.Context, threadID uint32) (map[string]uint64, error) {
	return map[string]uint64{"rip": 0x42}, nil
}

var _ plugin.DebuggerPlugin = noopDebuggerPlugin{}

// dialedPair starts a Server over one end of an in-process net.Pipe and
// returns a Client dialed to the other end, mirroring how
// golang-debug/program/client wires an rpc.Client to a transport it
// doesn't own - here an in-memory pipe instead of an SSH session.
func dialedPair(t *testing.T) *vrpc.Client {
	t.Helper()
	mem := plugintest.NewFakeMemory(0x1000, 0x200)
	mem.Write(0x1000, []byte{7, 0, 0, 0})
	tc := breakpointtest.NewFakeThreadContext()
	cache := &breakpointtest.FakeThreadHandleCache{IDs: []uint32{1}}
	bpMgr := breakpoint.NewManager(mem, tc, cache, registry.AMD64)
	disp := dispatcher.New(dispatcher.Config{ReaderThreads: 1})
	t.Cleanup(func() { disp.Stop(time.Second) })
	sc, err := scanner.New(disp, mem)
	if err != nil {
		t.Fatalf("scanner.New: %v", err)
	}
	f := facade.New(disp, mem, noopDebuggerPlugin{}, sc, bpMgr, nil, registry.AMD64, debugger.Observer{})

	server := rpc.NewServer()
	if err := server.RegisterName("Server", vrpc.NewServer(f)); err != nil {
		t.Fatalf("RegisterName: %v", err)
	}

	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)
	t.Cleanup(func() { clientConn.Close() })

	return vrpc.NewClient(rpc.NewClient(clientConn))
}

func TestClientAttachRoundTrips(t *testing.T) {
	c := dialedPair(t)
	if err := c.Attach(123); err != nil {
		t.Fatalf("Attach: %v", err)
	}
}

func TestClientScanRoundTrips(t *testing.T) {
	c := dialedPair(t)
	input, err := scanner.ParseValue("7", scanner.I32, scanner.LittleEndian)
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	cfg := scanner.ScanConfig{ValueType: scanner.I32, Mode: scanner.Exact, Input: input, Alignment: 1, DataSize: 4}
	if err := c.FirstScan(cfg); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if err := c.WaitForScanCompletion(time.Second); err != nil {
		t.Fatalf("WaitForScanCompletion: %v", err)
	}
	results, err := c.ScanResultsRange(0, 10)
	if err != nil {
		t.Fatalf("ScanResultsRange: %v", err)
	}
	if len(results) != 1 || results[0].Address != 0x1000 {
		t.Fatalf("ScanResultsRange = %+v", results)
	}
}

func TestClientCachedRegistersRoundTrips(t *testing.T) {
	c := dialedPair(t)
	regs, ok, err := c.CachedRegisters(1)
	if err != nil {
		t.Fatalf("CachedRegisters: %v", err)
	}
	if ok {
		t.Fatal("expected no cached snapshot before any debug event")
	}
	_ = regs
}

func TestClientFreezeRoundTrips(t *testing.T) {
	c := dialedPair(t)
	if err := c.FreezeAddress(0x1000, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("FreezeAddress: %v", err)
	}
	addrs, err := c.FrozenAddresses()
	if err != nil {
		t.Fatalf("FrozenAddresses: %v", err)
	}
	if len(addrs) != 1 || addrs[0].Address != 0x1000 {
		t.Fatalf("FrozenAddresses = %+v", addrs)
	}
	if err := c.UnfreezeAddress(0x1000); err != nil {
		t.Fatalf("UnfreezeAddress: %v", err)
	}
	addrs, err = c.FrozenAddresses()
	if err != nil {
		t.Fatalf("FrozenAddresses: %v", err)
	}
	if len(addrs) != 0 {
		t.Fatalf("expected empty freeze list, got %+v", addrs)
	}
}
