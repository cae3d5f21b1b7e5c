package facade_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/PHTNCx64/vertex/breakpoint"
	"github.com/PHTNCx64/vertex/breakpoint/breakpointtest"
	"github.com/PHTNCx64/vertex/debugger"
	"github.com/PHTNCx64/vertex/dispatcher"
	"github.com/PHTNCx64/vertex/facade"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/plugin/plugintest"
	"github.com/PHTNCx64/vertex/registry"
	"github.com/PHTNCx64/vertex/scanner"
)

type fakeDebuggerPlugin struct {
	mu        sync.Mutex
	callbacks *plugin.Callbacks
	ready     chan struct{}
	ip        map[uint32]uint64
	sp        map[uint32]uint64
}

func newFakeDebuggerPlugin() *fakeDebuggerPlugin {
	return &fakeDebuggerPlugin{ready: make(chan struct{}), ip: map[uint32]uint64{}, sp: map[uint32]uint64{}}
}

func (f *fakeDebuggerPlugin) Run(ctx context.Context, cb *plugin.Callbacks) error {
	f.mu.Lock()
	f.callbacks = cb
	f.mu.Unlock()
	close(f.ready)
	return nil
}
func (f *fakeDebuggerPlugin) waitReady() *plugin.Callbacks {
	<-f.ready
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callbacks
}
func (f *fakeDebuggerPlugin) Attach(ctx context.Context, pid uint32) error { return nil }
func (f *fakeDebuggerPlugin) Detach(ctx context.Context) error            { return nil }
func (f *fakeDebuggerPlugin) Continue(ctx context.Context, passException bool) error {
	return nil
}
func (f *fakeDebuggerPlugin) Pause(ctx context.Context) error { return nil }
func (f *fakeDebuggerPlugin) Step(ctx context.Context, mode plugin.StepMode) error {
	return nil
}
func (f *fakeDebuggerPlugin) RunToAddress(ctx context.Context, addr uint64) error { return nil }
func (f *fakeDebuggerPlugin) SetBreakpoint(ctx context.Context, addr uint64, kind plugin.BreakpointKind) (uint32, error) {
	return 0, nil
}
func (f *fakeDebuggerPlugin) RemoveBreakpoint(ctx context.Context, id uint32) error { return nil }
func (f *fakeDebuggerPlugin) EnableBreakpoint(ctx context.Context, id uint32, enabled bool) error {
	return nil
}
func (f *fakeDebuggerPlugin) SetWatchpoint(ctx context.Context, spec plugin.WatchpointSpec) (uint32, error) {
	return 0, nil
}
func (f *fakeDebuggerPlugin) RemoveWatchpoint(ctx context.Context, id uint32) error { return nil }
func (f *fakeDebuggerPlugin) EnableWatchpoint(ctx context.Context, id uint32, enabled bool) error {
	return nil
}
func (f *fakeDebuggerPlugin) GetInstructionPointer(ctx context.Context, threadID uint32) (uint64, error) {
	return f.ip[threadID], nil
}
func (f *fakeDebuggerPlugin) SetInstructionPointer(ctx context.Context, threadID uint32, addr uint64) error {
	return nil
}
func (f *fakeDebuggerPlugin) GetStackPointer(ctx context.Context, threadID uint32) (uint64, error) {
	return f.sp[threadID], nil
}
func (f *fakeDebuggerPlugin) ReadRegisters(ctx context.Context, threadID uint32) (map[string]uint64, error) {
	return map[string]uint64{"rip": f.ip[threadID], "rsp": f.sp[threadID]}, nil
}

var _ plugin.DebuggerPlugin = (*fakeDebuggerPlugin)(nil)

func newTestFacade(t *testing.T) (*facade.Facade, *fakeDebuggerPlugin, *plugintest.FakeMemory) {
	t.Helper()
	mem := plugintest.NewFakeMemory(0x1000, 0x200)
	dp := newFakeDebuggerPlugin()
	tc := breakpointtest.NewFakeThreadContext()
	cache := &breakpointtest.FakeThreadHandleCache{IDs: []uint32{1}}
	bpMgr := breakpoint.NewManager(mem, tc, cache, registry.AMD64)
	disp := dispatcher.New(dispatcher.Config{ReaderThreads: 1})
	t.Cleanup(func() { disp.Stop(time.Second) })
	sc, err := scanner.New(disp, mem)
	if err != nil {
		t.Fatalf("scanner.New: %v", err)
	}
	f := facade.New(disp, mem, dp, sc, bpMgr, nil, registry.AMD64, debugger.Observer{})
	return f, dp, mem
}

func TestCachedRegistersRefreshesOnBreakpointHit(t *testing.T) {
	f, dp, _ := newTestFacade(t)
	if err := f.Attach(context.Background(), 99); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	cb := dp.waitReady()
	if _, err := f.SetBreakpoint(context.Background(), 0x1010, plugin.Software); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}
	dp.ip[1] = 0x1234
	dp.sp[1] = 0x5678

	// The first trap after Attach is the attach breakpoint, which the loop
	// consumes without an event; the second lands on the user breakpoint.
	cb.OnBreakpointHit(plugin.BreakpointHitEvent{ThreadID: 1, Address: 0x1000})
	cb.OnBreakpointHit(plugin.BreakpointHitEvent{ThreadID: 1, Address: 0x1010})

	regs, ok := f.CachedRegisters(1)
	if !ok {
		t.Fatal("expected a cached register snapshot after a breakpoint hit")
	}
	if regs["rip"] != 0x1234 || regs["rsp"] != 0x5678 {
		t.Fatalf("regs = %+v", regs)
	}
}

func TestFreezePollingRewritesAddress(t *testing.T) {
	f, _, mem := newTestFacade(t)
	mem.Write(0x1050, []byte{0x00})
	f.FreezeAddress(0x1050, []byte{0x2A})

	if err := f.StartFreezePolling(5 * time.Millisecond); err != nil {
		t.Fatalf("StartFreezePolling: %v", err)
	}
	defer f.StopFreezePolling()

	deadline := time.After(500 * time.Millisecond)
	for {
		buf := make([]byte, 1)
		mem.ReadMemory(context.Background(), 0x1050, buf)
		if buf[0] == 0x2A {
			break
		}
		select {
		case <-deadline:
			t.Fatal("frozen address was never rewritten")
		case <-time.After(time.Millisecond):
		}
	}

	addrs := f.FrozenAddresses()
	if len(addrs) != 1 || addrs[0].Address != 0x1050 {
		t.Fatalf("FrozenAddresses() = %+v", addrs)
	}

	f.UnfreezeAddress(0x1050)
	if len(f.FrozenAddresses()) != 0 {
		t.Fatal("expected freeze list empty after unfreeze")
	}
}

func TestRefreshProcessListPopulatesCache(t *testing.T) {
	f, _, _ := newTestFacade(t)
	if err := f.RefreshProcessList(context.Background()); err != nil {
		t.Fatalf("RefreshProcessList: %v", err)
	}
	procs := f.CachedProcessList()
	if len(procs) != 1 || procs[0].Name != "fake" {
		t.Fatalf("CachedProcessList() = %+v", procs)
	}
}

func TestScanResultsRangeDelegatesToScanner(t *testing.T) {
	f, _, mem := newTestFacade(t)
	mem.Write(0x1000, []byte{42, 0, 0, 0})
	input, err := scanner.ParseValue("42", scanner.I32, scanner.LittleEndian)
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	cfg := scanner.ScanConfig{ValueType: scanner.I32, Mode: scanner.Exact, Input: input, Alignment: 1, DataSize: 4}
	if err := f.FirstScan(context.Background(), cfg); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if err := f.WaitForScanCompletion(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitForScanCompletion: %v", err)
	}
	results := f.ScanResultsRange(0, 10)
	if len(results) != 1 || results[0].Address != 0x1000 {
		t.Fatalf("ScanResultsRange = %+v", results)
	}
}
