package scanner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/PHTNCx64/vertex/dispatcher"
	"github.com/PHTNCx64/vertex/plugin/plugintest"
)

func TestMain(m *testing.M) {
	os.Setenv("VERTEX_SCAN_STORE", "mem")
	os.Exit(m.Run())
}

func newTestScanner(t *testing.T, mem *plugintest.FakeMemory) (*Scanner, *dispatcher.Dispatcher) {
	t.Helper()
	disp := dispatcher.New(dispatcher.Config{ReaderThreads: 2})
	t.Cleanup(func() { disp.Stop(5 * time.Second) })
	sc, err := New(disp, mem)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sc, disp
}

func TestFirstScanFindsExactMatches(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x1000, 0x200)
	mem.Write(0x1000, le32(1234))
	mem.Write(0x1010, le32(1234))
	mem.Write(0x1020, le32(9999))

	sc, _ := newTestScanner(t, mem)
	input := le32(1234)
	cfg := ScanConfig{ValueType: U32, Mode: Exact, Input: input, Alignment: 4, DataSize: 4}

	if err := sc.FirstScan(context.Background(), cfg); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if err := sc.WaitForCompletion(context.Background()); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	if sc.ResultCount() != 2 {
		t.Fatalf("ResultCount = %d, want 2", sc.ResultCount())
	}
	results := sc.ScanResultsRange(0, sc.ResultCount())
	found := map[uint64]bool{}
	for _, r := range results {
		found[r.Address] = true
	}
	if !found[0x1000] || !found[0x1010] {
		t.Fatalf("expected matches at 0x1000 and 0x1010, got %+v", results)
	}
	if found[0x1020] {
		t.Fatal("0x1020 holds 9999 and should not match")
	}
}

func TestNextScanNarrowsToChangedValues(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x2000, 0x200)
	mem.Write(0x2000, le32(10))
	mem.Write(0x2004, le32(10))
	mem.Write(0x2008, le32(10))

	sc, _ := newTestScanner(t, mem)
	first := ScanConfig{ValueType: U32, Mode: Unknown, Alignment: 4, DataSize: 4}
	if err := sc.FirstScan(context.Background(), first); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if err := sc.WaitForCompletion(context.Background()); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	initial := sc.ResultCount()
	if initial == 0 {
		t.Fatal("expected FirstScan(Unknown) to record every aligned candidate")
	}

	// Only one address changes between scans.
	mem.Write(0x2004, le32(99))

	next := ScanConfig{ValueType: U32, Mode: Changed, Alignment: 4, DataSize: 4}
	if err := sc.NextScan(context.Background(), next); err != nil {
		t.Fatalf("NextScan: %v", err)
	}
	if err := sc.WaitForCompletion(context.Background()); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	if sc.ResultCount() != 1 {
		t.Fatalf("ResultCount after NextScan(Changed) = %d, want 1", sc.ResultCount())
	}
	results := sc.ScanResultsRange(0, sc.ResultCount())
	if results[0].Address != 0x2004 {
		t.Fatalf("surviving address = %#x, want 0x2004", results[0].Address)
	}
}

func TestUndoScanRestoresPriorGeneration(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x3000, 0x100)
	mem.Write(0x3000, le32(5))
	mem.Write(0x3004, le32(5))

	sc, _ := newTestScanner(t, mem)
	first := ScanConfig{ValueType: U32, Mode: Exact, Input: le32(5), Alignment: 4, DataSize: 4}
	if err := sc.FirstScan(context.Background(), first); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if err := sc.WaitForCompletion(context.Background()); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	firstCount := sc.ResultCount()

	mem.Write(0x3004, le32(999))
	next := ScanConfig{ValueType: U32, Mode: Unchanged, Alignment: 4, DataSize: 4}
	if err := sc.NextScan(context.Background(), next); err != nil {
		t.Fatalf("NextScan: %v", err)
	}
	if err := sc.WaitForCompletion(context.Background()); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if sc.ResultCount() >= firstCount {
		t.Fatalf("expected NextScan(Unchanged) to narrow results below %d, got %d", firstCount, sc.ResultCount())
	}

	if err := sc.UndoScan(); err != nil {
		t.Fatalf("UndoScan: %v", err)
	}
	if sc.ResultCount() != firstCount {
		t.Fatalf("ResultCount after UndoScan = %d, want %d", sc.ResultCount(), firstCount)
	}
}

func TestUndoScanWithNoHistoryErrors(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x4000, 0x40)
	sc, _ := newTestScanner(t, mem)
	if err := sc.UndoScan(); err == nil {
		t.Fatal("expected error undoing with no prior generation")
	}
}

func TestAbortStopsInFlightScan(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x5000, 0x1000)
	sc, _ := newTestScanner(t, mem)
	cfg := ScanConfig{ValueType: U32, Mode: Unknown, Alignment: 4, DataSize: 4}
	if err := sc.FirstScan(context.Background(), cfg); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	sc.Abort()
	// WaitForCompletion must still return promptly even though the scan
	// was cancelled mid-flight.
	done := make(chan struct{})
	go func() {
		sc.WaitForCompletion(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForCompletion did not return after Abort")
	}
}

func TestStringContainsFirstScan(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x6000, 0x40)
	mem.Write(0x6000, []byte("player_health_value"))

	sc, _ := newTestScanner(t, mem)
	cfg := ScanConfig{ValueType: StringASCII, Mode: Contains, Input: []byte("health"), Alignment: 1, DataSize: 19}
	if err := sc.FirstScan(context.Background(), cfg); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if err := sc.WaitForCompletion(context.Background()); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if sc.ResultCount() == 0 {
		t.Fatal("expected at least one Contains match")
	}
}

func TestNextScanWithoutFirstScanErrors(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x7000, 0x40)
	sc, _ := newTestScanner(t, mem)
	cfg := ScanConfig{ValueType: U32, Mode: Exact, Input: le32(1), Alignment: 4, DataSize: 4}
	if err := sc.NextScan(context.Background(), cfg); err == nil {
		t.Fatal("expected error calling NextScan before any FirstScan")
	}
}
