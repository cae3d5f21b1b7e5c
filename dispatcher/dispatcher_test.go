package dispatcher

import (
	"errors"
	"testing"
	"time"
)

func TestSubmitScannerRunsOnAssignedWorker(t *testing.T) {
	d := New(Config{ReaderThreads: 4})
	defer d.Stop(5 * time.Second)

	fut, err := d.Submit(Scanner, 2, func() error { return nil })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := <-fut; err != nil {
		t.Fatalf("task error: %v", err)
	}
}

func TestSubmitScannerInvalidWorkerIndex(t *testing.T) {
	d := New(Config{ReaderThreads: 2})
	defer d.Stop(5 * time.Second)

	if _, err := d.Submit(Scanner, 99, func() error { return nil }); err == nil {
		t.Fatal("expected error for out-of-range worker index")
	}
}

func TestOrderingWithinOneChannel(t *testing.T) {
	d := New(Config{ReaderThreads: 1})
	defer d.Stop(5 * time.Second)

	var order []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		fut, _ := d.Submit(Scanner, 0, func() error {
			order = append(order, i)
			if i == 9 {
				close(done)
			}
			return nil
		})
		_ = fut
	}
	<-done
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d (submission order not preserved)", i, v, i)
		}
	}
}

func TestSingleThreadedModeClampsWorkers(t *testing.T) {
	d := New(Config{ReaderThreads: 8, SingleThreaded: true})
	defer d.Stop(5 * time.Second)

	if d.NumScannerWorkers() != 1 {
		t.Fatalf("NumScannerWorkers = %d, want 1 in single-threaded mode", d.NumScannerWorkers())
	}
}

func TestSingleThreadedModeSerializesAllChannels(t *testing.T) {
	d := New(Config{SingleThreaded: true})
	defer d.Stop(5 * time.Second)

	var order []string
	done := make(chan struct{}, 1)

	d.Submit(Scanner, 0, func() error { order = append(order, "scanner"); return nil })
	d.Submit(Debugger, 0, func() error { order = append(order, "debugger"); return nil })
	fut, _ := d.Submit(Freeze, 0, func() error { order = append(order, "freeze"); done <- struct{}{}; return nil })
	<-fut
	<-done

	if len(order) != 3 || order[0] != "scanner" || order[1] != "debugger" || order[2] != "freeze" {
		t.Fatalf("order = %v, want [scanner debugger freeze]", order)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := New(Config{ReaderThreads: 2})
	if err := d.Stop(2 * time.Second); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := d.Stop(2 * time.Second); err != nil {
		t.Fatalf("second Stop (should be no-op): %v", err)
	}
}

func TestSubmitAfterStopFails(t *testing.T) {
	d := New(Config{ReaderThreads: 1})
	d.Stop(2 * time.Second)
	if _, err := d.Submit(Scanner, 0, func() error { return nil }); err == nil {
		t.Fatal("expected error submitting after Stop")
	}
}

func TestTaskErrorPropagatesToFuture(t *testing.T) {
	d := New(Config{ReaderThreads: 1})
	defer d.Stop(5 * time.Second)

	wantErr := errors.New("boom")
	fut, _ := d.Submit(Scanner, 0, func() error { return wantErr })
	if err := <-fut; err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}
