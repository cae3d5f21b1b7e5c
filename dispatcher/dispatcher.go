// Package dispatcher implements the channelised worker pool that isolates
// long-running scan I/O, the OS debug loop, freezer polling, and UI
// background work so none blocks another. Each worker is a dedicated
// goroutine draining an unbuffered task channel and replying on a
// per-task future channel; only the Debugger queue's goroutine is
// runtime.LockOSThread-pinned. There are four named channel kinds plus a
// single-threaded mode that funnels everything onto one MPSC queue.
package dispatcher

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/PHTNCx64/vertex/verrors"
)

// Channel names a dispatcher queue kind.
type Channel int

const (
	Scanner Channel = iota
	Debugger
	Freeze
	ProcessList
)

func (c Channel) String() string {
	switch c {
	case Scanner:
		return "Scanner"
	case Debugger:
		return "Debugger"
	case Freeze:
		return "Freeze"
	case ProcessList:
		return "ProcessList"
	default:
		return "Channel(unknown)"
	}
}

// Task is a move-only unit of work returning a status. Submission either
// returns a future for the completion value (Submit) or is
// fire-and-forget (SubmitAsync).
type Task func() error

// Config configures a Dispatcher at creation.
type Config struct {
	// ReaderThreads is N, the scanner worker pool size. Clamped to 1 when
	// SingleThreaded is set.
	ReaderThreads int
	// SingleThreaded keeps the debugger's own SPSC thread (and every other
	// channel) serialized onto one MPSC queue.
	SingleThreaded bool
}

type queue struct {
	tasks chan Task
	done  chan struct{}
}

// Dispatcher owns the named channels and their drainer goroutines.
type Dispatcher struct {
	cfg Config

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup

	scannerQueues []*queue
	debuggerQ     *queue
	freezeQ       *queue
	processListQ  *queue

	// singleQ is the one MPSC queue used in single-threaded mode; all four
	// logical channels feed it.
	singleQ *queue
}

// New creates and starts a Dispatcher per cfg.
func New(cfg Config) *Dispatcher {
	n := cfg.ReaderThreads
	if n <= 0 {
		n = 1
	}
	if cfg.SingleThreaded {
		n = 1
	}
	cfg.ReaderThreads = n

	d := &Dispatcher{cfg: cfg}

	if cfg.SingleThreaded {
		d.singleQ = d.startQueue(false)
		return d
	}

	d.scannerQueues = make([]*queue, n)
	for i := 0; i < n; i++ {
		d.scannerQueues[i] = d.startQueue(false)
	}
	d.debuggerQ = d.startQueue(true)
	d.freezeQ = d.startQueue(false)
	d.processListQ = d.startQueue(false)
	return d
}

// startQueue launches a drainer goroutine for one queue. pinThread mirrors
// ptraceRun's runtime.LockOSThread() call: the debugger channel needs a
// fixed OS thread because thread-context/ptrace-equivalent operations are
// thread-affine on the platforms this targets.
func (d *Dispatcher) startQueue(pinThread bool) *queue {
	q := &queue{tasks: make(chan Task), done: make(chan struct{})}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if pinThread {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}
		for task := range q.tasks {
			_ = task() // callers receive their result via the future channel (see submit)
		}
		close(q.done)
	}()
	return q
}

func (d *Dispatcher) queueFor(ch Channel, workerIndex int) (*queue, error) {
	if d.cfg.SingleThreaded {
		return d.singleQ, nil
	}
	switch ch {
	case Scanner:
		if workerIndex < 0 || workerIndex >= len(d.scannerQueues) {
			return nil, fmt.Errorf("dispatcher: worker index %d out of range [0,%d)", workerIndex, len(d.scannerQueues))
		}
		return d.scannerQueues[workerIndex], nil
	case Debugger:
		return d.debuggerQ, nil
	case Freeze:
		return d.freezeQ, nil
	case ProcessList:
		return d.processListQ, nil
	default:
		return nil, fmt.Errorf("dispatcher: unknown channel %v", ch)
	}
}

// Submit enqueues task on the given channel (workerIndex only matters for
// Scanner) and returns a future channel receiving its error result. Tasks
// on one channel dequeue in submission order; there is no ordering
// guarantee across channels.
func (d *Dispatcher) Submit(ch Channel, workerIndex int, task Task) (<-chan error, error) {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return nil, verrors.New("dispatcher.Submit", verrors.ResourceBusy, "dispatcher stopped")
	}

	q, err := d.queueFor(ch, workerIndex)
	if err != nil {
		return nil, verrors.Wrap("dispatcher.Submit", verrors.InvalidParameter, err)
	}

	future := make(chan error, 1)
	wrapped := func() error {
		err := task()
		future <- err
		return err
	}
	q.tasks <- wrapped
	return future, nil
}

// SubmitAsync is fire-and-forget: the caller does not wait for the result.
func (d *Dispatcher) SubmitAsync(ch Channel, workerIndex int, task Task) error {
	_, err := d.Submit(ch, workerIndex, task)
	return err
}

// NumScannerWorkers reports N, the effective scanner worker pool size
// (1 in single-threaded mode).
func (d *Dispatcher) NumScannerWorkers() int {
	return d.cfg.ReaderThreads
}

// Stop drains in-flight callbacks with a bounded timeout, then destroys
// worker threads. Idempotent: calling Stop twice is a no-op the second
// time.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	for _, q := range d.allQueues() {
		close(q.tasks)
	}

	doneCh := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		return nil
	case <-time.After(timeout):
		return verrors.New("dispatcher.Stop", verrors.IoFailed, "timed out waiting for worker drain")
	}
}

func (d *Dispatcher) allQueues() []*queue {
	if d.cfg.SingleThreaded {
		return []*queue{d.singleQ}
	}
	qs := append([]*queue{}, d.scannerQueues...)
	qs = append(qs, d.debuggerQ, d.freezeQ, d.processListQ)
	return qs
}
