package facade

import (
	"context"
	"time"

	"github.com/PHTNCx64/vertex/dispatcher"
)

// FrozenAddress is one entry of the saved-addresses freeze list.
type FrozenAddress struct {
	Address uint64
	Value   []byte
}

// FreezeAddress marks address to be continuously rewritten to value by
// the freeze poller once started.
func (f *Facade) FreezeAddress(address uint64, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frozen[address] = frozenValue{value: append([]byte(nil), value...)}
}

// UnfreezeAddress stops rewriting address.
func (f *Facade) UnfreezeAddress(address uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.frozen, address)
}

// FrozenAddresses snapshots the current freeze list.
func (f *Facade) FrozenAddresses() []FrozenAddress {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FrozenAddress, 0, len(f.frozen))
	for addr, fv := range f.frozen {
		out = append(out, FrozenAddress{Address: addr, Value: fv.value})
	}
	return out
}

// StartFreezePolling runs a write-back loop on the dispatcher's dedicated
// Freeze SPSC channel, rewriting every frozen address at interval until
// StopFreezePolling is called. Idempotent: a second call while already
// running is a no-op.
func (f *Facade) StartFreezePolling(interval time.Duration) error {
	f.mu.Lock()
	if f.freezeRunning {
		f.mu.Unlock()
		return nil
	}
	f.freezeRunning = true
	f.stopFreeze = make(chan struct{})
	stop := f.stopFreeze
	f.mu.Unlock()

	return f.disp.SubmitAsync(dispatcher.Freeze, 0, func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return nil
			case <-ticker.C:
				f.writeFrozenAddresses()
			}
		}
	})
}

// StopFreezePolling stops the freeze poller started by StartFreezePolling.
func (f *Facade) StopFreezePolling() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.freezeRunning {
		return
	}
	close(f.stopFreeze)
	f.freezeRunning = false
}

func (f *Facade) writeFrozenAddresses() {
	f.mu.Lock()
	snapshot := make(map[uint64][]byte, len(f.frozen))
	for addr, fv := range f.frozen {
		snapshot[addr] = fv.value
	}
	f.mu.Unlock()

	// A per-address write failure here is non-fatal: skip it and retry
	// on the next tick rather than stopping the poller.
	for addr, val := range snapshot {
		f.mem.WriteMemory(context.Background(), addr, val)
	}
}
