package facade

import (
	"context"

	"github.com/PHTNCx64/vertex/dispatcher"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/verrors"
)

// RefreshProcessList re-enumerates processes on the dispatcher's
// dedicated ProcessList SPSC channel and updates the cache
// CachedProcessList reads from.
func (f *Facade) RefreshProcessList(ctx context.Context) error {
	future, err := f.disp.Submit(dispatcher.ProcessList, 0, func() error {
		procs, err := f.mem.ListProcesses(ctx)
		if err != nil {
			return err
		}
		f.mu.Lock()
		f.processes = procs
		f.mu.Unlock()
		return nil
	})
	if err != nil {
		return verrors.Wrap("facade.RefreshProcessList", verrors.IoFailed, err)
	}
	if err := <-future; err != nil {
		return verrors.Wrap("facade.RefreshProcessList", verrors.IoFailed, err)
	}
	return nil
}

// CachedProcessList returns the last refresh's results without blocking
// on the target.
func (f *Facade) CachedProcessList() []plugin.ProcessInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]plugin.ProcessInfo(nil), f.processes...)
}
