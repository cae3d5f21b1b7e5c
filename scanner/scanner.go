package scanner

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/PHTNCx64/vertex/allocator"
	"github.com/PHTNCx64/vertex/dispatcher"
	"github.com/PHTNCx64/vertex/plugin"
	"github.com/PHTNCx64/vertex/store"
	"github.com/PHTNCx64/vertex/verrors"
)

// regionBatchThreshold is the chunk size (bytes) a FirstScan worker reads
// in one ReadMemory call while sweeping a region: large enough to
// amortize syscall overhead, small enough that one bad region doesn't
// force a multi-megabyte read.
const regionBatchThreshold = 50000

// defaultStoreCapacity is the maxRecords value FirstScan and NextScan pass
// to store.New for every worker store; the Scanner has no option to change
// it. The mmap backend rejects Append with ResourceBusy once a store holds
// this many records; the in-memory backend ignores the limit.
const defaultStoreCapacity = 1 << 20

// Scanner orchestrates first-scan and next-scan passes across the
// dispatcher's scanner worker pool, persisting surviving addresses into
// one store.Store per worker. A Scanner is not safe for concurrent
// FirstScan/NextScan/UndoScan calls; callers serialize scan requests
// (the facade layer owns that serialization).
type Scanner struct {
	disp   *dispatcher.Dispatcher
	reader plugin.MemoryReader

	mu        sync.Mutex
	config    ScanConfig
	stores    []store.Store
	resultCnt uint64
	undo      undoStack
	pool      *allocator.Pool[ScanResultRecord]

	scanning atomic.Bool
	cancel   context.CancelFunc
	pending  []<-chan error
}

// New creates a Scanner bound to a dispatcher and a memory reader plugin.
func New(disp *dispatcher.Dispatcher, reader plugin.MemoryReader) (*Scanner, error) {
	pool, err := allocator.NewPool[ScanResultRecord](1024)
	if err != nil {
		return nil, verrors.Wrap("scanner.New", verrors.InvalidParameter, err)
	}
	return &Scanner{disp: disp, reader: reader, pool: pool}, nil
}

// ResultCount reports the number of addresses surviving the current scan
// generation.
func (s *Scanner) ResultCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultCnt
}

// UndoDepth reports how many prior generations are available to UndoScan.
func (s *Scanner) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo.depth()
}

// FirstScan discards any in-progress generation chain and sweeps every
// enumerated region for cfg's value/mode. It is asynchronous: callers
// observe completion via WaitForCompletion.
func (s *Scanner) FirstScan(ctx context.Context, cfg ScanConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Mode.NeedsPreviousValue() {
		return verrors.New("scanner.FirstScan", verrors.InvalidParameter, "mode requires a previous value; only valid on NextScan")
	}
	cmp := resolveComparator(cfg.ValueType, cfg.Mode)
	if cmp == nil {
		return verrors.New("scanner.FirstScan", verrors.InvalidParameter, "no comparator for this value type/mode combination")
	}

	regions, err := s.reader.EnumerateRegions(ctx)
	if err != nil {
		return verrors.Wrap("scanner.FirstScan", verrors.IoFailed, err)
	}

	s.mu.Lock()
	s.undo.clear()
	s.closeStoresLocked()
	s.mu.Unlock()

	n := s.disp.NumScannerWorkers()
	recordSize := store.RecordSize(cfg.DataSize, cfg.FirstValueSize())
	newStores := make([]store.Store, n)
	for i := range newStores {
		st, err := store.New(recordSize, defaultStoreCapacity)
		if err != nil {
			return verrors.Wrap("scanner.FirstScan", verrors.IoFailed, err)
		}
		newStores[i] = st
	}

	buckets := partitionRegions(regions, n)

	scanCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.pending = nil
	s.mu.Unlock()
	s.scanning.Store(true)

	var pending []<-chan error
	for worker, bucket := range buckets {
		worker, bucket := worker, bucket
		st := newStores[worker]
		fut, err := s.disp.Submit(dispatcher.Scanner, worker, func() error {
			return s.sweepRegions(scanCtx, bucket, cfg, cmp, st)
		})
		if err != nil {
			cancel()
			return verrors.Wrap("scanner.FirstScan", verrors.IoFailed, err)
		}
		pending = append(pending, fut)
	}

	s.mu.Lock()
	s.pending = pending
	s.config = cfg
	s.stores = newStores
	s.mu.Unlock()

	return nil
}

// sweepRegions is one worker's FirstScan body: read each assigned region
// in regionBatchThreshold-sized chunks, test every aligned offset at which
// a whole value fits inside the chunk, and append matches to st. A value
// that straddles two chunks is not tested.
func (s *Scanner) sweepRegions(ctx context.Context, regions []plugin.Region, cfg ScanConfig, cmp Comparator, st store.Store) error {
	buf := make([]byte, regionBatchThreshold)
	rec := make([]byte, st.RecordSize())

	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return err
		}
		base, size := region.Base, region.Size
		for off := uint64(0); off < size; off += uint64(len(buf)) {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunkLen := uint64(len(buf))
			if off+chunkLen > size {
				chunkLen = size - off
			}
			if chunkLen < uint64(cfg.DataSize) {
				break
			}
			chunk := buf[:chunkLen]
			if err := s.reader.ReadMemory(ctx, base+off, chunk); err != nil {
				continue // unreadable sub-region (e.g. guard page); skip it
			}
			for i := uint64(0); i+uint64(cfg.DataSize) <= chunkLen; i += uint64(cfg.Alignment) {
				candidate := chunk[i : i+uint64(cfg.DataSize)]
				current := swapToHostOrder(candidate, cfg.Endianness)
				if !cmp(current, nil, cfg.Input, cfg.Input2) {
					continue
				}
				addr := base + off + i
				store.WriteRecord(rec, addr, candidate, candidate)
				if err := st.Append(rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// NextScan refines the current generation's surviving addresses against a
// new config, using bundled reads over the previous store's addresses.
func (s *Scanner) NextScan(ctx context.Context, cfg ScanConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.stores == nil {
		s.mu.Unlock()
		return verrors.New("scanner.NextScan", verrors.InvalidParameter, "no scan in progress; call FirstScan first")
	}
	oldCfg := s.config
	oldStores := s.stores
	oldCount := s.resultCnt
	s.mu.Unlock()

	cmp := resolveComparator(cfg.ValueType, cfg.Mode)
	if cmp == nil {
		return verrors.New("scanner.NextScan", verrors.InvalidParameter, "no comparator for this value type/mode combination")
	}

	recordSize := store.RecordSize(cfg.DataSize, cfg.FirstValueSize())
	newStores := make([]store.Store, len(oldStores))
	for i := range newStores {
		st, err := store.New(recordSize, defaultStoreCapacity)
		if err != nil {
			return verrors.Wrap("scanner.NextScan", verrors.IoFailed, err)
		}
		newStores[i] = st
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.scanning.Store(true)

	var pending []<-chan error
	for worker := range oldStores {
		worker := worker
		old := oldStores[worker]
		dst := newStores[worker]
		fut, err := s.disp.Submit(dispatcher.Scanner, worker, func() error {
			return s.refineStore(scanCtx, old, oldCfg, cfg, cmp, dst)
		})
		if err != nil {
			cancel()
			return verrors.Wrap("scanner.NextScan", verrors.IoFailed, err)
		}
		pending = append(pending, fut)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.pending = pending
	s.undo.push(undoSnapshot{config: oldCfg, store: multiStoreAdapter{oldStores}, results: oldCount})
	s.config = cfg
	s.stores = newStores
	s.mu.Unlock()

	return nil
}

// refineStore is one worker's NextScan body: bundle-read the addresses
// held in old, compare against cfg using each record's stored previous
// value, and append survivors (with their first value carried forward
// unchanged) to dst.
func (s *Scanner) refineStore(ctx context.Context, old store.Store, oldCfg, cfg ScanConfig, cmp Comparator, dst store.Store) error {
	count := int(old.ResultCount())
	if count == 0 {
		return nil
	}
	base := old.Base()
	recordSize := old.RecordSize()

	type rec struct {
		addr    uint64
		prev    []byte
		first   []byte
	}
	records := make([]rec, count)
	addrs := make([]uint64, count)
	for i := 0; i < count; i++ {
		addr, prev, first := store.ReadRecord(base, i, recordSize, oldCfg.DataSize, oldCfg.FirstValueSize())
		records[i] = rec{addr: addr, prev: prev, first: first}
		addrs[i] = addr
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	byAddr := make(map[uint64]rec, count)
	for _, r := range records {
		byAddr[r.addr] = r
	}

	bundles := buildBundles(addrs, cfg.DataSize)
	out := make([]byte, store.RecordSize(cfg.DataSize, cfg.FirstValueSize()))

	for _, b := range bundles {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, err := readBundle(ctx, s.reader, b, cfg.DataSize)
		if err != nil {
			return err
		}
		for addr, raw := range current {
			r := byAddr[addr]
			currentHost := swapToHostOrder(raw, cfg.Endianness)
			previousHost := swapToHostOrder(r.prev, oldCfg.Endianness)
			if !cmp(currentHost, previousHost, cfg.Input, cfg.Input2) {
				continue
			}
			store.WriteRecord(out, addr, raw, r.first)
			if err := dst.Append(out); err != nil {
				return err
			}
		}
	}
	return nil
}

// UndoScan restores the previous scan generation, discarding the current
// one, bounded by the undo stack's maxUndoDepth entries.
func (s *Scanner) UndoScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.undo.pop()
	if !ok {
		return verrors.New("scanner.UndoScan", verrors.NotFound, "no scan generation to undo")
	}
	s.closeStoresLocked()
	s.config = snap.config
	s.stores = snap.store.(multiStoreAdapter).stores
	s.resultCnt = snap.results
	return nil
}

// WaitForCompletion blocks until every worker task submitted by the most
// recent FirstScan/NextScan finishes, then publishes the aggregate result
// count. It returns the first worker error encountered, if any.
func (s *Scanner) WaitForCompletion(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	stores := s.stores
	s.mu.Unlock()

	var firstErr error
	for _, fut := range pending {
		select {
		case err := <-fut:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var total uint64
	for _, st := range stores {
		if firstErr == nil {
			if err := st.Finalize(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		total += st.ResultCount()
	}

	s.mu.Lock()
	s.resultCnt = total
	s.pending = nil
	s.scanning.Store(false)
	s.mu.Unlock()

	return firstErr
}

// Abort cancels the in-flight scan's context; workers observe ctx.Err()
// at their next region/bundle boundary and return early.
func (s *Scanner) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsScanning reports whether a FirstScan/NextScan is currently in flight.
func (s *Scanner) IsScanning() bool {
	return s.scanning.Load()
}

// ScanResultsRange returns up to count ScanResultRecord values starting at
// the global offset start, walking the worker stores in order. It does
// not reallocate the stores' backing memory; returned byte slices alias
// store-owned storage and must not be retained past the next
// FirstScan/NextScan/UndoScan.
func (s *Scanner) ScanResultsRange(start, count uint64) []ScanResultRecord {
	s.mu.Lock()
	stores := s.stores
	cfg := s.config
	s.mu.Unlock()

	var out []ScanResultRecord
	var skipped uint64
	for _, st := range stores {
		n := st.ResultCount()
		if skipped+n <= start {
			skipped += n
			continue
		}
		base := st.Base()
		recordSize := st.RecordSize()
		firstIdx := uint64(0)
		if start > skipped {
			firstIdx = start - skipped
		}
		for i := firstIdx; i < n && uint64(len(out)) < count; i++ {
			addr, prev, first := store.ReadRecord(base, int(i), recordSize, cfg.DataSize, cfg.FirstValueSize())
			out = append(out, ScanResultRecord{Address: addr, PreviousValue: prev, FirstValue: first})
		}
		skipped += n
		if uint64(len(out)) >= count {
			break
		}
	}
	return out
}

func (s *Scanner) closeStoresLocked() {
	for _, st := range s.stores {
		st.Close()
	}
	s.stores = nil
	s.resultCnt = 0
}

// multiStoreAdapter lets undo.go's snapshotStore interface (which models a
// single store) carry this scanner's per-worker store slice without
// undo.go needing to import the store package directly.
type multiStoreAdapter struct {
	stores []store.Store
}

func (m multiStoreAdapter) Base() []byte      { return nil }
func (m multiStoreAdapter) ResultCount() uint64 {
	var n uint64
	for _, st := range m.stores {
		n += st.ResultCount()
	}
	return n
}
func (m multiStoreAdapter) RecordSize() int { return 0 }
func (m multiStoreAdapter) Close() error {
	for _, st := range m.stores {
		st.Close()
	}
	return nil
}

// partitionRegions round-robins regions across n workers so a handful of
// huge regions doesn't starve the rest of the pool.
func partitionRegions(regions []plugin.Region, n int) [][]plugin.Region {
	buckets := make([][]plugin.Region, n)
	for i, r := range regions {
		w := i % n
		buckets[w] = append(buckets[w], r)
	}
	return buckets
}
