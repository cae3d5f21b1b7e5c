package store

import (
	"sync"
	"sync/atomic"

	"github.com/PHTNCx64/vertex/verrors"
)

// memStore is the portable fallback backend: a contiguous growing []byte
// guarded by a mutex for the (rare, append-only) growth path and an
// atomic counter for the record count readers poll without locking.
type memStore struct {
	recordSize int

	mu       sync.RWMutex
	data     []byte
	final    bool
	count    atomic.Uint64
}

// NewMemStore creates an in-memory Store, used when no mmap backend is
// available or VERTEX_SCAN_STORE=mem forces it.
func NewMemStore(recordSize int) Store {
	return &memStore{recordSize: recordSize}
}

func (s *memStore) Append(data []byte) error {
	if len(data) != s.recordSize {
		return verrors.New("store.Append", verrors.InvalidParameter, "record size mismatch")
	}
	return appendCommon(&s.count, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.final {
			return verrors.New("store.Append", verrors.ProtocolViolation, "append after finalize")
		}
		s.data = append(s.data, data...)
		return nil
	})
}

func (s *memStore) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final = true
	return nil
}

func (s *memStore) Base() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *memStore) ResultCount() uint64 { return s.count.Load() }
func (s *memStore) RecordSize() int     { return s.recordSize }
func (s *memStore) Close() error        { return nil }
