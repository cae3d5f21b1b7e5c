//go:build unix

package store

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/PHTNCx64/vertex/verrors"
)

// mmapStore is the sparse-file-backed store: the file is ftruncate'd to
// maxRecords*recordSize up front (so it is sparse on disk - only touched
// pages consume blocks) and mapped once, giving Base() a pointer that is
// stable for the store's entire lifetime.
type mmapStore struct {
	recordSize int
	file       *os.File
	data       []byte
	count      atomic.Uint64
}

// NewMmapStore creates a store backed by a sparse temp file able to hold
// up to maxRecords records without remapping.
func NewMmapStore(recordSize, maxRecords int) (Store, error) {
	f, err := os.CreateTemp("", "vertex-scan-*.store")
	if err != nil {
		return nil, verrors.Wrap("store.NewMmapStore", verrors.IoFailed, err)
	}
	size := int64(recordSize) * int64(maxRecords)
	if size == 0 {
		size = int64(recordSize) // at least one record's worth
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, verrors.Wrap("store.NewMmapStore", verrors.IoFailed, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, verrors.Wrap("store.NewMmapStore", verrors.IoFailed, err)
	}
	return &mmapStore{recordSize: recordSize, file: f, data: data}, nil
}

func (s *mmapStore) Append(data []byte) error {
	if len(data) != s.recordSize {
		return verrors.New("store.Append", verrors.InvalidParameter, "record size mismatch")
	}
	idx := s.count.Load()
	offset := int64(idx) * int64(s.recordSize)
	if offset+int64(s.recordSize) > int64(len(s.data)) {
		return verrors.New("store.Append", verrors.ResourceBusy, fmt.Sprintf("store capacity exhausted at record %d", idx))
	}
	return appendCommon(&s.count, func() error {
		copy(s.data[offset:offset+int64(s.recordSize)], data)
		return nil
	})
}

func (s *mmapStore) Finalize() error {
	return unix.Msync(s.data, unix.MS_SYNC)
}

func (s *mmapStore) Base() []byte { return s.data }

func (s *mmapStore) ResultCount() uint64 { return s.count.Load() }
func (s *mmapStore) RecordSize() int     { return s.recordSize }

func (s *mmapStore) Close() error {
	err1 := unix.Munmap(s.data)
	err2 := s.file.Close()
	os.Remove(s.file.Name())
	if err1 != nil {
		return verrors.Wrap("store.Close", verrors.IoFailed, err1)
	}
	if err2 != nil {
		return verrors.Wrap("store.Close", verrors.IoFailed, err2)
	}
	return nil
}
