// Package store implements the per-worker Scan Result Store: an
// append-only byte sink whose base pointer is stable after Finalize, safe for one writer
// and (after Finalize) any number of concurrent readers. Record layout is
// fixed per scan configuration: 8 bytes of address, dataSize bytes of
// previous value, firstValueSize bytes of first value, little-endian on
// disk regardless of host.
//
// Two backends share the Store contract: an mmap'd sparse file
// (store_unix.go) and a portable growing in-memory buffer (store_mem.go),
// used on non-unix GOOS or when VERTEX_SCAN_STORE=mem is set. Neither
// backend reallocates after Finalize.
package store

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/PHTNCx64/vertex/verrors"
)

// RecordSize returns the byte size of one record for the given value and
// first-value widths: 8 (address) + dataSize + firstValueSize.
func RecordSize(dataSize, firstValueSize int) int {
	return 8 + dataSize + firstValueSize
}

// Store is the per-worker append-only result sink.
type Store interface {
	// Append writes one record's worth of bytes (len(data) must equal the
	// store's record size) and atomically publishes the new record count.
	// Only the owning worker may call Append, and never after Finalize.
	Append(data []byte) error

	// Finalize makes the store safe for concurrent reads. After Finalize,
	// Append must not be called again.
	Finalize() error

	// Base returns the start of the store's backing memory. The mmap
	// backend's slice is stable for the store's lifetime; the in-memory
	// backend's slice can move while records are appended and is stable
	// once Finalize has been called.
	Base() []byte

	// ResultCount is the number of fully-published records.
	ResultCount() uint64

	// RecordSize is this store's fixed per-record byte size.
	RecordSize() int

	// Close releases any OS resources (file descriptors, mappings).
	Close() error
}

// WriteRecord encodes one ScanResultRecord into dst (which must be exactly
// RecordSize(len(previous), len(first)) bytes long) in the on-disk
// little-endian layout.
func WriteRecord(dst []byte, address uint64, previous, first []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], address)
	copy(dst[8:8+len(previous)], previous)
	copy(dst[8+len(previous):], first)
}

// ReadRecord decodes one record at byte offset i*recordSize out of base.
func ReadRecord(base []byte, i int, recordSize, dataSize, firstValueSize int) (address uint64, previous, first []byte) {
	off := i * recordSize
	rec := base[off : off+recordSize]
	address = binary.LittleEndian.Uint64(rec[0:8])
	previous = rec[8 : 8+dataSize]
	first = rec[8+dataSize : 8+dataSize+firstValueSize]
	return
}

// appendCommon centralizes the "atomic count publish happens only after
// the bytes are durably written" rule both backends share: append is
// atomic with respect to resultCount.
func appendCommon(count *atomic.Uint64, write func() error) error {
	if err := write(); err != nil {
		return verrors.Wrap("store.Append", verrors.IoFailed, err)
	}
	count.Add(1)
	return nil
}
