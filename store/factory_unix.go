//go:build unix

package store

import "os"

// New picks the mmap-backed store unless VERTEX_SCAN_STORE=mem forces the
// portable in-memory backend (useful in CI sandboxes without tmpfs, and in
// tests that want deterministic Base() addresses).
func New(recordSize, maxRecords int) (Store, error) {
	if os.Getenv("VERTEX_SCAN_STORE") == "mem" {
		return NewMemStore(recordSize), nil
	}
	return NewMmapStore(recordSize, maxRecords)
}
