package store

import (
	"testing"
)

func TestRecordSize(t *testing.T) {
	if got, want := RecordSize(4, 4), 16; got != want {
		t.Fatalf("RecordSize(4,4) = %d, want %d", got, want)
	}
}

func TestWriteReadRecordRoundTrip(t *testing.T) {
	recordSize := RecordSize(4, 4)
	buf := make([]byte, recordSize*2)

	WriteRecord(buf[0:recordSize], 0x1000, []byte{1, 2, 3, 4}, []byte{9, 9, 9, 9})
	WriteRecord(buf[recordSize:2*recordSize], 0x2000, []byte{5, 6, 7, 8}, []byte{8, 8, 8, 8})

	addr, prev, first := ReadRecord(buf, 0, recordSize, 4, 4)
	if addr != 0x1000 {
		t.Fatalf("addr = %#x, want 0x1000", addr)
	}
	if string(prev) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("prev = %v", prev)
	}
	if string(first) != string([]byte{9, 9, 9, 9}) {
		t.Fatalf("first = %v", first)
	}

	addr2, _, _ := ReadRecord(buf, 1, recordSize, 4, 4)
	if addr2 != 0x2000 {
		t.Fatalf("addr2 = %#x, want 0x2000", addr2)
	}
}

func TestMemStoreAppendAndFinalize(t *testing.T) {
	recordSize := RecordSize(4, 4)
	s := NewMemStore(recordSize)

	rec := make([]byte, recordSize)
	WriteRecord(rec, 0x3000, []byte{1, 1, 1, 1}, []byte{2, 2, 2, 2})
	if err := s.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if s.ResultCount() != 1 {
		t.Fatalf("ResultCount = %d, want 1", s.ResultCount())
	}

	if err := s.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	addr, _, _ := ReadRecord(s.Base(), 0, recordSize, 4, 4)
	if addr != 0x3000 {
		t.Fatalf("addr = %#x, want 0x3000", addr)
	}
}

func TestMemStoreRejectsWrongRecordSize(t *testing.T) {
	s := NewMemStore(RecordSize(4, 4))
	if err := s.Append(make([]byte, 3)); err == nil {
		t.Fatal("expected error for mismatched record size")
	}
}

func TestMemStoreAppendAfterFinalizeFails(t *testing.T) {
	s := NewMemStore(RecordSize(4, 4))
	s.Finalize()
	rec := make([]byte, RecordSize(4, 4))
	if err := s.Append(rec); err == nil {
		t.Fatal("expected error appending after finalize")
	}
}

func TestMemStoreConcurrentReadersAfterFinalize(t *testing.T) {
	recordSize := RecordSize(8, 0)
	s := NewMemStore(recordSize)
	for i := 0; i < 100; i++ {
		rec := make([]byte, recordSize)
		WriteRecord(rec, uint64(i), nil, nil)
		if err := s.Append(rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	s.Finalize()

	done := make(chan bool, 8)
	for g := 0; g < 8; g++ {
		go func() {
			for i := 0; i < 100; i++ {
				addr, _, _ := ReadRecord(s.Base(), i, recordSize, 8, 0)
				if addr != uint64(i) {
					t.Errorf("record %d: addr = %d, want %d", i, addr, i)
				}
			}
			done <- true
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}
