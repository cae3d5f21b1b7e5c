package scanner

import "testing"

type fakeSnapshotStore struct {
	closed bool
	count  uint64
}

func (f *fakeSnapshotStore) Base() []byte        { return nil }
func (f *fakeSnapshotStore) ResultCount() uint64 { return f.count }
func (f *fakeSnapshotStore) RecordSize() int     { return 0 }
func (f *fakeSnapshotStore) Close() error        { f.closed = true; return nil }

func TestUndoStackPushPop(t *testing.T) {
	var u undoStack
	u.push(undoSnapshot{store: &fakeSnapshotStore{count: 1}, results: 1})
	u.push(undoSnapshot{store: &fakeSnapshotStore{count: 2}, results: 2})

	if u.depth() != 2 {
		t.Fatalf("depth = %d, want 2", u.depth())
	}
	snap, ok := u.pop()
	if !ok || snap.results != 2 {
		t.Fatalf("pop() = %+v, %v, want results=2", snap, ok)
	}
	if u.depth() != 1 {
		t.Fatalf("depth after pop = %d, want 1", u.depth())
	}
}

func TestUndoStackPopEmptyReturnsFalse(t *testing.T) {
	var u undoStack
	if _, ok := u.pop(); ok {
		t.Fatal("expected pop on empty stack to return ok=false")
	}
}

func TestUndoStackRetiresOldestPastMaxDepth(t *testing.T) {
	var u undoStack
	stores := make([]*fakeSnapshotStore, maxUndoDepth+2)
	for i := range stores {
		stores[i] = &fakeSnapshotStore{count: uint64(i)}
		u.push(undoSnapshot{store: stores[i], results: uint64(i)})
	}
	if u.depth() != maxUndoDepth {
		t.Fatalf("depth = %d, want %d", u.depth(), maxUndoDepth)
	}
	if !stores[0].closed {
		t.Fatal("expected oldest snapshot's store to be closed on FIFO retirement")
	}
	if !stores[1].closed {
		t.Fatal("expected second-oldest snapshot's store to be closed (two retirements occurred)")
	}
	snap, _ := u.pop()
	if snap.results != uint64(len(stores)-1) {
		t.Fatalf("most recent snapshot results = %d, want %d", snap.results, len(stores)-1)
	}
}

func TestUndoStackClearClosesAll(t *testing.T) {
	var u undoStack
	a := &fakeSnapshotStore{}
	b := &fakeSnapshotStore{}
	u.push(undoSnapshot{store: a})
	u.push(undoSnapshot{store: b})
	u.clear()
	if !a.closed || !b.closed {
		t.Fatal("expected clear to close every snapshot's store")
	}
	if u.depth() != 0 {
		t.Fatalf("depth after clear = %d, want 0", u.depth())
	}
}
