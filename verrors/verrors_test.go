package verrors

import (
	"errors"
	"testing"
)

func TestErrorMessageShapes(t *testing.T) {
	e := New("scanner.FirstScan", InvalidParameter, "alignment must be a power of two")
	if got, want := e.Error(), "vertex: scanner.FirstScan: alignment must be a power of two"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapPreservesKindAcrossBoundaries(t *testing.T) {
	inner := New("store.append", IoFailed, "short write")
	outer := Wrap("scanner.flush", "", inner)
	if outer.Kind != IoFailed {
		t.Fatalf("Kind = %v, want IoFailed", outer.Kind)
	}
	if outer.Op != "scanner.flush" {
		t.Fatalf("Op = %q, want scanner.flush", outer.Op)
	}
}

func TestWrapPlainError(t *testing.T) {
	plain := errors.New("boom")
	wrapped := Wrap("debugger.Continue", ProtocolViolation, plain)
	if wrapped.Kind != ProtocolViolation {
		t.Fatalf("Kind = %v, want ProtocolViolation", wrapped.Kind)
	}
	if !errors.Is(wrapped, plain) {
		t.Fatal("expected errors.Is to find the wrapped plain error via Unwrap")
	}
}

func TestIsMatchesByKindNotIdentity(t *testing.T) {
	a := New("breakpoint.SetHardware", LimitReached, "no free DR slot")
	b := New("breakpoint.SetWatchpoint", LimitReached, "no free DR slot")
	if !errors.Is(a, b) {
		t.Fatal("expected two distinct *Error values with the same Kind to match via errors.Is")
	}

	c := New("breakpoint.Remove", NotFound, "no such id")
	if errors.Is(a, c) {
		t.Fatal("expected different Kinds to not match")
	}
}

func TestOfHelper(t *testing.T) {
	err := New("scanner.NextScan", Aborted, "scan cancelled")
	if !Of(err, Aborted) {
		t.Fatal("Of should report true for matching kind")
	}
	if Of(err, NotFound) {
		t.Fatal("Of should report false for non-matching kind")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap("op", IoFailed, nil) != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
}
