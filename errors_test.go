package x86emu

import (
	"errors"
	"testing"
)

func TestErrorIsClassifiesByKind(t *testing.T) {
	a := newError(MemoryErr, "out of bounds")
	b := newError(MemoryErr, "different message, same kind")
	if !errors.Is(a, b) {
		t.Fatalf("errors.Is(a, b) = false for two errors of the same Kind")
	}

	c := newError(DecodeErr, "bad opcode")
	if errors.Is(a, c) {
		t.Fatalf("errors.Is(a, c) = true for errors of different Kind")
	}
}

func TestErrFinishedClassification(t *testing.T) {
	m := testMachine(t, []byte{0xC3}, 0x1000) // RET
	if err := m.InitStack(0); err != nil {
		t.Fatalf("InitStack: %v", err)
	}
	if err := m.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	_, err := m.Step(nil)
	if !errors.Is(err, ErrFinished) {
		t.Fatalf("Step on a finished machine: errors.Is(err, ErrFinished) = false, got %v", err)
	}
}

func TestAddDetailAttachesStageAndSnapshots(t *testing.T) {
	e := newError(MemoryErr, "bad access")
	e.AddDetail("executing MOV", "(empty)", "(empty)", "dump")
	if e.Stage != "executing MOV" {
		t.Fatalf("Stage = %q, want %q", e.Stage, "executing MOV")
	}
	if e.Error() == "" {
		t.Fatalf("Error() returned empty string after AddDetail")
	}
}
