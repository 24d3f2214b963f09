package x86emu

import (
	"strings"
	"testing"
)

// MemDump marks the line containing addr with an arrow and renders 16
// bytes per line in hex plus an ASCII gutter.
func TestMemDumpMarksTargetLine(t *testing.T) {
	m := newTestAreaMachine(t)
	if err := m.MemInitArea(0x2000, []byte("Hello, world!!!!")); err != nil {
		t.Fatalf("MemInitArea: %v", err)
	}

	out := m.MemDump(0x2000, 0)
	if !strings.Contains(out, "->") {
		t.Fatalf("MemDump output has no target-line marker:\n%s", out)
	}
	if !strings.Contains(out, "|Hello, world!!!!|") {
		t.Fatalf("MemDump output missing expected ASCII gutter:\n%s", out)
	}
}

// String renders every memory area name and every natural-order register.
func TestStringIncludesAreasAndRegisters(t *testing.T) {
	m := newTestAreaMachine(t)
	if err := m.MemInitAreaNamed(0x2000, []byte{1, 2, 3, 4}, "scratch"); err != nil {
		t.Fatalf("MemInitAreaNamed: %v", err)
	}
	m.RegWrite64(RAX, 0x42)

	out := m.String()
	if !strings.Contains(out, "scratch") {
		t.Fatalf("String() missing area name:\n%s", out)
	}
	if !strings.Contains(out, "RAX") {
		t.Fatalf("String() missing RAX register line:\n%s", out)
	}
}

func TestCallStackStringEmptyWhenNoCalls(t *testing.T) {
	m := newTestAreaMachine(t)
	if got := m.callStackString(); got != "(empty)" {
		t.Fatalf("callStackString() = %q, want %q", got, "(empty)")
	}
}
