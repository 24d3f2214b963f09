package x86emu

import (
	"context"
	"testing"
)

// testMachine loads code at addr, sets RIP there, and runs with a
// background context — the same "rig" shape as the teacher's
// newCPUZ80TestRig/resetAndLoad helpers, adapted from a bus-backed 16-bit
// CPU to this module's code-region/area-backed Machine.
func testMachine(t *testing.T, code []byte, addr uint64) *Machine {
	t.Helper()
	m, err := NewSeeded(code, addr, addr, 1)
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	return m
}

func (m *Machine) mustStep(t *testing.T) bool {
	t.Helper()
	cont, err := m.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return cont
}

func requireEqualU64(t *testing.T, name string, got, want uint64) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = %#x, want %#x", name, got, want)
	}
}

func requireFlag(t *testing.T, name string, got, want bool) {
	t.Helper()
	if got != want {
		t.Fatalf("flag %s = %v, want %v", name, got, want)
	}
}
