package x86emu

import (
	"context"
	"testing"
)

// Pre-mnemonic hooks run in registration order; a Handled verdict skips
// the native handler and any later hook in the list.
func TestHookBeforeMnemonicOrderingAndHandledShortCircuits(t *testing.T) {
	m := testMachine(t, []byte{0x90}, 0x1000) // NOP
	var order []string

	if err := m.HookBeforeMnemonic(NOP, func(m *Machine) (Verdict, error) {
		order = append(order, "first")
		return Unhandled, nil
	}); err != nil {
		t.Fatalf("HookBeforeMnemonic: %v", err)
	}
	if err := m.HookBeforeMnemonic(NOP, func(m *Machine) (Verdict, error) {
		order = append(order, "second")
		return Handled, nil
	}); err != nil {
		t.Fatalf("HookBeforeMnemonic: %v", err)
	}
	if err := m.HookBeforeMnemonic(NOP, func(m *Machine) (Verdict, error) {
		order = append(order, "third")
		return Unhandled, nil
	}); err != nil {
		t.Fatalf("HookBeforeMnemonic: %v", err)
	}

	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	want := []string{"first", "second"}
	if len(order) != len(want) {
		t.Fatalf("hook call order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("hook call order = %v, want %v", order, want)
		}
	}
}

// Post-mnemonic hooks run after the native handler, even when no
// pre-hook claimed the step.
func TestHookAfterMnemonicRunsAfterNativeHandler(t *testing.T) {
	m := testMachine(t, []byte{0x48, 0xC7, 0xC0, 0x05, 0x00, 0x00, 0x00}, 0x1000) // MOV RAX,5
	var sawRAX uint64

	if err := m.HookAfterMnemonic(MOV, func(m *Machine) (Verdict, error) {
		sawRAX = m.RegRead64(RAX)
		return Unhandled, nil
	}); err != nil {
		t.Fatalf("HookAfterMnemonic: %v", err)
	}

	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	requireEqualU64(t, "RAX seen by post-hook", sawRAX, 5)
}

// A hook cannot mutate hook registration while a hook of the same
// machine is running (spec.md §4.5's re-entrancy guard).
func TestHookRegistrationGuardedDuringRun(t *testing.T) {
	m := testMachine(t, []byte{0x90}, 0x1000) // NOP
	var innerErr error

	if err := m.HookBeforeMnemonic(NOP, func(m *Machine) (Verdict, error) {
		innerErr = m.HookBeforeMnemonic(NOP, func(m *Machine) (Verdict, error) {
			return Unhandled, nil
		})
		return Unhandled, nil
	}); err != nil {
		t.Fatalf("HookBeforeMnemonic: %v", err)
	}

	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if innerErr == nil {
		t.Fatalf("registering a hook from within a running hook succeeded, want error")
	}
}

// Stop() called from within a hook lets post-hooks still run for the
// current step, and finishes the machine only once the step returns.
func TestStopFromHookFinishesAfterPostHooks(t *testing.T) {
	m := testMachine(t, []byte{0x90, 0x90}, 0x1000) // NOP; NOP
	postHookRan := false

	if err := m.HookBeforeMnemonic(NOP, func(m *Machine) (Verdict, error) {
		m.Stop()
		return Unhandled, nil
	}); err != nil {
		t.Fatalf("HookBeforeMnemonic: %v", err)
	}
	if err := m.HookAfterMnemonic(NOP, func(m *Machine) (Verdict, error) {
		postHookRan = true
		return Unhandled, nil
	}); err != nil {
		t.Fatalf("HookAfterMnemonic: %v", err)
	}

	cont, err := m.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !postHookRan {
		t.Fatalf("post-hook did not run after Stop() from a pre-hook")
	}
	if cont {
		t.Fatalf("Step reported continue=true after Stop(), want false")
	}
	if !m.Finished() {
		t.Fatalf("Finished() = false after Stop(), want true")
	}
}

// HandleSyscalls only invokes its callback for syscall numbers in its own
// set, letting others (like the core's own brk/exit hooks) see the rest.
func TestHandleSyscallsFiltersByNumber(t *testing.T) {
	m := testMachine(t, []byte{0x0F, 0x05}, 0x1000) // SYSCALL
	if err := m.InitStack(0); err != nil {
		t.Fatalf("InitStack: %v", err)
	}
	m.RegWrite64(RAX, 9999) // not one of the core hooks, not registered below
	called := false
	m.HandleSyscalls([]uint64{9999}, func(m *Machine) (Verdict, error) {
		called = true
		m.RegWrite64(RAX, 0)
		return Handled, nil
	})

	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !called {
		t.Fatalf("registered syscall hook was not invoked")
	}
}
