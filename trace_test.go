package x86emu

import (
	"context"
	"testing"
)

// A SYSCALL's trace entry reflects register values at the call site,
// recorded before any hook (including a hook that mutates RAX to signal
// success/failure) can change them.
func TestTraceRecordsCallSiteValuesBeforeHooks(t *testing.T) {
	m := testMachine(t, []byte{0x0F, 0x05}, 0x1000) // SYSCALL
	m.RegWrite64(RAX, 999)
	m.RegWrite64(RDI, 0x11)
	m.RegWrite64(RSI, 0x22)

	if err := m.HookBeforeMnemonic(SYSCALL, func(m *Machine) (Verdict, error) {
		m.RegWrite64(RAX, 0) // mutate after trace should already be recorded
		return Handled, nil
	}); err != nil {
		t.Fatalf("HookBeforeMnemonic: %v", err)
	}

	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	trace := m.Trace()
	if len(trace) != 1 {
		t.Fatalf("len(Trace()) = %d, want 1", len(trace))
	}
	requireEqualU64(t, "traced syscall number", trace[0].SyscallNum, 999)
	requireEqualU64(t, "traced RDI", trace[0].Args[0], 0x11)
	requireEqualU64(t, "traced RSI", trace[0].Args[1], 0x22)
}

// The trace ring drops its oldest entry once it exceeds its fixed
// capacity rather than growing unbounded.
func TestTraceRingDropsOldestBeyondCapacity(t *testing.T) {
	code := make([]byte, 0, (traceCapacity+10)*2)
	for i := 0; i < traceCapacity+10; i++ {
		code = append(code, 0x0F, 0x05) // SYSCALL
	}
	m := testMachine(t, code, 0x1000)
	m.HandleSyscalls([]uint64{1}, func(m *Machine) (Verdict, error) { return Handled, nil })

	for i := 0; i < traceCapacity+10; i++ {
		m.RegWrite64(RAX, 1)
		m.RegWrite64(RDI, uint64(i))
		if _, err := m.Step(context.Background()); err != nil {
			t.Fatalf("Step #%d: %v", i, err)
		}
	}

	trace := m.Trace()
	if len(trace) != traceCapacity {
		t.Fatalf("len(Trace()) = %d, want %d", len(trace), traceCapacity)
	}
	// The oldest surviving entry should be call #10 (0..9 dropped).
	requireEqualU64(t, "oldest surviving call marker", trace[0].Args[0], 10)
	requireEqualU64(t, "newest call marker", trace[len(trace)-1].Args[0], uint64(traceCapacity+9))
}

// CallStack() reconstructs the live return-address stack from CALL/RET,
// innermost call last.
func TestCallStackTracksCallAndRet(t *testing.T) {
	// 0x1000: CALL rel32 -> 0x1008 (E8 03 00 00 00, NextIP=0x1005, target=0x1005+3=0x1008)
	// 0x1005: HLT-equivalent placeholder skipped, not reached until after RET
	// 0x1008: RET (C3)
	code := []byte{
		0xE8, 0x03, 0x00, 0x00, 0x00, // CALL +3 -> 0x1008
		0x90, 0x90, 0x90, // padding (not executed directly, landing pad for return)
		0xC3, // RET at 0x1008
	}
	m := testMachine(t, code, 0x1000)
	if err := m.InitStack(4096); err != nil {
		t.Fatalf("InitStack: %v", err)
	}

	if _, err := m.Step(context.Background()); err != nil { // executes CALL
		t.Fatalf("Step (call): %v", err)
	}
	stack := m.CallStack()
	if len(stack) != 1 {
		t.Fatalf("len(CallStack()) after CALL = %d, want 1", len(stack))
	}
	requireEqualU64(t, "RIP after CALL", m.RegRead64(RIP), 0x1008)

	if _, err := m.Step(context.Background()); err != nil { // executes RET
		t.Fatalf("Step (ret): %v", err)
	}
	if len(m.CallStack()) != 0 {
		t.Fatalf("len(CallStack()) after RET = %d, want 0", len(m.CallStack()))
	}
	requireEqualU64(t, "RIP after RET", m.RegRead64(RIP), 0x1005)
}

// A RET with no matching CALL on the tracked call stack is a top-level
// return: it signals normal finish rather than an error.
func TestTopLevelRetIsNormalFinish(t *testing.T) {
	m := testMachine(t, []byte{0xC3}, 0x1000) // RET
	if err := m.InitStack(4096); err != nil {
		t.Fatalf("InitStack: %v", err)
	}

	cont, err := m.Step(context.Background())
	if err != nil {
		t.Fatalf("Step (top-level ret): %v", err)
	}
	if cont {
		t.Fatalf("Step reported continue=true after top-level RET, want false")
	}
	if !m.Finished() {
		t.Fatalf("Finished() = false after top-level RET, want true")
	}
}
