package x86emu

import (
	"context"
	"testing"
)

// The six literal end-to-end scenarios are each their own test, named for
// the instruction under test rather than a shared table, matching the
// teacher's one-scenario-per-function style in cpu_z80_alu_test.go.

func TestE2ETopLevelRetFinishesCleanly(t *testing.T) {
	m := testMachine(t, []byte{0xC3}, 0x1000) // RET
	if err := m.InitStack(0); err != nil {
		t.Fatalf("InitStack: %v", err)
	}
	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !m.Finished() {
		t.Fatalf("Finished() = false, want true")
	}
}

func TestE2EMovJmpSkipsXor(t *testing.T) {
	// MOV RAX,5; JMP .L; XOR RAX,RAX; .L:
	code := []byte{0x48, 0xC7, 0xC0, 0x05, 0x00, 0x00, 0x00, 0xEB, 0x03, 0x48, 0x31, 0xC0}
	m := testMachine(t, code, 0x1000)
	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	requireEqualU64(t, "RAX", m.RegRead64(RAX), 5)
}

func TestE2EAdcWithCarryIn(t *testing.T) {
	// ADC r/m8,r8 with CF=1: [0x1000]=0x00, BL=0x00; memory becomes 0x01,
	// all of CF/PF/ZF/SF/OF clear. Code and data live in disjoint regions
	// (spec.md §3 invariant I2), so the code sits at 0x2000.
	m := testMachine(t, []byte{0x10, 0x19}, 0x2000) // ADC [RCX], BL
	if err := m.MemInitAreaNamed(0x1000, []byte{0x00}, "data"); err != nil {
		t.Fatalf("MemInitAreaNamed: %v", err)
	}
	m.RegWrite64(RCX, 0x1000)
	m.RegWrite8(RBX, 0x00)
	m.SetFlag(FlagCF, true)

	m.mustStep(t)

	v, err := m.MemRead8(0x1000)
	if err != nil {
		t.Fatalf("MemRead8: %v", err)
	}
	requireEqualU64(t, "[0x1000]", v, 0x01)
	requireFlag(t, "CF", m.CF(), false)
	requireFlag(t, "PF", m.PF(), false)
	requireFlag(t, "ZF", m.ZF(), false)
	requireFlag(t, "SF", m.SF(), false)
	requireFlag(t, "OF", m.OF(), false)
}

func TestE2ECmpAlEqual(t *testing.T) {
	m := testMachine(t, []byte{0x3C, 0x03}, 0x1000) // CMP AL,0x03
	m.RegWrite8(RAX, 0x03)

	m.mustStep(t)

	requireFlag(t, "ZF", m.ZF(), true)
	requireFlag(t, "PF", m.PF(), true)
	requireFlag(t, "CF", m.CF(), false)
	requireFlag(t, "SF", m.SF(), false)
	requireFlag(t, "OF", m.OF(), false)
}

func TestE2EShlBlOverflow(t *testing.T) {
	m := testMachine(t, []byte{0xD0, 0xE3}, 0x1000) // SHL BL,1
	m.RegWrite8(RBX, 0x80)

	m.mustStep(t)

	requireEqualU64(t, "BL", m.RegRead8(RBX), 0x00)
	requireFlag(t, "CF", m.CF(), true)
	requireFlag(t, "OF", m.OF(), true)
	requireFlag(t, "ZF", m.ZF(), true)
	requireFlag(t, "PF", m.PF(), true)
	requireFlag(t, "SF", m.SF(), false)
}

func TestE2ENegMinInt64(t *testing.T) {
	m := testMachine(t, []byte{0x48, 0xF7, 0xD8}, 0x1000) // NEG RAX
	m.RegWrite64(RAX, 0x8000_0000_0000_0000)

	m.mustStep(t)

	requireEqualU64(t, "RAX", m.RegRead64(RAX), 0x8000_0000_0000_0000)
	requireFlag(t, "CF", m.CF(), true)
	requireFlag(t, "OF", m.OF(), true)
	requireFlag(t, "SF", m.SF(), true)
	requireFlag(t, "PF", m.PF(), true)
	requireFlag(t, "ZF", m.ZF(), false)
}

// Invariant 5/6: executed_instructions_count is monotone and advances by
// exactly 1 per successful step; stepping a finished machine fails.
func TestStepCountAndFinishedGuard(t *testing.T) {
	m := testMachine(t, []byte{0x90, 0x90, 0xC3}, 0x1000) // NOP; NOP; RET
	if err := m.InitStack(0); err != nil {
		t.Fatalf("InitStack: %v", err)
	}

	var last uint64
	for i := 0; i < 2; i++ {
		cont := m.mustStep(t)
		if !cont {
			t.Fatalf("step %d: unexpected finish", i)
		}
		got := m.ExecutedInstructionsCount()
		if got != last+1 {
			t.Fatalf("ExecutedInstructionsCount() = %d, want %d", got, last+1)
		}
		last = got
	}

	// Third step (RET) finishes the machine.
	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("final Step: %v", err)
	}
	if !m.Finished() {
		t.Fatalf("Finished() = false, want true")
	}

	if _, err := m.Step(context.Background()); err == nil {
		t.Fatalf("Step on a finished machine returned nil error, want ErrFinished")
	}
}

func TestSetMaxInstructionsStopsExecution(t *testing.T) {
	m := testMachine(t, []byte{0x90, 0x90, 0x90}, 0x1000) // NOP x3
	m.SetMaxInstructions(2)

	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step 1: %v", err)
	}
	if _, err := m.Step(context.Background()); err != nil {
		t.Fatalf("Step 2: %v", err)
	}
	if _, err := m.Step(context.Background()); err == nil {
		t.Fatalf("Step 3 succeeded, want ErrLimitReached")
	}
}
