package x86emu

import "testing"

func reg64(r Register) Operand {
	return Operand{Kind: OperandRegister, Reg: r, View: View64, SizeBytes: 8}
}

func imm64(v uint64) Operand {
	return Operand{Kind: OperandImmediate, Imm: v}
}

// Round-trip law: x XOR x == 0 at any width, clearing CF/OF and setting
// ZF/PF.
func TestXorSelfIsZero(t *testing.T) {
	for _, x := range []uint64{0, 1, 0xFF, 0x1234_5678_9ABC_DEF0, ^uint64(0)} {
		m := &Machine{}
		m.SetFlag(FlagCF, true)
		m.SetFlag(FlagOF, true)
		m.RegWrite64(RAX, x)

		if err := hXOR(m, &Instruction{Args: []Operand{reg64(RAX), reg64(RAX)}}); err != nil {
			t.Fatalf("hXOR(%#x): %v", x, err)
		}

		requireEqualU64(t, "RAX", m.RegRead64(RAX), 0)
		requireFlag(t, "CF", m.CF(), false)
		requireFlag(t, "OF", m.OF(), false)
		requireFlag(t, "ZF", m.ZF(), true)
		requireFlag(t, "PF", m.PF(), true)
	}
}

// Round-trip law: NEG NEG x == x for all x != 0x80...0; for x == 0x80...0,
// NEG x == x with OF set.
func TestNegNegRoundTrip(t *testing.T) {
	cases := []uint64{1, 0xFF, 0x1234_5678, 0x7FFF_FFFF_FFFF_FFFF}
	for _, x := range cases {
		m := &Machine{}
		m.RegWrite64(RAX, x)
		if err := hNEG(m, &Instruction{Args: []Operand{reg64(RAX)}}); err != nil {
			t.Fatalf("hNEG(%#x): %v", x, err)
		}
		if err := hNEG(m, &Instruction{Args: []Operand{reg64(RAX)}}); err != nil {
			t.Fatalf("hNEG(hNEG(%#x)): %v", x, err)
		}
		requireEqualU64(t, "RAX", m.RegRead64(RAX), x)
	}

	m := &Machine{}
	minInt64 := uint64(0x8000_0000_0000_0000)
	m.RegWrite64(RAX, minInt64)
	if err := hNEG(m, &Instruction{Args: []Operand{reg64(RAX)}}); err != nil {
		t.Fatalf("hNEG(minInt64): %v", err)
	}
	requireEqualU64(t, "RAX", m.RegRead64(RAX), minInt64)
	requireFlag(t, "OF", m.OF(), true)
}

// Round-trip law: AND x, -1 == x, sets CF=OF=0 and updates ZF/SF/PF from x.
func TestAndWithAllOnesIsIdentity(t *testing.T) {
	for _, x := range []uint64{0, 1, 0x8000_0000_0000_0000, 0x1234_5678_9ABC_DEF0} {
		m := &Machine{}
		m.SetFlag(FlagCF, true)
		m.SetFlag(FlagOF, true)
		m.RegWrite64(RAX, x)

		if err := hAND(m, &Instruction{Args: []Operand{reg64(RAX), imm64(^uint64(0))}}); err != nil {
			t.Fatalf("hAND(%#x, -1): %v", x, err)
		}

		requireEqualU64(t, "RAX", m.RegRead64(RAX), x)
		requireFlag(t, "CF", m.CF(), false)
		requireFlag(t, "OF", m.OF(), false)
		requireFlag(t, "ZF", m.ZF(), x == 0)
		requireFlag(t, "SF", m.SF(), x&0x8000_0000_0000_0000 != 0)
	}
}

// INC/DEC leave CF untouched, unlike ADD/SUB (real x86 semantics, and the
// fix recorded in DESIGN.md's "Flag-clearing correctness note").
func TestIncDecLeaveCarryUntouched(t *testing.T) {
	for _, cf := range []bool{true, false} {
		m := &Machine{}
		m.SetFlag(FlagCF, cf)
		m.RegWrite64(RAX, 5)

		if err := hINC(m, &Instruction{Args: []Operand{reg64(RAX)}}); err != nil {
			t.Fatalf("hINC: %v", err)
		}
		requireEqualU64(t, "RAX", m.RegRead64(RAX), 6)
		requireFlag(t, "CF after INC", m.CF(), cf)

		if err := hDEC(m, &Instruction{Args: []Operand{reg64(RAX)}}); err != nil {
			t.Fatalf("hDEC: %v", err)
		}
		requireEqualU64(t, "RAX", m.RegRead64(RAX), 5)
		requireFlag(t, "CF after DEC", m.CF(), cf)
	}
}

// ADD, by contrast, always redefines CF from its own carry-out.
func TestAddAlwaysRedefinesCarry(t *testing.T) {
	m := &Machine{}
	m.SetFlag(FlagCF, true)
	m.RegWrite64(RAX, 1)

	if err := hADD(m, &Instruction{Args: []Operand{reg64(RAX), imm64(1)}}); err != nil {
		t.Fatalf("hADD: %v", err)
	}
	requireEqualU64(t, "RAX", m.RegRead64(RAX), 2)
	requireFlag(t, "CF", m.CF(), false)
}

func TestCmpDoesNotWriteBack(t *testing.T) {
	m := &Machine{}
	m.RegWrite64(RAX, 5)
	if err := hCMP(m, &Instruction{Args: []Operand{reg64(RAX), imm64(5)}}); err != nil {
		t.Fatalf("hCMP: %v", err)
	}
	requireEqualU64(t, "RAX", m.RegRead64(RAX), 5)
	requireFlag(t, "ZF", m.ZF(), true)
}
