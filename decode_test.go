package x86emu

import "testing"

// effectiveAddress implements base + index*scale + disp + segment_base,
// wrapping modulo 2^64.
func TestEffectiveAddressBaseIndexScaleDisp(t *testing.T) {
	m := &Machine{}
	m.RegWrite64(RBX, 0x1000)
	m.RegWrite64(RSI, 4)

	addr := m.effectiveAddress(MemOperand{
		HasBase: true, Base: RBX,
		HasIndex: true, Index: RSI, Scale: 8,
		Disp: 0x10,
	})
	requireEqualU64(t, "effective address", addr, 0x1000+4*8+0x10)
}

func TestEffectiveAddressScaleZeroTreatedAsOne(t *testing.T) {
	m := &Machine{}
	m.RegWrite64(RSI, 7)
	addr := m.effectiveAddress(MemOperand{HasIndex: true, Index: RSI, Scale: 0})
	requireEqualU64(t, "effective address", addr, 7)
}

func TestEffectiveAddressAddsSegmentBase(t *testing.T) {
	m := &Machine{}
	m.WriteFS(0x2000)
	addr := m.effectiveAddress(MemOperand{Disp: 0x10, Segment: SegFS})
	requireEqualU64(t, "effective address", addr, 0x2010)
}

// readOperand/writeOperand for a memory operand round-trips through the
// effective-address formula and the width-appropriate MemRead/MemWrite.
func TestReadWriteOperandMemory(t *testing.T) {
	m := newTestAreaMachine(t)
	if err := m.MemInitZero(0x2000, 16); err != nil {
		t.Fatalf("MemInitZero: %v", err)
	}
	m.RegWrite64(RBX, 0x2000)

	op := Operand{Kind: OperandMemory, Mem: MemOperand{HasBase: true, Base: RBX}, SizeBytes: 4}
	if err := m.writeOperand(op, 0xDEAD_BEEF); err != nil {
		t.Fatalf("writeOperand: %v", err)
	}
	got, err := m.readOperand(op)
	if err != nil {
		t.Fatalf("readOperand: %v", err)
	}
	requireEqualU64(t, "round-tripped dword", got, 0xDEAD_BEEF)
}

// writeOperand truncates a too-wide value to the operand's declared width
// before writing it back.
func TestWriteOperandMemoryTruncatesToWidth(t *testing.T) {
	m := newTestAreaMachine(t)
	if err := m.MemInitZero(0x2000, 16); err != nil {
		t.Fatalf("MemInitZero: %v", err)
	}
	op := Operand{Kind: OperandMemory, Mem: MemOperand{Disp: 0x2000}, SizeBytes: 1}
	if err := m.writeOperand(op, 0x1FF); err != nil {
		t.Fatalf("writeOperand: %v", err)
	}
	got, err := m.readOperand(op)
	if err != nil {
		t.Fatalf("readOperand: %v", err)
	}
	requireEqualU64(t, "truncated byte", got, 0xFF)
}

func TestReadWriteRegisterViews(t *testing.T) {
	m := &Machine{}
	m.RegWrite64(RAX, 0x1122_3344_5566_7788)

	lowByte := Operand{Kind: OperandRegister, Reg: RAX, View: ViewLow8}
	v, err := m.readOperand(lowByte)
	if err != nil {
		t.Fatalf("readOperand: %v", err)
	}
	requireEqualU64(t, "AL", v, 0x88)

	highByte := Operand{Kind: OperandRegister, Reg: RAX, View: ViewHigh8}
	if err := m.writeOperand(highByte, 0xCD); err != nil {
		t.Fatalf("writeOperand: %v", err)
	}
	requireEqualU64(t, "RAX after AH write", m.RegRead64(RAX), 0x1122_3344_5566_CD88)
}
