package x86emu

import (
	"golang.org/x/arch/x86/x86asm"
)

// OperandKind is the closed enumeration from spec.md §3: "Operand (the
// handler-facing variant): one of Register(R), Memory(MemOperand),
// Immediate{...}."
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandMemory
	OperandImmediate
)

// RegView says which projection of a parent Register an operand refers
// to (spec.md §4.1 "Subregister read projection").
type RegView int

const (
	ViewLow8 RegView = iota
	ViewHigh8
	View16
	View32
	View64
	ViewXMM
)

// MemOperand is the handler-facing memory operand shape (spec.md §3):
// base reg, index reg, scale in {1,2,4,8}, 64-bit displacement, segment.
// Base/Index are resolved against the Machine's register file at
// execution time, not at decode time, since effective-address computation
// depends on live register contents (spec.md §4.1 effective-address
// formula).
type MemOperand struct {
	HasBase  bool
	Base     Register
	HasIndex bool
	Index    Register
	Scale    uint8
	Disp     int64
	// Segment selects which segment base to add: 0 for DS/ES/SS (always
	// 0 in 64-bit mode), 1 for FS, 2 for GS.
	Segment int
}

const (
	SegFlat = 0
	SegFS   = 1
	SegGS   = 2
)

// Operand is the handler-facing decoded operand.
type Operand struct {
	Kind OperandKind
	Reg  Register
	View RegView
	XMM  XMMRegister
	Mem  MemOperand
	Imm  uint64
	// SizeBytes is the operand width in bytes (1, 2, 4, 8, or 16).
	SizeBytes int
}

// Instruction is the decoder's output record (spec.md §3): mnemonic,
// opcode variant, operand list, length, next IP.
type Instruction struct {
	Mnemonic Mnemonic
	RawOp    x86asm.Op
	Args     []Operand
	Len      int
	Addr     uint64
	NextIP   uint64
}

// decodeNext decodes the instruction at RIP from the code region. Grounded
// on original_source/src/state/execute.rs's decode_at/decode_next: fetch
// up to 15 bytes, hand them to the external decoder, and translate the
// result into this module's own Instruction/Operand shape.
func (m *Machine) decodeNext() (*Instruction, error) {
	rip := m.RegRead64(RIP)
	raw, err := m.readExecutableBytes(rip)
	if err != nil {
		return nil, err
	}

	inst, err := x86asm.Decode(raw, 64)
	if err != nil {
		debugLog.Printf("undefined opcode at RIP=%#x: %v", rip, err)
		return nil, wrapError(DecodeErr, err)
	}

	mnem, ok := mnemonicFromOp(inst.Op)
	if !ok {
		debugLog.Printf("no handler for mnemonic %v at RIP=%#x, halting", inst.Op, rip)
		return nil, newError(UnsupportedInstruction, "no handler for mnemonic %v", inst.Op)
	}

	out := &Instruction{
		Mnemonic: mnem,
		RawOp:    inst.Op,
		Len:      inst.Len,
		Addr:     rip,
		NextIP:   rip + uint64(inst.Len),
	}

	for _, a := range inst.Args {
		if a == nil {
			continue
		}
		op, err := translateArg(a, inst.MemBytes)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, op)
	}

	return out, nil
}

func translateArg(a x86asm.Arg, memBytes int) (Operand, error) {
	switch v := a.(type) {
	case x86asm.Reg:
		reg, view, xmm, size, ok := translateReg(v)
		if !ok {
			return Operand{}, newError(InvalidOperand, "unsupported register operand %v", v)
		}
		op := Operand{Kind: OperandRegister, Reg: reg, View: view, XMM: xmm, SizeBytes: size}
		return op, nil
	case x86asm.Mem:
		mem := MemOperand{Disp: v.Disp, Scale: uint8(v.Scale)}
		if v.Base != 0 {
			reg, _, _, _, ok := translateReg(v.Base)
			if !ok {
				return Operand{}, newError(InvalidOperand, "unsupported base register %v", v.Base)
			}
			mem.HasBase = true
			mem.Base = reg
		}
		if v.Index != 0 {
			reg, _, _, _, ok := translateReg(v.Index)
			if !ok {
				return Operand{}, newError(InvalidOperand, "unsupported index register %v", v.Index)
			}
			mem.HasIndex = true
			mem.Index = reg
		}
		switch v.Segment {
		case x86asm.FS:
			mem.Segment = SegFS
		case x86asm.GS:
			mem.Segment = SegGS
		default:
			mem.Segment = SegFlat
		}
		size := memBytes
		if size == 0 {
			size = 8
		}
		return Operand{Kind: OperandMemory, Mem: mem, SizeBytes: size}, nil
	case x86asm.Imm:
		return Operand{Kind: OperandImmediate, Imm: uint64(v)}, nil
	case x86asm.Rel:
		return Operand{Kind: OperandImmediate, Imm: uint64(int64(v))}, nil
	default:
		return Operand{}, newError(InvalidOperand, "unsupported operand type %T", a)
	}
}

// translateReg maps an x86asm.Reg to this module's (Register, RegView,
// XMMRegister, size-in-bytes) tuple. Mirrors cpu_x86.go's getReg8/16/32
// switch-on-encoding idiom, generalized to x86-64's wider register file
// and to the decoder's own register enumeration instead of a raw ModRM
// nibble.
func translateReg(r x86asm.Reg) (Register, RegView, XMMRegister, int, bool) {
	switch r {
	case x86asm.AL:
		return RAX, ViewLow8, 0, 1, true
	case x86asm.CL:
		return RCX, ViewLow8, 0, 1, true
	case x86asm.DL:
		return RDX, ViewLow8, 0, 1, true
	case x86asm.BL:
		return RBX, ViewLow8, 0, 1, true
	case x86asm.AH:
		return RAX, ViewHigh8, 0, 1, true
	case x86asm.CH:
		return RCX, ViewHigh8, 0, 1, true
	case x86asm.DH:
		return RDX, ViewHigh8, 0, 1, true
	case x86asm.BH:
		return RBX, ViewHigh8, 0, 1, true
	case x86asm.SPB:
		return RSP, ViewLow8, 0, 1, true
	case x86asm.BPB:
		return RBP, ViewLow8, 0, 1, true
	case x86asm.SIB:
		return RSI, ViewLow8, 0, 1, true
	case x86asm.DIB:
		return RDI, ViewLow8, 0, 1, true
	case x86asm.R8B:
		return R8, ViewLow8, 0, 1, true
	case x86asm.R9B:
		return R9, ViewLow8, 0, 1, true
	case x86asm.R10B:
		return R10, ViewLow8, 0, 1, true
	case x86asm.R11B:
		return R11, ViewLow8, 0, 1, true
	case x86asm.R12B:
		return R12, ViewLow8, 0, 1, true
	case x86asm.R13B:
		return R13, ViewLow8, 0, 1, true
	case x86asm.R14B:
		return R14, ViewLow8, 0, 1, true
	case x86asm.R15B:
		return R15, ViewLow8, 0, 1, true

	case x86asm.AX:
		return RAX, View16, 0, 2, true
	case x86asm.CX:
		return RCX, View16, 0, 2, true
	case x86asm.DX:
		return RDX, View16, 0, 2, true
	case x86asm.BX:
		return RBX, View16, 0, 2, true
	case x86asm.SP:
		return RSP, View16, 0, 2, true
	case x86asm.BP:
		return RBP, View16, 0, 2, true
	case x86asm.SI:
		return RSI, View16, 0, 2, true
	case x86asm.DI:
		return RDI, View16, 0, 2, true
	case x86asm.R8W:
		return R8, View16, 0, 2, true
	case x86asm.R9W:
		return R9, View16, 0, 2, true
	case x86asm.R10W:
		return R10, View16, 0, 2, true
	case x86asm.R11W:
		return R11, View16, 0, 2, true
	case x86asm.R12W:
		return R12, View16, 0, 2, true
	case x86asm.R13W:
		return R13, View16, 0, 2, true
	case x86asm.R14W:
		return R14, View16, 0, 2, true
	case x86asm.R15W:
		return R15, View16, 0, 2, true

	case x86asm.EAX:
		return RAX, View32, 0, 4, true
	case x86asm.ECX:
		return RCX, View32, 0, 4, true
	case x86asm.EDX:
		return RDX, View32, 0, 4, true
	case x86asm.EBX:
		return RBX, View32, 0, 4, true
	case x86asm.ESP:
		return RSP, View32, 0, 4, true
	case x86asm.EBP:
		return RBP, View32, 0, 4, true
	case x86asm.ESI:
		return RSI, View32, 0, 4, true
	case x86asm.EDI:
		return RDI, View32, 0, 4, true
	case x86asm.R8L:
		return R8, View32, 0, 4, true
	case x86asm.R9L:
		return R9, View32, 0, 4, true
	case x86asm.R10L:
		return R10, View32, 0, 4, true
	case x86asm.R11L:
		return R11, View32, 0, 4, true
	case x86asm.R12L:
		return R12, View32, 0, 4, true
	case x86asm.R13L:
		return R13, View32, 0, 4, true
	case x86asm.R14L:
		return R14, View32, 0, 4, true
	case x86asm.R15L:
		return R15, View32, 0, 4, true

	case x86asm.RAX:
		return RAX, View64, 0, 8, true
	case x86asm.RCX:
		return RCX, View64, 0, 8, true
	case x86asm.RDX:
		return RDX, View64, 0, 8, true
	case x86asm.RBX:
		return RBX, View64, 0, 8, true
	case x86asm.RSP:
		return RSP, View64, 0, 8, true
	case x86asm.RBP:
		return RBP, View64, 0, 8, true
	case x86asm.RSI:
		return RSI, View64, 0, 8, true
	case x86asm.RDI:
		return RDI, View64, 0, 8, true
	case x86asm.R8:
		return R8, View64, 0, 8, true
	case x86asm.R9:
		return R9, View64, 0, 8, true
	case x86asm.R10:
		return R10, View64, 0, 8, true
	case x86asm.R11:
		return R11, View64, 0, 8, true
	case x86asm.R12:
		return R12, View64, 0, 8, true
	case x86asm.R13:
		return R13, View64, 0, 8, true
	case x86asm.R14:
		return R14, View64, 0, 8, true
	case x86asm.R15:
		return R15, View64, 0, 8, true
	case x86asm.RIP:
		return RIP, View64, 0, 8, true

	case x86asm.X0:
		return 0, ViewXMM, 0, 16, true
	case x86asm.X1:
		return 0, ViewXMM, 1, 16, true
	case x86asm.X2:
		return 0, ViewXMM, 2, 16, true
	case x86asm.X3:
		return 0, ViewXMM, 3, 16, true
	case x86asm.X4:
		return 0, ViewXMM, 4, 16, true
	case x86asm.X5:
		return 0, ViewXMM, 5, 16, true
	case x86asm.X6:
		return 0, ViewXMM, 6, 16, true
	case x86asm.X7:
		return 0, ViewXMM, 7, 16, true
	case x86asm.X8:
		return 0, ViewXMM, 8, 16, true
	case x86asm.X9:
		return 0, ViewXMM, 9, 16, true
	case x86asm.X10:
		return 0, ViewXMM, 10, 16, true
	case x86asm.X11:
		return 0, ViewXMM, 11, 16, true
	case x86asm.X12:
		return 0, ViewXMM, 12, 16, true
	case x86asm.X13:
		return 0, ViewXMM, 13, 16, true
	case x86asm.X14:
		return 0, ViewXMM, 14, 16, true
	case x86asm.X15:
		return 0, ViewXMM, 15, 16, true
	}
	return 0, 0, 0, 0, false
}

// readOperand reads an operand's current value as a zero-extended uint64,
// resolving memory operands through the effective-address formula
// (spec.md §4.1).
func (m *Machine) readOperand(op Operand) (uint64, error) {
	switch op.Kind {
	case OperandRegister:
		return m.readRegView(op), nil
	case OperandMemory:
		addr := m.effectiveAddress(op.Mem)
		switch op.SizeBytes {
		case 1:
			return m.MemRead8(addr)
		case 2:
			return m.MemRead16(addr)
		case 4:
			return m.MemRead32(addr)
		case 8:
			return m.MemRead64(addr)
		default:
			return 0, newError(InvalidOperand, "unsupported memory operand width %d", op.SizeBytes)
		}
	case OperandImmediate:
		return op.Imm, nil
	default:
		return 0, newError(InvalidOperand, "cannot read operand kind %v", op.Kind)
	}
}

func (m *Machine) readRegView(op Operand) uint64 {
	switch op.View {
	case ViewLow8:
		return m.RegRead8(op.Reg)
	case ViewHigh8:
		return m.RegRead8High(op.Reg)
	case View16:
		return m.RegRead16(op.Reg)
	case View32:
		return m.RegRead32(op.Reg)
	case View64:
		return m.RegRead64(op.Reg)
	default:
		return 0
	}
}

// writeOperand writes v back to a register or memory operand. Memory
// operands are written through the effective-address formula; register
// writes respect subregister aliasing (spec.md §4.2).
func (m *Machine) writeOperand(op Operand, v uint64) error {
	switch op.Kind {
	case OperandRegister:
		m.writeRegView(op, v)
		return nil
	case OperandMemory:
		addr := m.effectiveAddress(op.Mem)
		switch op.SizeBytes {
		case 1:
			return m.MemWrite8(addr, v&0xFF)
		case 2:
			return m.MemWrite16(addr, v&0xFFFF)
		case 4:
			return m.MemWrite32(addr, v&0xFFFF_FFFF)
		case 8:
			return m.MemWrite64(addr, v)
		default:
			return newError(InvalidOperand, "unsupported memory operand width %d", op.SizeBytes)
		}
	default:
		return newError(InvalidOperand, "cannot write operand kind %v", op.Kind)
	}
}

func (m *Machine) writeRegView(op Operand, v uint64) {
	switch op.View {
	case ViewLow8:
		m.RegWrite8(op.Reg, v)
	case ViewHigh8:
		m.RegWrite8High(op.Reg, v)
	case View16:
		m.RegWrite16(op.Reg, v)
	case View32:
		m.RegWrite32(op.Reg, v)
	case View64:
		m.RegWrite64(op.Reg, v)
	}
}

// effectiveAddress implements spec.md §4.1's formula: addr = base + index
// * scale + displacement + segment_base, wrapping modulo 2^64. For a
// RIP-relative operand, mem.Base is RIP and mem.Disp is the decoder's raw,
// unadjusted displacement — neither is pre-corrected for the instruction's
// length. Correctness here depends entirely on step.go's ordering: RIP is
// advanced to NextIP before the handler (and therefore this function) ever
// runs, so reading RIP through m.RegRead64 here already yields the
// post-advance value the formula needs.
func (m *Machine) effectiveAddress(mem MemOperand) uint64 {
	var addr uint64
	if mem.HasBase {
		addr += m.RegRead64(mem.Base)
	}
	if mem.HasIndex {
		scale := uint64(mem.Scale)
		if scale == 0 {
			scale = 1
		}
		addr += m.RegRead64(mem.Index) * scale
	}
	addr += uint64(mem.Disp)
	switch mem.Segment {
	case SegFS:
		addr += m.ReadFS()
	case SegGS:
		addr += m.ReadGS()
	}
	return addr
}
