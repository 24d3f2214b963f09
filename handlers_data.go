package x86emu

// memReadWidth/memWriteWidth dispatch to the fixed-width memory accessors
// by byte count, used by push/pop where the width is only known at
// runtime from the operand's SizeBytes.
func (m *Machine) memReadWidth(addr uint64, width int) (uint64, error) {
	switch width {
	case 1:
		return m.MemRead8(addr)
	case 2:
		return m.MemRead16(addr)
	case 4:
		return m.MemRead32(addr)
	default:
		return m.MemRead64(addr)
	}
}

func (m *Machine) memWriteWidth(addr uint64, width int, v uint64) error {
	switch width {
	case 1:
		return m.MemWrite8(addr, v)
	case 2:
		return m.MemWrite16(addr, v)
	case 4:
		return m.MemWrite32(addr, v)
	default:
		return m.MemWrite64(addr, v)
	}
}

// hMOV implements every MOV/MOVABS form the decoder hands back (reg<-reg,
// reg<-mem, mem<-reg, reg<-imm, mem<-imm, including moffs). No flags
// touched.
func hMOV(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	v, err := m.readOperand(src)
	if err != nil {
		return err
	}
	return m.writeOperand(dest, v)
}

// hLEA loads the effective address itself, not the memory it addresses
// (spec.md §4.1's "LEA never touches memory" note).
func hLEA(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	if src.Kind != OperandMemory {
		return newError(InvalidOperand, "LEA source must be a memory operand")
	}
	addr := m.effectiveAddress(src.Mem)
	return m.writeOperand(dest, addr)
}

// hPUSH decrements RSP by the operand's width then writes the operand
// value to [RSP] (spec.md §4.1's stack-discipline note: RSP always moves
// first, so a push that faults on the write leaves RSP already adjusted,
// matching real hardware). A 16-bit PUSH moves RSP by exactly 2 bytes, not
// a padded 8 — there is no "narrow implies padded" rule in long mode.
func hPUSH(m *Machine, inst *Instruction) error {
	src := inst.Args[0]
	width := src.SizeBytes
	v, err := m.readOperand(src)
	if err != nil {
		return err
	}
	rsp := m.RegRead64(RSP) - uint64(width)
	m.RegWrite64(RSP, rsp)
	return m.memWriteWidth(rsp, width, v)
}

// hPOP reads [RSP] then increments RSP by the operand's width.
func hPOP(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := dest.SizeBytes
	rsp := m.RegRead64(RSP)
	v, err := m.memReadWidth(rsp, width)
	if err != nil {
		return err
	}
	m.RegWrite64(RSP, rsp+uint64(width))
	return m.writeOperand(dest, v)
}

// hXCHG swaps the two operands' values. No flags affected.
func hXCHG(m *Machine, inst *Instruction) error {
	a, b := inst.Args[0], inst.Args[1]
	av, err := m.readOperand(a)
	if err != nil {
		return err
	}
	bv, err := m.readOperand(b)
	if err != nil {
		return err
	}
	if err := m.writeOperand(a, bv); err != nil {
		return err
	}
	return m.writeOperand(b, av)
}

// hMOVZX zero-extends a narrower source into a wider destination register.
func hMOVZX(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	v, err := m.readOperand(src)
	if err != nil {
		return err
	}
	mask := widthMask(widthOf(src))
	return m.writeOperand(dest, v&mask)
}

// hMOVSX sign-extends a narrower source into a wider destination register.
func hMOVSX(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	v, err := m.readOperand(src)
	if err != nil {
		return err
	}
	srcWidth := widthOf(src)
	extended := signExtend(v&widthMask(srcWidth), srcWidth)
	return m.writeOperand(dest, extended)
}

// hNOP does nothing. Multi-byte NOP encodings (0F 1F /0 and friends) are
// all collapsed onto this single mnemonic by mnemonicFromOp.
func hNOP(m *Machine, inst *Instruction) error {
	return nil
}
