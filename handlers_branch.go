package x86emu

// branchTarget resolves a JMP/Jcc/CALL operand to an absolute address.
// A register or memory operand already holds the absolute target; a Rel
// operand comes back from decodeNext as a signed displacement relative to
// the end of the instruction (spec.md §4.1's "Jcc rel8/rel32" note), so it
// must be added to inst.NextIP here rather than at decode time.
func branchTarget(inst *Instruction, op Operand) uint64 {
	if op.Kind == OperandImmediate {
		return uint64(int64(inst.NextIP) + int64(op.Imm))
	}
	return op.Imm
}

func (m *Machine) resolveBranchOperand(inst *Instruction, op Operand) (uint64, error) {
	switch op.Kind {
	case OperandImmediate:
		return branchTarget(inst, op), nil
	default:
		return m.readOperand(op)
	}
}

// hJMP implements unconditional near jumps, direct and indirect alike.
func hJMP(m *Machine, inst *Instruction) error {
	target, err := m.resolveBranchOperand(inst, inst.Args[0])
	if err != nil {
		return err
	}
	m.RegWrite64(RIP, target)
	return nil
}

// hJCC implements every conditional jump. Falling through leaves RIP at
// NextIP, which the step loop already advances to by default; the taken
// branch overwrites RIP with the resolved target.
func hJCC(m *Machine, inst *Instruction) error {
	code, ok := conditionCode(inst.RawOp)
	if !ok {
		return newError(UnsupportedInstruction, "unrecognized condition for %v", inst.RawOp)
	}
	if !evalCondition(code, m) {
		return nil
	}
	target, err := m.resolveBranchOperand(inst, inst.Args[0])
	if err != nil {
		return err
	}
	m.RegWrite64(RIP, target)
	return nil
}

// hCALL pushes the return address (NextIP, the address of the instruction
// after the call) then jumps to the resolved target. m.calls tracks the
// same return address for CallStack() reconstruction (spec.md §4.5's
// "empty call stack" normal-finish detection in hRET below).
func hCALL(m *Machine, inst *Instruction) error {
	target, err := m.resolveBranchOperand(inst, inst.Args[0])
	if err != nil {
		return err
	}
	rsp := m.RegRead64(RSP) - 8
	if err := m.MemWrite64(rsp, inst.NextIP); err != nil {
		return err
	}
	m.RegWrite64(RSP, rsp)
	m.calls = append(m.calls, inst.NextIP)
	m.RegWrite64(RIP, target)
	return nil
}

// hRET pops the return address off the stack into RIP. A RET with an
// empty tracked call stack is a top-level return — the entry point
// returning with no matching CALL — and signals normal finish rather than
// popping a meaningless address off the real stack (spec.md §4.5 step 8).
// The curated mnemonic set has no `ret imm16` variant; a stack-cleanup
// immediate, if present, is ignored and RSP moves by 8 only.
func hRET(m *Machine, inst *Instruction) error {
	if len(m.calls) == 0 {
		m.finished = true
		return newError(normalFinish, "top-level RET with empty call stack")
	}
	m.calls = m.calls[:len(m.calls)-1]

	rsp := m.RegRead64(RSP)
	target, err := m.MemRead64(rsp)
	if err != nil {
		return err
	}
	m.RegWrite64(RSP, rsp+8)
	m.RegWrite64(RIP, target)
	return nil
}

// hCMOVCC conditionally copies src into dest; the copy is skipped (not a
// copy-then-discard) when the condition is false, so a faulting memory
// source never faults unless the condition holds (spec.md §4.1).
func hCMOVCC(m *Machine, inst *Instruction) error {
	code, ok := conditionCode(inst.RawOp)
	if !ok {
		return newError(UnsupportedInstruction, "unrecognized condition for %v", inst.RawOp)
	}
	if !evalCondition(code, m) {
		return nil
	}
	dest, src := inst.Args[0], inst.Args[1]
	v, err := m.readOperand(src)
	if err != nil {
		return err
	}
	return m.writeOperand(dest, v)
}

// hSETCC writes 0 or 1 to an 8-bit destination depending on the
// condition. SETcc never reads its destination first, unlike the RMW
// family, so it bypasses calculateRM entirely.
func hSETCC(m *Machine, inst *Instruction) error {
	code, ok := conditionCode(inst.RawOp)
	if !ok {
		return newError(UnsupportedInstruction, "unrecognized condition for %v", inst.RawOp)
	}
	var v uint64
	if evalCondition(code, m) {
		v = 1
	}
	return m.writeOperand(inst.Args[0], v)
}
