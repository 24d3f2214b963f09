package x86emu

import "golang.org/x/arch/x86/x86asm"

// Mnemonic is the closed enumeration spec.md §9 calls for ("represent
// mnemonics and opcode variants as closed enumerations"). One Mnemonic
// covers every opcode variant differing only by operand width/kind; the
// variant itself is recovered from Instruction.RawOp plus the operands'
// SizeBytes, not from a second enum, since x86asm.Decode already
// discriminates width at the Reg/Mem/Imm level.
type Mnemonic int

const (
	MnemUnsupported Mnemonic = iota
	MOV
	LEA
	ADD
	ADC
	SUB
	SBB
	CMP
	AND
	OR
	XOR
	TEST
	NOT
	NEG
	INC
	DEC
	SHL
	SHR
	SAR
	ROL
	ROR
	MOVZX
	MOVSX
	JMP
	JCC
	CALL
	RET
	PUSH
	POP
	CMOVCC
	SETCC
	XCHG
	NOP
	SYSCALL
)

var mnemonicNames = map[Mnemonic]string{
	MOV: "MOV", LEA: "LEA", ADD: "ADD", ADC: "ADC", SUB: "SUB", SBB: "SBB",
	CMP: "CMP", AND: "AND", OR: "OR", XOR: "XOR", TEST: "TEST", NOT: "NOT",
	NEG: "NEG", INC: "INC", DEC: "DEC", SHL: "SHL", SHR: "SHR", SAR: "SAR",
	ROL: "ROL", ROR: "ROR", MOVZX: "MOVZX", MOVSX: "MOVSX", JMP: "JMP",
	JCC: "Jcc", CALL: "CALL", RET: "RET", PUSH: "PUSH", POP: "POP",
	CMOVCC: "CMOVcc", SETCC: "SETcc", XCHG: "XCHG", NOP: "NOP", SYSCALL: "SYSCALL",
}

func (m Mnemonic) String() string {
	if n, ok := mnemonicNames[m]; ok {
		return n
	}
	return "?"
}

// mnemonicFromOp maps the decoder's per-variant Op onto this module's
// mnemonic enum (spec.md §9). Every Jcc/CMOVcc/SETcc condition variant
// collapses onto one of JCC/CMOVCC/SETCC; the specific condition is
// recovered from RawOp by conditionCode in dispatch.
func mnemonicFromOp(op x86asm.Op) (Mnemonic, bool) {
	switch op {
	case x86asm.MOV, x86asm.MOVABS:
		return MOV, true
	case x86asm.LEA:
		return LEA, true
	case x86asm.ADD:
		return ADD, true
	case x86asm.ADC:
		return ADC, true
	case x86asm.SUB:
		return SUB, true
	case x86asm.SBB:
		return SBB, true
	case x86asm.CMP:
		return CMP, true
	case x86asm.AND:
		return AND, true
	case x86asm.OR:
		return OR, true
	case x86asm.XOR:
		return XOR, true
	case x86asm.TEST:
		return TEST, true
	case x86asm.NOT:
		return NOT, true
	case x86asm.NEG:
		return NEG, true
	case x86asm.INC:
		return INC, true
	case x86asm.DEC:
		return DEC, true
	case x86asm.SHL, x86asm.SAL:
		return SHL, true
	case x86asm.SHR:
		return SHR, true
	case x86asm.SAR:
		return SAR, true
	case x86asm.ROL:
		return ROL, true
	case x86asm.ROR:
		return ROR, true
	case x86asm.MOVZX:
		return MOVZX, true
	case x86asm.MOVSX:
		return MOVSX, true
	case x86asm.JMP:
		return JMP, true
	case x86asm.CALL:
		return CALL, true
	case x86asm.RET:
		return RET, true
	case x86asm.PUSH:
		return PUSH, true
	case x86asm.POP:
		return POP, true
	case x86asm.XCHG:
		return XCHG, true
	case x86asm.NOP:
		return NOP, true
	case x86asm.SYSCALL:
		return SYSCALL, true

	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JE, x86asm.JG,
		x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE, x86asm.JNO, x86asm.JNP,
		x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JS:
		return JCC, true

	case x86asm.CMOVA, x86asm.CMOVAE, x86asm.CMOVB, x86asm.CMOVBE, x86asm.CMOVE,
		x86asm.CMOVG, x86asm.CMOVGE, x86asm.CMOVL, x86asm.CMOVLE, x86asm.CMOVNE,
		x86asm.CMOVNO, x86asm.CMOVNP, x86asm.CMOVNS, x86asm.CMOVO, x86asm.CMOVP,
		x86asm.CMOVS:
		return CMOVCC, true

	case x86asm.SETA, x86asm.SETAE, x86asm.SETB, x86asm.SETBE, x86asm.SETE,
		x86asm.SETG, x86asm.SETGE, x86asm.SETL, x86asm.SETLE, x86asm.SETNE,
		x86asm.SETNO, x86asm.SETNP, x86asm.SETNS, x86asm.SETO, x86asm.SETP,
		x86asm.SETS:
		return SETCC, true
	}
	return MnemUnsupported, false
}

// Condition codes, numbered the same way Intel's own Jcc tttn field is
// (spec.md §4.1 "Conditional-move / conditional-set family"), grounded on
// cpu_x86.go's initBaseOps/initExtendedOps 16-entry Jcc/SETcc condition
// tables generalized from EFLAGS bits to RFLAGS bits.
const (
	condO = iota
	condNO
	condB
	condAE
	condE
	condNE
	condBE
	condA
	condS
	condNS
	condP
	condNP
	condL
	condGE
	condLE
	condG
)

func conditionCode(op x86asm.Op) (int, bool) {
	switch op {
	case x86asm.JO, x86asm.CMOVO, x86asm.SETO:
		return condO, true
	case x86asm.JNO, x86asm.CMOVNO, x86asm.SETNO:
		return condNO, true
	case x86asm.JB, x86asm.CMOVB, x86asm.SETB:
		return condB, true
	case x86asm.JAE, x86asm.CMOVAE, x86asm.SETAE:
		return condAE, true
	case x86asm.JE, x86asm.CMOVE, x86asm.SETE:
		return condE, true
	case x86asm.JNE, x86asm.CMOVNE, x86asm.SETNE:
		return condNE, true
	case x86asm.JBE, x86asm.CMOVBE, x86asm.SETBE:
		return condBE, true
	case x86asm.JA, x86asm.CMOVA, x86asm.SETA:
		return condA, true
	case x86asm.JS, x86asm.CMOVS, x86asm.SETS:
		return condS, true
	case x86asm.JNS, x86asm.CMOVNS, x86asm.SETNS:
		return condNS, true
	case x86asm.JP, x86asm.CMOVP, x86asm.SETP:
		return condP, true
	case x86asm.JNP, x86asm.CMOVNP, x86asm.SETNP:
		return condNP, true
	case x86asm.JL, x86asm.CMOVL, x86asm.SETL:
		return condL, true
	case x86asm.JGE, x86asm.CMOVGE, x86asm.SETGE:
		return condGE, true
	case x86asm.JLE, x86asm.CMOVLE, x86asm.SETLE:
		return condLE, true
	case x86asm.JG, x86asm.CMOVG, x86asm.SETG:
		return condG, true
	}
	return 0, false
}

// evalCondition evaluates one of the 16 RFLAGS predicates named in
// spec.md §4.1 (CMOVAE := CF=0, CMOVBE := CF|ZF, CMOVE := ZF, JB := CF,
// JNS := SF=0, ...).
func evalCondition(code int, m *Machine) bool {
	switch code {
	case condO:
		return m.OF()
	case condNO:
		return !m.OF()
	case condB:
		return m.CF()
	case condAE:
		return !m.CF()
	case condE:
		return m.ZF()
	case condNE:
		return !m.ZF()
	case condBE:
		return m.CF() || m.ZF()
	case condA:
		return !m.CF() && !m.ZF()
	case condS:
		return m.SF()
	case condNS:
		return !m.SF()
	case condP:
		return m.PF()
	case condNP:
		return !m.PF()
	case condL:
		return m.SF() != m.OF()
	case condGE:
		return m.SF() == m.OF()
	case condLE:
		return m.ZF() || (m.SF() != m.OF())
	case condG:
		return !m.ZF() && (m.SF() == m.OF())
	}
	return false
}
