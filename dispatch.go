package x86emu

// dispatchTable maps each Mnemonic onto its native handler, replacing
// cpu_x86.go's initBaseOps/initExtendedOps opcode-keyed function tables
// with a single mnemonic-keyed one — this module collapses every
// width/operand-kind variant of an opcode onto one Mnemonic, so one table
// entry covers what the teacher spreads across several opcode-table rows.
var dispatchTable = map[Mnemonic]func(*Machine, *Instruction) error{
	MOV:  hMOV,
	LEA:  hLEA,
	ADD:  hADD,
	ADC:  hADC,
	SUB:  hSUB,
	SBB:  hSBB,
	CMP:  hCMP,
	AND:  hAND,
	OR:   hOR,
	XOR:  hXOR,
	TEST: hTEST,
	NOT:  hNOT,
	NEG:  hNEG,
	INC:  hINC,
	DEC:  hDEC,

	SHL: hSHL,
	SHR: hSHR,
	SAR: hSAR,
	ROL: hROL,
	ROR: hROR,

	MOVZX: hMOVZX,
	MOVSX: hMOVSX,

	JMP:    hJMP,
	JCC:    hJCC,
	CALL:   hCALL,
	RET:    hRET,
	CMOVCC: hCMOVCC,
	SETCC:  hSETCC,

	PUSH: hPUSH,
	POP:  hPOP,
	XCHG: hXCHG,
	NOP:  hNOP,

	SYSCALL: hSYSCALL,
}
