package x86emu

// Register is the closed enumeration of 64-bit parent registers (spec.md
// §3, §4.2). Subregister views (AL/AH/AX/EAX, ...) are projected onto a
// parent at read/write time rather than being separate enum values,
// mirroring the pointer-array register file in cpu_x86.go generalized
// from 32-bit EAX-family registers to 64-bit RAX-family ones.
type Register uint8

const (
	RAX Register = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	RIP
	numGPRegisters
)

var registerNames = [numGPRegisters]string{
	RAX: "RAX", RCX: "RCX", RDX: "RDX", RBX: "RBX",
	RSP: "RSP", RBP: "RBP", RSI: "RSI", RDI: "RDI",
	R8: "R8", R9: "R9", R10: "R10", R11: "R11",
	R12: "R12", R13: "R13", R14: "R14", R15: "R15",
	RIP: "RIP",
}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return "?"
}

// NaturalRegisterOrder is the fixed order used by inspection output
// (spec.md §6 to_string()), grounded on debug_cpu_x86.go's GetRegisters()
// natural ordering generalized from the 32-bit register set to the
// 64-bit one.
var NaturalRegisterOrder = []Register{
	RAX, RBX, RCX, RDX, RSI, RDI, RBP, RSP,
	R8, R9, R10, R11, R12, R13, R14, R15, RIP,
}

// XMMRegister indexes the 16 SSE registers, stored separately as u128
// values (spec.md §3: "16 XMM registers stored as u128 via a companion
// map").
type XMMRegister uint8

const numXMMRegisters = 16

// registerFile holds every register value. It is embedded into Machine
// rather than being its own exported type, since spec.md treats the
// register file as part of one authoritative Machine state record (§3,
// §9 "Global machine state").
type registerFile struct {
	gpr  [numGPRegisters]uint64
	xmm  [numXMMRegisters][2]uint64
	fsBase uint64
	gsBase uint64
}

// RegRead64 returns the full 64-bit value of r.
func (m *Machine) RegRead64(r Register) uint64 {
	return m.gpr[r]
}

// RegWrite64 replaces the full 64-bit value of r.
func (m *Machine) RegWrite64(r Register, v uint64) {
	m.gpr[r] = v
}

// RegRead32 returns bits [31:0] of r's parent.
func (m *Machine) RegRead32(r Register) uint64 {
	return m.gpr[r] & 0xFFFFFFFF
}

// RegWrite32 zero-extends into the 64-bit parent: the architectural rule
// for every 32-bit GPR write (spec.md §4.1 "64-bit register writeback
// rule", §4.2 write_32).
func (m *Machine) RegWrite32(r Register, v uint64) {
	m.gpr[r] = v & 0xFFFFFFFF
}

// RegRead16 returns bits [15:0] of r's parent.
func (m *Machine) RegRead16(r Register) uint64 {
	return m.gpr[r] & 0xFFFF
}

// RegWrite16 preserves bits [63:16] and writes v into [15:0].
func (m *Machine) RegWrite16(r Register, v uint64) {
	m.gpr[r] = (m.gpr[r] &^ 0xFFFF) | (v & 0xFFFF)
}

// RegRead8 returns the low-byte view (AL, BL, CL, DL, ...): bits [7:0].
func (m *Machine) RegRead8(r Register) uint64 {
	return m.gpr[r] & 0xFF
}

// RegWrite8 preserves bits [63:8] and writes v into [7:0].
func (m *Machine) RegWrite8(r Register, v uint64) {
	m.gpr[r] = (m.gpr[r] &^ 0xFF) | (v & 0xFF)
}

// RegRead8High returns the high-byte view (AH, BH, CH, DH only): bits
// [15:8]. Callers must only use this for RAX/RBX/RCX/RDX; there is no
// AH-style view of R8-R15 in x86-64 (the REX prefix repurposes that
// encoding slot for SPL/BPL/SIL/DIL instead).
func (m *Machine) RegRead8High(r Register) uint64 {
	return (m.gpr[r] >> 8) & 0xFF
}

// RegWrite8High preserves every bit outside [15:8] and writes v there.
func (m *Machine) RegWrite8High(r Register, v uint64) {
	m.gpr[r] = (m.gpr[r] &^ 0xFF00) | ((v & 0xFF) << 8)
}

// RegRead128 returns the 128-bit value of an XMM register as two 64-bit
// words, low word first.
func (m *Machine) RegRead128(x XMMRegister) [2]uint64 {
	return m.xmm[x]
}

// RegWrite128 replaces the 128-bit value of an XMM register.
func (m *Machine) RegWrite128(x XMMRegister, v [2]uint64) {
	m.xmm[x] = v
}

// ReadFS returns the FS segment base used by effective-address
// computation (spec.md §3, §4.1).
func (m *Machine) ReadFS() uint64 { return m.fsBase }

// ReadGS returns the GS segment base.
func (m *Machine) ReadGS() uint64 { return m.gsBase }

// WriteFS sets the FS segment base (used by the arch_prctl syscall hook).
func (m *Machine) WriteFS(v uint64) { m.fsBase = v }

// WriteGS sets the GS segment base.
func (m *Machine) WriteGS(v uint64) { m.gsBase = v }
