package x86emu

// RFLAGS bit positions named per Intel SDM (spec.md §3), mirroring the
// constant block in cpu_x86.go (x86FlagCF, x86FlagZF, ...) generalized
// from EFLAGS to the subset of RFLAGS this module interprets.
const (
	FlagCF uint64 = 1 << 0
	FlagPF uint64 = 1 << 2
	FlagAF uint64 = 1 << 4
	FlagZF uint64 = 1 << 6
	FlagSF uint64 = 1 << 7
	FlagDF uint64 = 1 << 10
	FlagOF uint64 = 1 << 11
)

// Sentinels used by the RMW primitives (spec.md §4.1, §4.4, GLOSSARY).
// NoWriteback lives in the flagsToSet parameter; FlagsUnaffected is
// returned by a lambda in place of dynamic flags. Both occupy bits far
// above any real RFLAGS bit this module interprets so they can never
// collide with CF/PF/AF/ZF/SF/DF/OF.
const (
	NoWriteback     uint64 = 1 << 63
	FlagsUnaffected uint64 = 1 << 62
)

func widthMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// parity8 reports the x86 PF convention: true iff the low byte has an
// even number of set bits. Computed by XOR-fold, the same idiom as
// oisee-z80-optimizer/pkg/cpu/flags.go's ParityTable build loop (that
// repo precomputes a table; this module computes per call since flag
// updates are not the hot path RMW width dispatch is).
func parity8(b byte) bool {
	b ^= b >> 4
	b ^= b >> 2
	b ^= b >> 1
	return b&1 == 0
}

// GetFlag reports whether a given RFLAGS bit is set.
func (m *Machine) GetFlag(bit uint64) bool {
	return m.rflags&bit != 0
}

// SetFlag sets or clears a given RFLAGS bit.
func (m *Machine) SetFlag(bit uint64, set bool) {
	if set {
		m.rflags |= bit
	} else {
		m.rflags &^= bit
	}
}

// RFlags returns the raw 64-bit RFLAGS value.
func (m *Machine) RFlags() uint64 { return m.rflags }

// SetRFlags replaces the raw 64-bit RFLAGS value.
func (m *Machine) SetRFlags(v uint64) { m.rflags = v }

// CF, ZF, SF, OF, PF, AF, DF are convenience predicate readers, mirroring
// cpu_x86.go's CF()/ZF()/SF()/OF()/PF()/AF()/DF() wrappers.
func (m *Machine) CF() bool { return m.GetFlag(FlagCF) }
func (m *Machine) ZF() bool { return m.GetFlag(FlagZF) }
func (m *Machine) SF() bool { return m.GetFlag(FlagSF) }
func (m *Machine) OF() bool { return m.GetFlag(FlagOF) }
func (m *Machine) PF() bool { return m.GetFlag(FlagPF) }
func (m *Machine) AF() bool { return m.GetFlag(FlagAF) }
func (m *Machine) DF() bool { return m.GetFlag(FlagDF) }

// applyFlags is the single width-generic flag helper described in
// spec.md §4.4, shared by every RMW primitive in rmw.go. dynamic carries
// the flag bits a lambda computed (CF/OF/AF, or FlagsUnaffected to skip
// everything). flagsToSet/flagsToClear are the static directives passed
// to the calling primitive; NoWriteback is masked out before it can leak
// into RFLAGS.
//
// Mirrors cpu_x86.go's setFlagsArith8/16/32 and setFlagsLogic8, but
// generalized from three hand-duplicated per-width functions into one
// width-parameterized helper, per spec.md §9's "resist per-opcode
// duplication" guidance.
func applyFlags(m *Machine, width int, result, dynamic, flagsToSet, flagsToClear uint64) {
	if dynamic&FlagsUnaffected != 0 {
		return
	}

	// CF and OF are fully determined by every RMW lambda that reaches this
	// point (INC/DEC fold the previous CF back into their own dynamic bits
	// to get the "unaffected" architectural behavior) - cleared here first
	// so a stale bit from a prior instruction can never leak through just
	// because this lambda happened not to set it.
	rflags := m.rflags
	rflags &^= FlagCF | FlagOF
	combined := (flagsToSet &^ NoWriteback) | dynamic
	rflags |= combined
	rflags &^= flagsToClear

	mask := widthMask(width)
	r := result & mask

	if r == 0 {
		rflags |= FlagZF
	} else {
		rflags &^= FlagZF
	}

	topBit := uint64(1) << uint(width-1)
	if result&topBit != 0 {
		rflags |= FlagSF
	} else {
		rflags &^= FlagSF
	}

	if parity8(byte(r)) {
		rflags |= FlagPF
	} else {
		rflags &^= FlagPF
	}

	m.rflags = rflags
}

// setFlagNames lists every RFLAGS bit this module interprets, in the
// fixed order used by String() (spec.md §6: "a list of set flag names").
var setFlagNames = []struct {
	bit  uint64
	name string
}{
	{FlagCF, "CF"},
	{FlagPF, "PF"},
	{FlagAF, "AF"},
	{FlagZF, "ZF"},
	{FlagSF, "SF"},
	{FlagDF, "DF"},
	{FlagOF, "OF"},
}
