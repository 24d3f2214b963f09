package x86emu

// widthOf returns an operand's width in bits.
func widthOf(op Operand) int { return op.SizeBytes * 8 }

// addFlags computes dest+src+carryIn at width, returning the masked
// result and the dynamic CF/OF/AF bits (spec.md §4.1 "Representative
// handler — ADC r/m32, r32"). Below 64 bits the carry out is bit W of
// the wide sum; at 64 bits, where the sum can genuinely overflow a uint64,
// a two-step carry-out detection (sum1 < d, then sum2 < sum1) is used.
func addFlags(d, s, carryIn uint64, width int) (result, dyn uint64) {
	mask := widthMask(width)

	var cf bool
	var sum uint64
	if width < 64 {
		// d, s <= mask < 2^63, so the wide sum never overflows a uint64;
		// bit W of the wide sum is the carry out.
		sum = d + s + carryIn
		cf = sum > mask
	} else {
		sum1 := d + s
		carry1 := sum1 < d
		sum2 := sum1 + carryIn
		carry2 := sum2 < sum1
		cf = carry1 || carry2
		sum = sum2
	}
	result = sum & mask

	topBit := uint64(1) << uint(width-1)
	dSign := d&topBit != 0
	sSign := s&topBit != 0
	rSign := result&topBit != 0
	of := dSign == sSign && rSign != dSign

	af := (d&0xF)+(s&0xF)+carryIn > 0xF

	if cf {
		dyn |= FlagCF
	}
	if of {
		dyn |= FlagOF
	}
	if af {
		dyn |= FlagAF
	}
	return result, dyn
}

// subFlags computes dest-src-borrowIn at width (spec.md §4.1
// "Representative handler — SUB/CMP flag derivation"): CF from unsigned
// borrow, OF from the XOR formula the spec gives verbatim, AF from a
// low-nibble borrow.
func subFlags(d, s, borrowIn uint64, width int) (result, dyn uint64) {
	mask := widthMask(width)
	s2 := s + borrowIn
	result = (d - s2) & mask

	cf := d < s || d-s < borrowIn
	of := ((d^s)&(d^result))>>uint(width-1)&1 == 1
	af := (d & 0xF) < (s&0xF)+borrowIn

	if cf {
		dyn |= FlagCF
	}
	if of {
		dyn |= FlagOF
	}
	if af {
		dyn |= FlagAF
	}
	return result, dyn
}

const arithClearOF_CF = FlagCF | FlagOF

func hADD(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return addFlags(d, s, 0, width)
	}, 0, 0)
}

func hADC(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	var carry uint64
	if m.CF() {
		carry = 1
	}
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return addFlags(d, s, carry, width)
	}, 0, 0)
}

func hSUB(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return subFlags(d, s, 0, width)
	}, 0, 0)
}

func hSBB(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	var borrow uint64
	if m.CF() {
		borrow = 1
	}
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return subFlags(d, s, borrow, width)
	}, 0, 0)
}

func hCMP(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return subFlags(d, s, 0, width)
	}, NoWriteback, 0)
}

func hAND(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return d & s, 0
	}, 0, arithClearOF_CF)
}

func hOR(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return d | s, 0
	}, 0, arithClearOF_CF)
}

func hXOR(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return d ^ s, 0
	}, 0, arithClearOF_CF)
}

func hTEST(m *Machine, inst *Instruction) error {
	dest, src := inst.Args[0], inst.Args[1]
	width := widthOf(dest)
	return m.calculateRMR(dest, src, width, func(d, s uint64) (uint64, uint64) {
		return d & s, 0
	}, NoWriteback, arithClearOF_CF)
}

func hNOT(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		return ^d, FlagsUnaffected
	}, 0, 0)
}

func hNEG(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		mask := widthMask(width)
		result := (-d) & mask
		topBit := uint64(1) << uint(width-1)
		var dyn uint64
		if d != 0 {
			dyn |= FlagCF
		}
		if result == topBit {
			dyn |= FlagOF
		}
		return result, dyn
	}, 0, 0)
}

func hINC(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	prevCF := m.CF()
	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		result, dyn := addFlags(d, 1, 0, width)
		// INC never touches CF; applyFlags clears CF unconditionally before
		// OR-ing dyn back in, so the previous value has to be threaded
		// through dyn rather than left alone.
		dyn &^= FlagCF
		if prevCF {
			dyn |= FlagCF
		}
		return result, dyn
	}, 0, 0)
}

func hDEC(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	prevCF := m.CF()
	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		result, dyn := subFlags(d, 1, 0, width)
		dyn &^= FlagCF
		if prevCF {
			dyn |= FlagCF
		}
		return result, dyn
	}, 0, 0)
}
