package x86emu

// shiftCount reads and masks a shift/rotate count per spec.md §4.1
// "Representative handler — SHL r/m, imm8": maskW is 0x1F for widths
// 8/16/32 and 0x3F for width 64. Grounded on cpu_x86_grp.go's Grp2
// (Eb_1/Ev_1/Eb_CL/Ev_CL) sub-dispatch, generalized from a hand-written
// 1-vs-CL branch into one function that accepts either source shape.
func shiftCount(m *Machine, inst *Instruction, width int) uint64 {
	maskW := uint64(0x1F)
	if width == 64 {
		maskW = 0x3F
	}
	if len(inst.Args) < 2 {
		return 1 & maskW
	}
	raw, _ := m.readOperand(inst.Args[1])
	return raw & maskW
}

// hSHL implements SHL/SAL r/m, {1, imm8, CL} exactly per spec.md §4.1's
// two representative handlers for this mnemonic. c==0 leaves all flags
// unaffected; OF is only defined for c==1 and is architecturally
// undefined (cleared here) for every other count, per the spec's
// explicit guidance and the correction to the source noted in spec.md §9.
func hSHL(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	c := shiftCount(m, inst, width)

	if c == 0 {
		return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
			return d, FlagsUnaffected
		}, 0, 0)
	}

	flagsToClear := uint64(0)
	if c != 1 {
		flagsToClear = FlagOF
	}

	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		mask := widthMask(width)
		result := (d << c) & mask

		var dyn uint64
		if c <= uint64(width) {
			shiftedOut := (d >> uint(width-int(c))) & 1
			if shiftedOut == 1 {
				dyn |= FlagCF
			}
		}
		if c == 1 {
			resultTop := (result>>uint(width-1))&1 == 1
			cfSet := dyn&FlagCF != 0
			if cfSet != resultTop {
				dyn |= FlagOF
			}
		}
		return result, dyn
	}, 0, flagsToClear)
}

// hSHR implements logical right shift: CF from the last bit shifted out,
// OF (c==1 only) from the original top bit (the new top bit is always 0
// after a logical shift, so OF == original sign bit).
func hSHR(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	c := shiftCount(m, inst, width)

	if c == 0 {
		return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
			return d, FlagsUnaffected
		}, 0, 0)
	}

	flagsToClear := uint64(0)
	if c != 1 {
		flagsToClear = FlagOF
	}

	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		mask := widthMask(width)
		var result uint64
		var dyn uint64
		if c <= uint64(width) {
			result = (d & mask) >> uint(c)
			shiftedOut := (d >> uint(c-1)) & 1
			if shiftedOut == 1 {
				dyn |= FlagCF
			}
		}
		if c == 1 {
			topBit := uint64(1) << uint(width-1)
			if d&topBit != 0 {
				dyn |= FlagOF
			}
		}
		return result, dyn
	}, 0, flagsToClear)
}

// hSAR implements arithmetic right shift: the sign bit is replicated, CF
// is the last bit shifted out, OF is always 0 for c==1 (result's sign
// always matches the original).
func hSAR(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	c := shiftCount(m, inst, width)

	if c == 0 {
		return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
			return d, FlagsUnaffected
		}, 0, 0)
	}

	// OF is 0 for c==1 (result's sign always matches the original) and
	// undefined for c>1; cleared unconditionally in both cases.
	flagsToClear := FlagOF

	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		signed := int64(signExtend(d, width))
		result := uint64(signed>>uint(min(c, uint64(width-1)))) & widthMask(width)

		var dyn uint64
		if c <= uint64(width) {
			shiftedOut := (d >> uint(c-1)) & 1
			if shiftedOut == 1 {
				dyn |= FlagCF
			}
		} else if signed < 0 {
			dyn |= FlagCF
		}
		return result, dyn
	}, 0, flagsToClear)
}

// hROL/hROR implement rotate-left/rotate-right. CF takes the bit rotated
// into the carry position. OF (c==1 only) differs between the two per the
// Intel SDM: ROL's is CF(after) XOR MSB(result); ROR's is the XOR of the
// result's two most significant bits.
func hROL(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	c := shiftCount(m, inst, width)
	rot := c % uint64(width)

	if c == 0 {
		return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
			return d, FlagsUnaffected
		}, 0, 0)
	}

	flagsToClear := uint64(0)
	if c != 1 {
		flagsToClear = FlagOF
	}

	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		mask := widthMask(width)
		d &= mask
		var result uint64
		if rot == 0 {
			result = d
		} else {
			result = ((d << rot) | (d >> uint(uint64(width)-rot))) & mask
		}
		var dyn uint64
		if result&1 == 1 {
			dyn |= FlagCF
		}
		if c == 1 {
			cf := dyn&FlagCF != 0
			top := (result>>uint(width-1))&1 == 1
			if cf != top {
				dyn |= FlagOF
			}
		}
		return result, dyn
	}, 0, flagsToClear)
}

func hROR(m *Machine, inst *Instruction) error {
	dest := inst.Args[0]
	width := widthOf(dest)
	c := shiftCount(m, inst, width)
	rot := c % uint64(width)

	if c == 0 {
		return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
			return d, FlagsUnaffected
		}, 0, 0)
	}

	flagsToClear := uint64(0)
	if c != 1 {
		flagsToClear = FlagOF
	}

	return m.calculateRM(dest, width, func(d uint64) (uint64, uint64) {
		mask := widthMask(width)
		d &= mask
		var result uint64
		if rot == 0 {
			result = d
		} else {
			result = ((d >> rot) | (d << uint(uint64(width)-rot))) & mask
		}
		var dyn uint64
		topBit := uint64(1) << uint(width-1)
		if result&topBit != 0 {
			dyn |= FlagCF
		}
		if c == 1 {
			top := (result >> uint(width-1)) & 1
			next := (result >> uint(width-2)) & 1
			if top != next {
				dyn |= FlagOF
			}
		}
		return result, dyn
	}, 0, flagsToClear)
}
