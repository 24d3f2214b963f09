package x86emu

import "context"

// Step executes one instruction and reports whether execution should
// continue. It implements spec.md §4.5's twelve-step sequence exactly;
// the step numbers in the comments below correspond to that list.
func (m *Machine) Step(ctx context.Context) (bool, error) {
	// A hook may have called Stop() on a previous step, or an embedder on
	// another goroutine may have flipped running since the last call;
	// either way that becomes `finished` the next time anyone asks.
	if !m.running.Load() {
		m.finished = true
	}

	// 1. If finished, error.
	if m.finished {
		return false, ErrFinished
	}

	// 2. If max_instructions is set and reached, error.
	if m.maxInstructions != nil && m.executedInstructionsCount >= *m.maxInstructions {
		return false, ErrLimitReached
	}

	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	// 3. Decode next instruction at RIP.
	inst, err := m.decodeNext()
	if err != nil {
		return false, m.augment(err, "decoding instruction")
	}

	// 4. Advance RIP to next_ip before executing.
	m.RegWrite64(RIP, inst.NextIP)

	// 5. Map the mnemonic; error if unsupported (decodeNext already does
	// this via mnemonicFromOp, so an Instruction here always carries a
	// recognized Mnemonic).
	handler, ok := dispatchTable[inst.Mnemonic]
	if !ok {
		return false, m.augment(newError(UnsupportedInstruction, "no dispatch entry for %v", inst.Mnemonic), "dispatching instruction")
	}

	// 6. For Syscall specifically, trace before hooks can mutate registers.
	if inst.Mnemonic == SYSCALL {
		m.recordSyscallTrace(inst)
	}

	// 7. Pre-mnemonic hooks; Handled skips the native handler.
	handled, err := m.runHooks(m.hooks.before[inst.Mnemonic])
	if err != nil {
		return false, m.augment(err, "running pre-mnemonic hook")
	}

	// 8. Native handler, unless a pre-hook already handled it.
	if !handled {
		if err := handler(m, inst); err != nil {
			if e, ok := err.(*Error); ok && e.Kind == normalFinish {
				m.finished = true
			} else {
				return false, m.augment(err, "executing "+inst.Mnemonic.String())
			}
		}
	}

	// 9. Increment executed instruction count.
	m.executedInstructionsCount++

	// 10. If RIP reached the end of the code region, finish.
	if m.RegRead64(RIP) == m.codeStart+m.codeLength {
		m.finished = true
	}

	// 11. Post-mnemonic hooks.
	if _, err := m.runHooks(m.hooks.after[inst.Mnemonic]); err != nil {
		return false, m.augment(err, "running post-mnemonic hook")
	}

	// 12. Return !finished.
	if !m.running.Load() {
		m.finished = true
	}
	return !m.finished, nil
}

// Execute repeatedly steps until Step returns false or an error.
func (m *Machine) Execute(ctx context.Context) error {
	for {
		cont, err := m.Step(ctx)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// augment attaches the call-stack/trace/stack-dump snapshot spec.md §7
// calls for on any error leaving Step, mirroring AxError::add_detail in
// original_source/src/helpers/errors.rs.
func (m *Machine) augment(err error, stage string) error {
	e, ok := err.(*Error)
	if !ok {
		e = wrapError(MemoryErr, err)
	}
	return e.AddDetail(stage, m.callStackString(), m.traceString(), m.StackDump())
}
