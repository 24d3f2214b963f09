package x86emu

// TraceEntry is one syscall trace-ring entry, recorded at step 6 of the
// step loop (spec.md §4.5) before any hook gets a chance to mutate
// registers, so the trace always reflects the true call-site values.
// Grounded on original_source/src/state/trace.rs, which keeps the same
// "fixed-capacity, oldest-entry-drops" ring rather than an unbounded log.
type TraceEntry struct {
	InstructionIndex uint64
	RIP              uint64
	SyscallNum       uint64
	Args             [6]uint64 // RDI, RSI, RDX, R10, R8, R9, the System V syscall ABI order
}

const traceCapacity = 256

// recordSyscallTrace appends a trace entry, dropping the oldest entry once
// the ring is full.
func (m *Machine) recordSyscallTrace(inst *Instruction) {
	entry := TraceEntry{
		InstructionIndex: m.executedInstructionsCount,
		RIP:              inst.Addr,
		SyscallNum:       m.RegRead64(RAX),
		Args: [6]uint64{
			m.RegRead64(RDI), m.RegRead64(RSI), m.RegRead64(RDX),
			m.RegRead64(R10), m.RegRead64(R8), m.RegRead64(R9),
		},
	}
	m.trace = append(m.trace, entry)
	if len(m.trace) > traceCapacity {
		m.trace = m.trace[len(m.trace)-traceCapacity:]
	}
}

// Trace returns a copy of the syscall trace ring, oldest entry first.
func (m *Machine) Trace() []TraceEntry {
	return append([]TraceEntry(nil), m.trace...)
}

// CallStack returns the live return-address stack maintained by CALL/RET,
// innermost call last. Grounded on original_source/src/axecutor.rs's
// call_stack field, surfaced here for embedders building a debugger or
// attaching it to a decode/memory error via Error.AddDetail.
func (m *Machine) CallStack() []uint64 {
	return append([]uint64(nil), m.calls...)
}
