package x86emu

// hSYSCALL is the native SYSCALL handler. SYSCALL has no native semantics
// of its own (spec.md §4.5's syscall delegation model) — every guest
// syscall number must be claimed by a pre-Syscall hook, either one of the
// core's brk/pipe/exit/arch_prctl factories or an embedder's own
// HandleSyscalls registration. Reaching this handler means every hook
// returned Unhandled for the syscall number in RAX.
func hSYSCALL(m *Machine, inst *Instruction) error {
	num := m.RegRead64(RAX)
	debugLog.Printf("syscall %d has no registered hook at RIP=%#x, halting", num, m.RegRead64(RIP))
	return newError(UnsupportedInstruction, "syscall %d has no registered hook", num)
}
