package x86emu

// InitStack allocates a stack area of the given length at an
// anywhere-chosen address and points RSP at start+length-8 (spec.md §6
// "Stack API"). It leaves the stack otherwise empty, for callers that
// manage their own calling convention (e.g. the top-level-RET E2E
// scenario, which never touches argv/envp).
func (m *Machine) InitStack(length uint64) error {
	start, err := m.MemInitZeroAnywhereNamed(length, "Stack")
	if err != nil {
		return err
	}
	top := start + length - 8
	m.stackTop = top
	m.lastRSP = top
	m.RegWrite64(RSP, top)
	return nil
}

// InitStackProgramStart lays out a System V-style initial stack: from
// lowest to highest address, argc, argv[0..n] pointers, a NULL, envp[0..m]
// pointers, a NULL, with RSP left pointing at argc. Each string is stored
// in its own allocated area and only its pointer goes on the stack (spec.md
// §6). Grounded on original_source's program-start stack construction,
// which follows the same kernel ABI this supplements from — distilled
// spec.md only named init_stack, this is the richer variant a complete
// loader needs to hand a guest a runnable argv/envp.
func (m *Machine) InitStackProgramStart(length uint64, argv, envp []string) error {
	start, err := m.MemInitZeroAnywhereNamed(length, "Stack")
	if err != nil {
		return err
	}
	top := start + length

	storeString := func(s string) (uint64, error) {
		data := append([]byte(s), 0)
		return m.MemInitAnywhere(data)
	}

	argvPtrs := make([]uint64, len(argv))
	for i, s := range argv {
		addr, err := storeString(s)
		if err != nil {
			return err
		}
		argvPtrs[i] = addr
	}
	envpPtrs := make([]uint64, len(envp))
	for i, s := range envp {
		addr, err := storeString(s)
		if err != nil {
			return err
		}
		envpPtrs[i] = addr
	}

	// Lay out downward from `top`: envp NULL, envp[m-1..0], argv NULL,
	// argv[n-1..0], argc. RSP ends pointing at argc, the lowest address
	// written.
	sp := top

	writeWord := func(v uint64) error {
		sp -= 8
		return m.MemWrite64(sp, v)
	}

	if err := writeWord(0); err != nil {
		return err
	}
	for i := len(envpPtrs) - 1; i >= 0; i-- {
		if err := writeWord(envpPtrs[i]); err != nil {
			return err
		}
	}
	if err := writeWord(0); err != nil {
		return err
	}
	for i := len(argvPtrs) - 1; i >= 0; i-- {
		if err := writeWord(argvPtrs[i]); err != nil {
			return err
		}
	}
	if err := writeWord(uint64(len(argv))); err != nil {
		return err
	}

	m.stackTop = top
	m.lastRSP = sp
	m.RegWrite64(RSP, sp)
	return nil
}
