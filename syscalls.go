package x86emu

import (
	"math/rand/v2"

	"golang.org/x/sys/unix"
)

// brkState tracks the anywhere-allocated heap area the brk hook grows.
// Grounded on original_source/src/instructions/axecutor.rs's brk
// implementation, which does the same "lazily allocate on first brk(0),
// then resize in place" dance rather than reserving a fixed-size heap
// up front.
type brkState struct {
	areaStart uint64
	current   uint64
}

// pipeState tracks one simulated pipe's byte buffer and the fd pair
// handed back to the guest.
type pipeState struct {
	readFD, writeFD uint64
	buf             []byte
}

// registerCoreSyscallHooks wires up the brk/pipe/exit/arch_prctl pre-built
// hook factories spec.md §4.5 describes as shipping with the core, each
// installed as its own pre-Syscall hook that inspects RAX and falls
// through via Unhandled when it isn't the syscall it owns.
func (m *Machine) registerCoreSyscallHooks() {
	m.HandleSyscalls([]uint64{unix.SYS_BRK}, m.brkHook)
	m.HandleSyscalls([]uint64{unix.SYS_PIPE, unix.SYS_PIPE2}, m.pipeHook)
	m.HandleSyscalls([]uint64{unix.SYS_READ, unix.SYS_WRITE}, m.pipeIOHook)
	m.HandleSyscalls([]uint64{unix.SYS_EXIT, unix.SYS_EXIT_GROUP}, m.exitHook)
	m.HandleSyscalls([]uint64{unix.SYS_ARCH_PRCTL}, m.archPrctlHook)
}

// brkHook implements brk(2): RDI==0 queries the current break (returning
// it in RAX without growing anything); a non-zero RDI requests a new
// break address, grown via MemResizeSection, or the area is allocated for
// the first time via MemInitZeroAnywhere.
func (m *Machine) brkHook(mm *Machine) (Verdict, error) {
	req := mm.RegRead64(RDI)

	if mm.brkState == nil {
		start, err := mm.MemInitZeroAnywhere(4096)
		if err != nil {
			return Unhandled, err
		}
		mm.brkState = &brkState{areaStart: start, current: start + 4096}
	}

	if req == 0 {
		mm.RegWrite64(RAX, mm.brkState.current)
		return Handled, nil
	}

	newLen := req - mm.brkState.areaStart
	if err := mm.MemResizeSection(mm.brkState.areaStart, newLen); err != nil {
		mm.RegWrite64(RAX, mm.brkState.current)
		return Handled, nil
	}
	mm.brkState.current = req
	mm.RegWrite64(RAX, mm.brkState.current)
	return Handled, nil
}

// pipeHook implements pipe(2)/pipe2(2): allocates a randomized 16-bit+1024
// fd pair (spec.md §4.5) and a fresh byte buffer, then writes the two fds
// back to the int[2] array at RDI.
func (m *Machine) pipeHook(mm *Machine) (Verdict, error) {
	fdArray := mm.RegRead64(RDI)

	readFD := 1024 + uint64(rand.IntN(1<<16))
	writeFD := 1024 + uint64(rand.IntN(1<<16))
	for writeFD == readFD {
		writeFD = 1024 + uint64(rand.IntN(1<<16))
	}

	ps := &pipeState{readFD: readFD, writeFD: writeFD}
	if mm.pipeState == nil {
		mm.pipeState = make(map[uint64]*pipeState)
	}
	mm.registerPipe(ps)

	if err := mm.MemWrite32(fdArray, readFD); err != nil {
		return Unhandled, err
	}
	if err := mm.MemWrite32(fdArray+4, writeFD); err != nil {
		return Unhandled, err
	}
	mm.RegWrite64(RAX, 0)
	return Handled, nil
}

func (m *Machine) registerPipe(ps *pipeState) {
	m.pipeState[ps.readFD] = ps
	m.pipeState[ps.writeFD] = ps
}

// pipeIOHook intercepts read(fd)/write(fd) calls that target a simulated
// pipe's fd pair: write appends to the buffer, read drains it. Any other
// fd falls through Unhandled to the embedder's own write/read hooks (the
// CLI's stdout/stderr hook, for instance).
func (m *Machine) pipeIOHook(mm *Machine) (Verdict, error) {
	num := mm.RegRead64(RAX)
	fd := mm.RegRead64(RDI)
	ps := mm.pipeState[fd]
	if ps == nil {
		return Unhandled, nil
	}

	switch num {
	case unix.SYS_WRITE:
		if fd != ps.writeFD {
			return Unhandled, nil
		}
		addr, count := mm.RegRead64(RSI), mm.RegRead64(RDX)
		data, err := mm.MemReadBytes(addr, count)
		if err != nil {
			return Unhandled, err
		}
		ps.buf = append(ps.buf, data...)
		mm.RegWrite64(RAX, count)
		return Handled, nil

	case unix.SYS_READ:
		if fd != ps.readFD {
			return Unhandled, nil
		}
		addr, count := mm.RegRead64(RSI), mm.RegRead64(RDX)
		n := uint64(len(ps.buf))
		if n > count {
			n = count
		}
		if err := mm.MemWriteBytes(addr, ps.buf[:n]); err != nil {
			return Unhandled, err
		}
		ps.buf = ps.buf[n:]
		mm.RegWrite64(RAX, n)
		return Handled, nil
	}
	return Unhandled, nil
}

// exitHook implements exit(2)/exit_group(2): records RDI as the guest's
// exit code and stops the machine. The CLI reads the recorded value back
// through ExitCode() after Execute returns (spec.md §6 CLI surface: "exits with the guest's RAX as
// process exit code" — by the time exit(2) runs RAX has already been
// overwritten with the syscall number, so the exit code is read from the
// syscall's own argument register, RDI, matching the real kernel ABI).
func (m *Machine) exitHook(mm *Machine) (Verdict, error) {
	mm.exitCode = mm.RegRead64(RDI)
	mm.exitCodeSet = true
	mm.Stop()
	return Handled, nil
}

// archPrctlHook implements arch_prctl(2) for ARCH_SET_FS/ARCH_SET_GS (the
// only two subcodes a user-mode emulator needs to support TLS setup).
func (m *Machine) archPrctlHook(mm *Machine) (Verdict, error) {
	const (
		archSetGS = 0x1001
		archSetFS = 0x1002
		archGetFS = 0x1003
		archGetGS = 0x1004
	)
	code := mm.RegRead64(RDI)
	switch code {
	case archSetFS:
		mm.WriteFS(mm.RegRead64(RSI))
	case archSetGS:
		mm.WriteGS(mm.RegRead64(RSI))
	case archGetFS:
		if err := mm.MemWrite64(mm.RegRead64(RSI), mm.ReadFS()); err != nil {
			return Unhandled, err
		}
	case archGetGS:
		if err := mm.MemWrite64(mm.RegRead64(RSI), mm.ReadGS()); err != nil {
			return Unhandled, err
		}
	default:
		mm.RegWrite64(RAX, ^uint64(0)) // -EINVAL
		return Handled, nil
	}
	mm.RegWrite64(RAX, 0)
	return Handled, nil
}

// ExitCode returns the guest's exit(2)/exit_group(2) argument and whether
// such a syscall has run yet.
func (m *Machine) ExitCode() (uint64, bool) {
	return m.exitCode, m.exitCodeSet
}
