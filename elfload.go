package x86emu

import (
	"debug/elf"
	"fmt"
	"io"
	"math/rand/v2"
)

// FromELF builds a Machine from an ELF64 executable: the segment
// containing the entry point supplies the code region, every other
// loadable segment becomes its own memory area (named after its virtual
// address, since ELF program headers carry no section name), and RIP
// starts at e_entry (spec.md
// §6 "from_binary(elf_bytes)"). Deliberately built on the standard
// library's debug/elf rather than a third-party parser: no repo in the
// pack imports one, and debug/elf is the Go ecosystem's own authoritative
// reader for this format.
func FromELF(r io.ReaderAt) (*Machine, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("x86emu: reading ELF: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("x86emu: only ELF64 binaries are supported, got %v", f.Class)
	}
	if f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("x86emu: only EM_X86_64 binaries are supported, got %v", f.Machine)
	}

	entry := f.Entry

	var codeData []byte
	var codeStart uint64
	var loaded []*elf.Prog

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		loaded = append(loaded, prog)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("x86emu: ELF file has no PT_LOAD segments")
	}

	m := &Machine{
		hooks: newHookRegistry(),
	}

	for _, prog := range loaded {
		data := make([]byte, prog.Memsz)
		if _, err := prog.ReadAt(data[:prog.Filesz], 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("x86emu: reading PT_LOAD segment at %#x: %w", prog.Vaddr, err)
		}

		// The segment containing the entry point becomes the code region
		// exclusively (m.code), never also a memory area: spec.md §3
		// invariant I2 forbids an area overlapping the code region, so the
		// entry segment's bytes live only in m.code, fetched through
		// readExecutableBytes. Every other PT_LOAD segment becomes an
		// ordinary named area.
		if entry >= prog.Vaddr && entry < prog.Vaddr+prog.Memsz {
			codeData = data
			codeStart = prog.Vaddr
			continue
		}
		name := fmt.Sprintf("elf-segment-%#x", prog.Vaddr)
		if err := m.MemInitAreaNamed(prog.Vaddr, data, name); err != nil {
			return nil, fmt.Errorf("x86emu: mapping PT_LOAD segment at %#x: %w", prog.Vaddr, err)
		}
	}

	if codeData == nil {
		return nil, fmt.Errorf("x86emu: entry point %#x is not inside any loaded segment", entry)
	}

	m.code = codeData
	m.codeStart = codeStart
	m.codeLength = uint64(len(codeData))
	m.randomizeRegisters(rand.Uint64())
	m.gpr[RIP] = entry
	m.running.Store(true)
	m.registerCoreSyscallHooks()
	return m, nil
}
