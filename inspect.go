package x86emu

import (
	"fmt"
	"strings"
)

// MemDump renders a hex+ASCII dump centred on addr spanning rng bytes in
// each direction, 16 bytes per line, with an arrow on the line containing
// addr itself (spec.md §6 "Inspection API"). Grounded on the layout
// debug_cpu_x86.go's memory-inspection helpers use for the Machine
// Monitor, generalized from a 32-bit flat bus to this module's named
// memory areas.
func (m *Machine) MemDump(addr, rng uint64) string {
	start := addr - rng
	if rng > addr {
		start = 0
	}
	start -= start % 16
	end := addr + rng

	var b strings.Builder
	for line := start; line <= end; line += 16 {
		data, err := m.MemReadBytes(line, 16)
		if err != nil {
			continue
		}
		marker := "  "
		if addr >= line && addr < line+16 {
			marker = "->"
		}
		hexPart := formatHexLine(data)
		asciiPart := formatASCIILine(data)
		fmt.Fprintf(&b, "%s %#016x  %s  |%s|\n", marker, line, hexPart, asciiPart)
	}
	return b.String()
}

func formatHexLine(data []byte) string {
	var b strings.Builder
	for i, c := range data {
		fmt.Fprintf(&b, "%02X ", c)
		if i == 7 {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func formatASCIILine(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c >= 0x20 && c < 0x7F {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// StackDump is MemDump centred on the current RSP.
func (m *Machine) StackDump() string {
	return m.MemDump(m.RegRead64(RSP), 64)
}

// String renders a full machine snapshot: memory areas, registers in
// NaturalRegisterOrder, raw RFLAGS, and the set flag names (spec.md §6).
func (m *Machine) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "finished=%v executed=%d\n", m.finished, m.executedInstructionsCount)

	fmt.Fprintln(&b, "areas:")
	for _, a := range m.areas {
		fmt.Fprintf(&b, "  %-12s %#016x .. %#016x (%d bytes)\n", a.Name, a.Start, a.end(), a.Length)
	}

	fmt.Fprintln(&b, "registers:")
	for _, r := range NaturalRegisterOrder {
		fmt.Fprintf(&b, "  %-4s %#016x\n", r, m.RegRead64(r))
	}

	fmt.Fprintf(&b, "rflags: %#x [%s]\n", m.rflags, strings.Join(m.setFlagNameList(), " "))
	return b.String()
}

func (m *Machine) setFlagNameList() []string {
	var names []string
	for _, f := range setFlagNames {
		if m.rflags&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

func (m *Machine) callStackString() string {
	calls := m.CallStack()
	if len(calls) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for i, addr := range calls {
		fmt.Fprintf(&b, "  #%d %#016x\n", i, addr)
	}
	return b.String()
}

func (m *Machine) traceString() string {
	entries := m.Trace()
	if len(entries) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "  [%d] rip=%#x syscall=%d args=%v\n", e.InstructionIndex, e.RIP, e.SyscallNum, e.Args)
	}
	return b.String()
}
