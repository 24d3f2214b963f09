package x86emu

import (
	"encoding/binary"
	"fmt"
)

// MemoryArea is a named, non-overlapping byte range (spec.md §3). The
// teacher's X86Bus is a flat 32MB array with no named-region concept, so
// this type is grounded directly on original_source/src/state/memory.rs's
// MemoryArea instead.
type MemoryArea struct {
	Name   string
	Start  uint64
	Length uint64
	Data   []byte
}

func (a *MemoryArea) end() uint64 { return a.Start + a.Length }

func (a *MemoryArea) contains(start, length uint64) bool {
	return start >= a.Start && start+length <= a.end()
}

func overlaps(start1, len1, start2, len2 uint64) bool {
	end1 := start1 + len1
	end2 := start2 + len2
	return start1 < end2 && start2 < end1
}

// maxProbeAddr bounds init-anywhere probing (spec.md §4.3).
const maxProbeAddr = 0x7FFF_FFFF_FFFF_FFFF

func (m *Machine) overlapsCode(start, length uint64) bool {
	return overlaps(start, length, m.codeStart, m.codeLength)
}

func (m *Machine) findOverlapping(start, length uint64) *MemoryArea {
	for _, a := range m.areas {
		if overlaps(start, length, a.Start, a.Length) {
			return a
		}
	}
	return nil
}

// MemInitArea allocates a new unnamed area with the given contents.
func (m *Machine) MemInitArea(start uint64, data []byte) error {
	return m.MemInitAreaNamed(start, data, "")
}

// MemInitAreaNamed allocates a new named area with the given contents.
// Fails if [start, start+len(data)) overlaps any existing area or the
// code region (spec.md §4.3, invariants I1/I2 in §8).
func (m *Machine) MemInitAreaNamed(start uint64, data []byte, name string) error {
	length := uint64(len(data))
	if m.overlapsCode(start, length) {
		return newError(MemoryErr, "area %q at %#x..%#x overlaps the code region", name, start, start+length)
	}
	if a := m.findOverlapping(start, length); a != nil {
		return newError(MemoryErr, "area %q at %#x..%#x overlaps existing area %q", name, start, start+length, a.Name)
	}
	buf := make([]byte, length)
	copy(buf, data)
	m.areas = append(m.areas, &MemoryArea{Name: name, Start: start, Length: length, Data: buf})
	return nil
}

// MemInitZero allocates a new unnamed, zero-filled area of the given
// length.
func (m *Machine) MemInitZero(start, length uint64) error {
	return m.MemInitZeroNamed(start, length, "")
}

// MemInitZeroNamed allocates a new named, zero-filled area.
func (m *Machine) MemInitZeroNamed(start, length uint64, name string) error {
	return m.MemInitAreaNamed(start, make([]byte, length), name)
}

// probeAnywhere finds a non-overlapping slot for a region of the given
// length, starting at 0x1000 and doubling past any collision (spec.md
// §4.3's "init_anywhere probes addresses beginning at 0x1000 and
// doubling" contract). On collision with an existing area we advance to
// max(candidate*2, collidingArea.end) rather than a bare doubling, so a
// single large area near the top of the space can't strand the probe in
// a loop of candidates that all still land inside it.
func (m *Machine) probeAnywhere(length uint64) (uint64, error) {
	candidate := uint64(0x1000)
	for candidate < maxProbeAddr {
		if !m.overlapsCode(candidate, length) {
			if a := m.findOverlapping(candidate, length); a != nil {
				next := candidate * 2
				if a.end() > next {
					next = a.end()
				}
				candidate = next
				continue
			}
			return candidate, nil
		}
		candidate *= 2
	}
	return 0, newError(MemoryErr, "no room for a %d-byte area below %#x", length, maxProbeAddr)
}

// MemInitAnywhere allocates a new area holding data at a probed address.
func (m *Machine) MemInitAnywhere(data []byte) (uint64, error) {
	start, err := m.probeAnywhere(uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if err := m.MemInitArea(start, data); err != nil {
		return 0, err
	}
	return start, nil
}

// MemInitZeroAnywhere allocates a new zero-filled area at a probed
// address.
func (m *Machine) MemInitZeroAnywhere(length uint64) (uint64, error) {
	start, err := m.probeAnywhere(length)
	if err != nil {
		return 0, err
	}
	if err := m.MemInitZero(start, length); err != nil {
		return 0, err
	}
	return start, nil
}

// MemInitZeroAnywhereNamed is MemInitZeroAnywhere with a caller-chosen area
// name, used by InitStack/InitStackProgramStart so the stack area shows up
// as "Stack" rather than the generic default in MemDump/String output.
func (m *Machine) MemInitZeroAnywhereNamed(length uint64, name string) (uint64, error) {
	start, err := m.probeAnywhere(length)
	if err != nil {
		return 0, err
	}
	if err := m.MemInitZeroNamed(start, length, name); err != nil {
		return 0, err
	}
	return start, nil
}

// MemResizeSection grows an existing area in place. It cannot shrink and
// cannot produce overlap with the following area or the code region
// (spec.md §4.3, §8 boundary behaviors).
func (m *Machine) MemResizeSection(start, newLength uint64) error {
	var area *MemoryArea
	for _, a := range m.areas {
		if a.Start == start {
			area = a
			break
		}
	}
	if area == nil {
		return newError(MemoryErr, "no area starts at %#x", start)
	}
	if newLength < area.Length {
		return newError(MemoryErr, "resize of area %q would shrink it (%d -> %d)", area.Name, area.Length, newLength)
	}
	if m.overlapsCode(start, newLength) {
		return newError(MemoryErr, "resizing area %q to %d bytes would overlap the code region", area.Name, newLength)
	}
	for _, a := range m.areas {
		if a == area {
			continue
		}
		if overlaps(start, newLength, a.Start, a.Length) {
			return newError(MemoryErr, "resizing area %q to %d bytes would overlap area %q", area.Name, newLength, a.Name)
		}
	}
	grown := make([]byte, newLength)
	copy(grown, area.Data)
	area.Data = grown
	area.Length = newLength
	return nil
}

func (m *Machine) findContaining(addr, length uint64) *MemoryArea {
	for _, a := range m.areas {
		if a.contains(addr, length) {
			return a
		}
	}
	return nil
}

// collectErrorHints builds the human-readable diagnostic spec.md §4.3
// requires: is the address in the code region? does it start inside an
// area but overrun the end? does it end inside an area but start before
// it? else a generic out-of-range message. Grounded on
// original_source/src/state/memory.rs's collect_mem_error_hints.
func (m *Machine) collectErrorHints(addr, length uint64) string {
	end := addr + length
	if overlaps(addr, length, m.codeStart, m.codeLength) {
		return fmt.Sprintf("address range %#x..%#x overlaps the code region [%#x, %#x)", addr, end, m.codeStart, m.codeStart+m.codeLength)
	}
	for _, a := range m.areas {
		if addr >= a.Start && addr < a.end() && end > a.end() {
			return fmt.Sprintf("range %#x..%#x starts inside area %q [%#x, %#x) but overruns its end by %d bytes", addr, end, a.Name, a.Start, a.end(), end-a.end())
		}
		if end > a.Start && end <= a.end() && addr < a.Start {
			return fmt.Sprintf("range %#x..%#x ends inside area %q [%#x, %#x) but starts %d bytes before it", addr, end, a.Name, a.Start, a.end(), a.Start-addr)
		}
	}
	return fmt.Sprintf("address range %#x..%#x is not covered by any single memory area", addr, end)
}

// MemReadBytes finds the single area fully containing [addr, addr+length)
// and copies it out. There is no cross-area reassembly (spec.md §4.3,
// §8 boundary behaviors): a read spanning two adjacent areas fails even
// if their union covers the range.
func (m *Machine) MemReadBytes(addr, length uint64) ([]byte, error) {
	a := m.findContaining(addr, length)
	if a == nil {
		return nil, newError(MemoryErr, "read failed: %s", m.collectErrorHints(addr, length))
	}
	off := addr - a.Start
	out := make([]byte, length)
	copy(out, a.Data[off:off+length])
	return out, nil
}

// MemWriteBytes is the write-side symmetric counterpart of MemReadBytes.
func (m *Machine) MemWriteBytes(addr uint64, data []byte) error {
	a := m.findContaining(addr, uint64(len(data)))
	if a == nil {
		return newError(MemoryErr, "write failed: %s", m.collectErrorHints(addr, uint64(len(data))))
	}
	off := addr - a.Start
	copy(a.Data[off:off+uint64(len(data))], data)
	return nil
}

// MemRead8/16/32/64 decode little-endian typed values.
func (m *Machine) MemRead8(addr uint64) (uint64, error) {
	b, err := m.MemReadBytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return uint64(b[0]), nil
}

func (m *Machine) MemRead16(addr uint64) (uint64, error) {
	b, err := m.MemReadBytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return uint64(binary.LittleEndian.Uint16(b)), nil
}

func (m *Machine) MemRead32(addr uint64) (uint64, error) {
	b, err := m.MemReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return uint64(binary.LittleEndian.Uint32(b)), nil
}

func (m *Machine) MemRead64(addr uint64) (uint64, error) {
	b, err := m.MemReadBytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *Machine) MemRead128(addr uint64) ([2]uint64, error) {
	b, err := m.MemReadBytes(addr, 16)
	if err != nil {
		return [2]uint64{}, err
	}
	return [2]uint64{binary.LittleEndian.Uint64(b[0:8]), binary.LittleEndian.Uint64(b[8:16])}, nil
}

// MemWrite8/16/32/64 reject values that overflow the requested width
// (spec.md §4.3: "overflow checks reject values that do not fit").
func (m *Machine) MemWrite8(addr uint64, v uint64) error {
	if v > 0xFF {
		return newError(MemoryErr, "value %#x does not fit in 8 bits", v)
	}
	return m.MemWriteBytes(addr, []byte{byte(v)})
}

func (m *Machine) MemWrite16(addr uint64, v uint64) error {
	if v > 0xFFFF {
		return newError(MemoryErr, "value %#x does not fit in 16 bits", v)
	}
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return m.MemWriteBytes(addr, b)
}

func (m *Machine) MemWrite32(addr uint64, v uint64) error {
	if v > 0xFFFF_FFFF {
		return newError(MemoryErr, "value %#x does not fit in 32 bits", v)
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return m.MemWriteBytes(addr, b)
}

func (m *Machine) MemWrite64(addr uint64, v uint64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return m.MemWriteBytes(addr, b)
}

func (m *Machine) MemWrite128(addr uint64, v [2]uint64) error {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], v[0])
	binary.LittleEndian.PutUint64(b[8:16], v[1])
	return m.MemWriteBytes(addr, b)
}

// readExecutableBytes returns up to 15 bytes (the maximum x86 instruction
// length) from the code region starting at addr, clamped at the code
// region's end, for the decoder to consume (spec.md §4.3 "Code bytes").
func (m *Machine) readExecutableBytes(addr uint64) ([]byte, error) {
	if addr < m.codeStart || addr >= m.codeStart+m.codeLength {
		return nil, newError(MemoryErr, "instruction fetch at %#x is outside the code region [%#x, %#x)", addr, m.codeStart, m.codeStart+m.codeLength)
	}
	off := addr - m.codeStart
	end := off + 15
	if max := m.codeLength; end > max {
		end = max
	}
	return m.code[off:end], nil
}
