package x86emu

import (
	"math/rand/v2"
	"sync/atomic"
)

// Machine is the sole authoritative mutable state (spec.md §3, §9 "Global
// machine state"): there are no ambient globals and no thread-locals.
// Grounded on cpu_x86.go's CPU_X86 struct, generalized from the 386
// instruction subset to x86-64 and from a flat bus to named memory areas.
type Machine struct {
	registerFile
	rflags uint64

	areas       []*MemoryArea
	code        []byte
	codeStart   uint64
	codeLength  uint64

	finished                  bool
	executedInstructionsCount uint64
	maxInstructions           *uint64
	stackTop                  uint64
	lastRSP                   uint64

	hooks *hookRegistry

	brkState    *brkState
	pipeState   map[uint64]*pipeState
	exitCode    uint64
	exitCodeSet bool

	trace []TraceEntry
	calls []uint64 // return-address stack, maintained by CALL/RET for CallStack()

	// running lets an embedder on another goroutine request cooperative
	// termination at the next step boundary, the same shape as
	// cpu_x86.go's CPU_X86.running/Running()/SetRunning() atomic pair.
	running atomic.Bool
}

// New constructs a Machine from raw instruction bytes (spec.md §6
// Construction). General-purpose registers are randomized (RIP and RSP
// excepted) to discourage guest code from depending on undefined initial
// values (spec.md §3 Lifecycle).
func New(code []byte, codeStart, initialRIP uint64) (*Machine, error) {
	return newMachine(code, codeStart, initialRIP, rand.Uint64())
}

// NewSeeded is the reproducible-test variant of New: the same seed always
// produces the same randomized initial register set (SPEC_FULL.md §9 Open
// Question decision on RNG seeding).
func NewSeeded(code []byte, codeStart, initialRIP, seed uint64) (*Machine, error) {
	return newMachine(code, codeStart, initialRIP, seed)
}

func newMachine(code []byte, codeStart, initialRIP, seed uint64) (*Machine, error) {
	m := &Machine{
		code:       append([]byte(nil), code...),
		codeStart:  codeStart,
		codeLength: uint64(len(code)),
		hooks:      newHookRegistry(),
	}
	m.randomizeRegisters(seed)
	m.gpr[RIP] = initialRIP
	m.running.Store(true)
	m.registerCoreSyscallHooks()
	return m, nil
}

// randomizeRegisters fills every GPR except RSP and RIP with a
// pseudo-random value, per spec.md §3 Lifecycle / §4.2.
func (m *Machine) randomizeRegisters(seed uint64) {
	src := rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)
	rng := rand.New(src)
	for r := Register(0); r < numGPRegisters; r++ {
		if r == RSP || r == RIP {
			continue
		}
		m.gpr[r] = rng.Uint64()
	}
}

// Finished reports whether execution has reached a terminal state.
func (m *Machine) Finished() bool { return m.finished }

// ExecutedInstructionsCount returns the number of instructions
// successfully stepped so far (spec.md §8 invariant 5).
func (m *Machine) ExecutedInstructionsCount() uint64 { return m.executedInstructionsCount }

// SetMaxInstructions caps the number of instructions Step/Execute may run
// before returning LimitExceeded (spec.md §6, §7).
func (m *Machine) SetMaxInstructions(n uint64) {
	m.maxInstructions = &n
}

// Stop requests cooperative termination: the machine finishes at the next
// step boundary without erroring, mirroring RET-at-top-of-stack's
// "normal finish" signal (spec.md §4.5, §7). Safe to call from another
// goroutine while Step/Execute is in flight on the owning goroutine —
// this is the one place the single-threaded cooperative model (spec.md
// §5) exposes an atomic, for exactly the same reason cpu_x86.go's
// CPU_X86.running does: a debugger/runner on another goroutine needs to
// ask the stepping goroutine to stop.
func (m *Machine) Stop() {
	m.running.Store(false)
}

// CodeRegion returns the code region's bounds.
func (m *Machine) CodeRegion() (start, length uint64) {
	return m.codeStart, m.codeLength
}

// Areas returns the current memory areas in allocation order.
func (m *Machine) Areas() []*MemoryArea {
	return m.areas
}
