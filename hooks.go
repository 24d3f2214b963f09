package x86emu

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Verdict is a hook's two-variant return value (spec.md §4.5 "Hook
// contract"): Unhandled lets dispatch continue to the next hook and then
// the native handler; Handled short-circuits the native handler for this
// step.
type Verdict int

const (
	Unhandled Verdict = iota
	Handled
)

// Hook is an embedder-provided callback invoked before or after all
// handlers for a given mnemonic (spec.md GLOSSARY "Hook"). It receives the
// machine directly rather than a restricted view, matching the teacher's
// own preference for passing concrete types over narrow interfaces at
// embedder boundaries.
type Hook func(m *Machine) (Verdict, error)

// hookRegistry holds the ordered pre/post hook lists per mnemonic plus the
// re-entrancy guard. Deliberately a plain bool, not an atomic.Bool: the
// concurrency model is single-threaded cooperative by contract (spec.md
// §5), so an atomic here would overstate the actual guarantee. Contrast
// Machine.running, the one field that genuinely crosses goroutines.
type hookRegistry struct {
	before  map[Mnemonic][]Hook
	after   map[Mnemonic][]Hook
	running bool
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{
		before: make(map[Mnemonic][]Hook),
		after:  make(map[Mnemonic][]Hook),
	}
}

// HookBeforeMnemonic registers a pre-dispatch hook for mnem. Fails with a
// StateMisuse error if called while a hook is currently running, per
// spec.md §4.5's "attempts to mutate hook registration during a hook must
// fail."
func (m *Machine) HookBeforeMnemonic(mnem Mnemonic, cb Hook) error {
	if m.hooks.running {
		return newError(StateMisuse, "cannot register a hook while one is running")
	}
	m.hooks.before[mnem] = append(m.hooks.before[mnem], cb)
	return nil
}

// HookAfterMnemonic registers a post-dispatch hook for mnem.
func (m *Machine) HookAfterMnemonic(mnem Mnemonic, cb Hook) error {
	if m.hooks.running {
		return newError(StateMisuse, "cannot register a hook while one is running")
	}
	m.hooks.after[mnem] = append(m.hooks.after[mnem], cb)
	return nil
}

// runHooks invokes a mnemonic's hook list in registration order, guarding
// re-entrant registration attempts for the duration. It returns whether any
// hook returned Handled.
func (m *Machine) runHooks(list []Hook) (bool, error) {
	if len(list) == 0 {
		return false, nil
	}
	m.hooks.running = true
	defer func() { m.hooks.running = false }()

	for _, h := range list {
		verdict, err := h(m)
		if err != nil {
			return false, err
		}
		if verdict == Handled {
			return true, nil
		}
	}
	return false, nil
}

// SyscallHook is an embedder callback installed for a fixed set of guest
// syscall numbers (spec.md §6 "handle_syscalls(list)"). It is only invoked
// when RAX, at the time the pre-Syscall hooks run, matches one of the
// numbers HandleSyscalls was given.
type SyscallHook func(m *Machine) (Verdict, error)

// HandleSyscalls installs hook as a pre-Syscall hook that inspects RAX and
// returns Unhandled whenever the syscall number isn't in nums, letting
// other hooks (including the core's own brk/pipe/exit/arch_prctl factories)
// see syscalls HandleSyscalls doesn't claim (spec.md §4.5 "Syscall
// delegation").
func (m *Machine) HandleSyscalls(nums []uint64, hook SyscallHook) {
	wanted := make(map[uint64]bool, len(nums))
	for _, n := range nums {
		wanted[n] = true
	}
	_ = m.HookBeforeMnemonic(SYSCALL, func(m *Machine) (Verdict, error) {
		if !wanted[m.RegRead64(RAX)] {
			return Unhandled, nil
		}
		return hook(m)
	})
}

// ReplayAll runs a batch of independently constructed machines to
// completion concurrently, bounded by limit concurrent goroutines. This is
// an expansion over the core's single-machine API (spec.md §9's "separate
// machines for parallelism, not shared mutable state" guidance) intended
// for the CLI's batch-replay mode; it is not part of the stepping
// contract, and it shares no Machine state across goroutines — each
// machine runs to completion on its own goroutine.
func ReplayAll(machines []*Machine, limit int) error {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, mm := range machines {
		mm := mm
		g.Go(func() error {
			return mm.Execute(context.Background())
		})
	}
	return g.Wait()
}
