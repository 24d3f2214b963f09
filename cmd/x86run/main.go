// Command x86run is a thin command-line front-end for the x86emu core: it
// loads an ELF64 binary, wires up write/exit syscall handling to the
// host's stdout/stderr, and runs the guest to completion (spec.md §6 "CLI
// surface").
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/IntuitionAmiga/x86emu"
)

func main() {
	maxInstructions := flag.Uint64("max-instructions", 0, "stop after this many instructions (0 = unbounded)")
	trace := flag.Bool("trace", false, "print the syscall trace before exiting")
	interactive := flag.Bool("interactive", false, "single-step, waiting for Enter between instructions")
	replayGlob := flag.String("replay", "", "run every file matching this glob as an independent machine, concurrently")
	replayLimit := flag.Int("replay-limit", 4, "maximum concurrent machines for -replay")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <elf-path> [argv...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *replayGlob != "" {
		os.Exit(runReplay(*replayGlob, *replayLimit))
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	argv := flag.Args()

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("x86run: %v", err)
	}
	defer f.Close()

	m, err := x86emu.FromELF(f)
	if err != nil {
		log.Fatalf("x86run: %v", err)
	}

	if err := m.InitStackProgramStart(1<<20, argv, os.Environ()); err != nil {
		log.Fatalf("x86run: initializing stack: %v", err)
	}

	if *maxInstructions > 0 {
		m.SetMaxInstructions(*maxInstructions)
	}

	installStdioHooks(m)

	ctx := context.Background()

	var runErr error
	if *interactive {
		runErr = runInteractive(ctx, m)
	} else {
		runErr = m.Execute(ctx)
	}

	if *trace {
		fmt.Fprintln(os.Stderr, "--- syscall trace ---")
		for _, e := range m.Trace() {
			fmt.Fprintf(os.Stderr, "[%d] rip=%#x syscall=%d args=%v\n", e.InstructionIndex, e.RIP, e.SyscallNum, e.Args)
		}
	}

	if runErr != nil && !errors.Is(runErr, x86emu.ErrFinished) {
		log.Fatalf("x86run: %v", runErr)
	}

	code, _ := m.ExitCode()
	os.Exit(int(code))
}

// installStdioHooks wires write(fd 0/1/2) to stdout/stderr. The core's own
// brk/pipe/exit/arch_prctl hooks are already installed by FromELF; this
// adds the one syscall spec.md §6's CLI surface names explicitly.
func installStdioHooks(m *x86emu.Machine) {
	m.HandleSyscalls([]uint64{1 /* write */}, func(mm *x86emu.Machine) (x86emu.Verdict, error) {
		fd := mm.RegRead64(x86emu.RDI)
		addr := mm.RegRead64(x86emu.RSI)
		count := mm.RegRead64(x86emu.RDX)

		data, err := mm.MemReadBytes(addr, count)
		if err != nil {
			return x86emu.Unhandled, err
		}

		var out *os.File
		switch fd {
		case 0, 1:
			out = os.Stdout
		case 2:
			out = os.Stderr
		default:
			return x86emu.Unhandled, nil
		}
		n, _ := out.Write(data)
		mm.RegWrite64(x86emu.RAX, uint64(n))
		return x86emu.Handled, nil
	})
}

func runInteractive(ctx context.Context, m *x86emu.Machine) error {
	reader := bufio.NewReader(os.Stdin)
	isTerminal := term.IsTerminal(int(os.Stdin.Fd()))

	for {
		cont, err := m.Step(ctx)
		fmt.Fprintln(os.Stderr, m.String())
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		if isTerminal {
			fmt.Fprint(os.Stderr, "-- press Enter to step --")
		}
		if _, err := reader.ReadString('\n'); err != nil {
			return nil
		}
	}
}

func runReplay(glob string, limit int) int {
	matches, err := filepath.Glob(glob)
	if err != nil {
		log.Fatalf("x86run: %v", err)
	}
	if len(matches) == 0 {
		log.Fatalf("x86run: -replay matched no files")
	}

	machines := make([]*x86emu.Machine, 0, len(matches))
	for _, path := range matches {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("x86run: %v", err)
		}
		m, err := x86emu.FromELF(f)
		f.Close()
		if err != nil {
			log.Fatalf("x86run: loading %s: %v", path, err)
		}
		if err := m.InitStack(1 << 20); err != nil {
			log.Fatalf("x86run: initializing stack for %s: %v", path, err)
		}
		installStdioHooks(m)
		machines = append(machines, m)
	}

	if err := x86emu.ReplayAll(machines, limit); err != nil {
		fmt.Fprintf(os.Stderr, "x86run: replay error: %v\n", err)
		return 1
	}
	return 0
}
