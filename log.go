package x86emu

import (
	"io"
	"log"
)

// debugLog is silent by default. Embedders that want step-by-step tracing
// call SetLogOutput; nothing in the hot path pays for logging otherwise.
var debugLog = log.New(io.Discard, "x86emu: ", log.Lmicroseconds)

// SetLogOutput redirects the package's debug logger. Passing nil restores
// the silent default.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	debugLog.SetOutput(w)
}
