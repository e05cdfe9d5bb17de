package format

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsColorTerminal reports whether w is a terminal that should receive
// colored output. It is false for anything other than an *os.File, when
// NO_COLOR is set, and when TERM is "dumb" or empty.
func IsColorTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	termEnv := os.Getenv("TERM")
	if termEnv == "dumb" || termEnv == "" {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
