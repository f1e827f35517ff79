package cli

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/gzhole/lastlayer/internal/scoring"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// palette colours output only when it goes to a terminal and NO_COLOR is unset.
type palette struct {
	enabled bool
}

func newPalette(w io.Writer) palette {
	return palette{enabled: colorEnabled(w)}
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p palette) wrap(code, s string) string {
	if !p.enabled {
		return s
	}
	return code + s + ansiReset
}

func (p palette) bold(s string) string { return p.wrap(ansiBold, s) }

// band renders a risk band; the empty band reads "passed".
func (p palette) band(b scoring.Band) string {
	switch b {
	case scoring.BandHigh:
		return p.wrap(ansiRed+ansiBold, "high")
	case scoring.BandMid:
		return p.wrap(ansiYellow, "mid")
	case scoring.BandLow:
		return p.wrap(ansiCyan, "low")
	default:
		return p.wrap(ansiGreen, "passed")
	}
}
