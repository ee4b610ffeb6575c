package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Tabula banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{" _        _           _       ", "#34d399"},
		{"| |_ __ _| |__  _   _| | __ _ ", "#2dd4bf"},
		{"| __/ _` | '_ \\| | | | |/ _` |", "#22d3ee"},
		{"| || (_| | |_) | |_| | | (_| |", "#38bdf8"},
		{" \\__\\__,_|_.__/ \\__,_|_|\\__,_|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Success formats a status line for a completed step.
func Success(format string, args ...any) string {
	p := termenv.ColorProfile()
	return termenv.String("✔ ").Foreground(p.Color("#22c55e")).String() + fmt.Sprintf(format, args...)
}

// Failure formats a status line for a failed step.
func Failure(format string, args ...any) string {
	p := termenv.ColorProfile()
	return termenv.String("✘ ").Foreground(p.Color("#ef4444")).String() + fmt.Sprintf(format, args...)
}
