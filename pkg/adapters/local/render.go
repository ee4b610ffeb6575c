package local

import (
	"fmt"
	"strings"

	"github.com/aretw0/tabula/pkg/domain"
)

const (
	defaultWidth = 25
	minWidth     = 5
	previewRows  = 5
	cellPad      = 15
)

// renderText produces the plain-text view selected by kind.
// limit bounds the rows of every kind; zero or less means all rows for show
// and vertical, and previewRows for head and tail.
func renderText(f *frame, kind domain.RenderKind, width, limit int) (string, error) {
	width = clampWidth(width)

	switch kind {
	case domain.RenderHead:
		return grid(f, 0, min(previewRows, bound(limit, f.Rows)), width), nil
	case domain.RenderTail:
		n := min(previewRows, bound(limit, f.Rows))
		return grid(f, f.Rows-n, f.Rows, width), nil
	case domain.RenderShow:
		return grid(f, 0, bound(limit, f.Rows), width), nil
	case domain.RenderVertical:
		return vertical(f, bound(limit, f.Rows), width), nil
	}
	return "", fmt.Errorf("unknown render kind %q", kind)
}

func bound(limit, rows int) int {
	if limit > 0 && limit < rows {
		return limit
	}
	return rows
}

func grid(f *frame, from, to, width int) string {
	var b strings.Builder
	for _, c := range f.Cols {
		fmt.Fprintf(&b, "%-*s", cellPad, truncate(c, width))
	}
	b.WriteString("\n")
	for i := from; i < to; i++ {
		for _, c := range f.Cols {
			fmt.Fprintf(&b, "%-*s", cellPad, truncate(display(f.Data[c][i]), width))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func vertical(f *frame, rows, width int) string {
	labels := make([]string, len(f.Cols))
	pad := 0
	for i, c := range f.Cols {
		labels[i] = truncate(c, width)
		pad = max(pad, len(labels[i]))
	}

	var b strings.Builder
	for r := 0; r < rows; r++ {
		fmt.Fprintf(&b, "------------ Record %d ------------\n", r)
		for i, c := range f.Cols {
			fmt.Fprintf(&b, "%-*s : %s\n", pad, labels[i], truncate(display(f.Data[c][r]), width))
		}
		b.WriteString("\n")
	}
	return b.String()
}
