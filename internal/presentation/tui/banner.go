package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the gantry banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"   __ _  __ _ _ __ | |_ _ __ _   _ ", "#38bdf8"},
		{"  / _` |/ _` | '_ \\| __| '__| | | |", "#22d3ee"},
		{" | (_| | (_| | | | | |_| |  | |_| |", "#2dd4bf"},
		{"  \\__, |\\__,_|_| |_|\\__|_|   \\__, |", "#34d399"},
		{"  |___/                      |___/ ", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
