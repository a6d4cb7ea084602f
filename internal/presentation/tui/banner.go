package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner shown when a lesson starts.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  _____      _", "#818cf8"},
		{" |_   _|   _| |_ ___  _ __", "#a78bfa"},
		{"   | || | | | __/ _ \\| '__|", "#c084fc"},
		{"   | || |_| | || (_) | |", "#e879f9"},
		{"   |_| \\__,_|\\__\\___/|_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
