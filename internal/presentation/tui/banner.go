package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner shown by the interactive runner.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Subtle gradient from indigo to rose.
	lines := []struct {
		text  string
		color string
	}{
		{"      _                       _          ", "#818cf8"},
		{"  ___| |_ ___ _ ____      __ (_)___  ___ ", "#a78bfa"},
		{" / __| __/ _ \\ '_ \\ \\ /\\ / / | / __|/ _ \\", "#c084fc"},
		{" \\__ \\ ||  __/ |_) \\ V  V /  | \\__ \\  __/", "#e879f9"},
		{" |___/\\__\\___| .__/ \\_/\\_/   |_|___/\\___|", "#f472b6"},
		{"             |_|                         ", "#fb7185"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Println()
}
