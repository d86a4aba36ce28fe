package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders step markdown using glamour.
// Step titles and review summaries are markdown; rendering adapts to the
// terminal background automatically.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
