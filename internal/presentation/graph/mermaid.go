// Package graph renders the step graph for humans: a Mermaid flowchart with
// optional session overlay (visited steps, current step) for support tooling.
package graph

import (
	"fmt"
	"strings"

	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/registry"
)

// Overlay contains per-session state to highlight on the graph.
type Overlay struct {
	Visited []domain.StepID
	Current domain.StepID
}

// GenerateMermaid produces Mermaid flowchart syntax for the step graph.
// Shapes carry semantics:
//   - entry step: ((circle))
//   - terminal step: [[subroutine]]
//   - input step: [/parallelogram/]
//   - informational step: [rectangle]
//
// Edges into a skippable step are dotted, since the engine may pass straight
// through it.
func GenerateMermaid(reg *registry.Registry, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, step := range reg.Steps() {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.ID == reg.First():
			opener, closer = "((", "))"
		case step.Terminal():
			opener, closer = "[[", "]]"
		case len(step.Schema) > 0:
			opener, closer = "[/", "/]"
		}

		label := string(step.ID)
		if step.Title != "" {
			label = fmt.Sprintf("%s <br/> %s", step.ID, strings.ReplaceAll(step.Title, "\"", "'"))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, to := range step.Branches {
			safeTo := sanitizeMermaidID(to)
			arrow := "-->"
			if target, ok := reg.Get(to); ok && target.SkipIf != nil {
				arrow = "-.->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.Visited {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.Current != domain.StepNone {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id domain.StepID) string {
	s := strings.ReplaceAll(string(id), ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
