package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tutor/pkg/domain"
)

// Overlay marks the progress of a session on the graph.
type Overlay struct {
	Cursor   int
	Complete bool
}

// OverlayOf builds the overlay for a stored session.
func OverlayOf(state *domain.SessionState) *Overlay {
	return &Overlay{Cursor: state.Cursor, Complete: state.Status == domain.StatusComplete}
}

const doneID = "done"

// GenerateMermaid produces a Mermaid flowchart of a page: one node per step
// in order, ending in a terminal node. Shapes follow the checking strategy:
// - Verbatim: [Rectangle]
// - Structural: [/Parallelogram/]
// - Predicate: {{Hexagon}}
// - Editor mode: [[Subroutine]]
// Steps with hints get a self-loop labelled with the number of hints.
func GenerateMermaid(page *domain.Page, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i := range page.Steps {
		step := &page.Steps[i]
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.EffectiveMode() == domain.ModeEditor:
			opener, closer = "[[", "]]"
		case step.Strategy == domain.StrategyStructural:
			opener, closer = "[/", "/]"
		case step.Strategy == domain.StrategyPredicate:
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, step.ID, closer)

		if len(step.Hints) > 0 {
			fmt.Fprintf(&sb, "    %s -. \"%d hints\" .-> %s\n", safeID, len(step.Hints), safeID)
		}
		for _, req := range step.Requirements {
			cond := strings.ReplaceAll(req.Condition, "\"", "'")
			fmt.Fprintf(&sb, "    %s -. \"requires %s\" .-> %s\n", safeID, cond, safeID)
		}

		next := doneID
		if i+1 < len(page.Steps) {
			next = sanitizeMermaidID(page.Steps[i+1].ID)
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", safeID, next)
	}
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", doneID, doneID)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for i := 0; i < overlay.Cursor && i < len(page.Steps); i++ {
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(page.Steps[i].ID))
		}
		current := doneID
		if !overlay.Complete && overlay.Cursor < len(page.Steps) {
			current = sanitizeMermaidID(page.Steps[overlay.Cursor].ID)
		}
		fmt.Fprintf(&sb, "    class %s current;\n", current)
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == doneID {
		s = "step_" + s
	}
	return s
}
