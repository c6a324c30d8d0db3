// Package tui renders gantry output for terminals.
package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// StatusMarkdown renders a run as a markdown document with one table row per
// slot, in declaration order.
func StatusMarkdown(p domain.Pipeline, st domain.PipelineState) string {
	var sb strings.Builder
	done := 0
	for _, ss := range st.Slots {
		if ss.Status.IsTerminal() {
			done++
		}
	}

	fmt.Fprintf(&sb, "# %s v%s\n\n", orID(p.Name, p.ID), p.Version)
	fmt.Fprintf(&sb, "**Status:** `%s` | **Progress:** %d/%d slots\n\n", st.Status, done, len(st.Slots))
	sb.WriteString("| Slot | Type | Status | Agent | Note |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, slot := range p.Slots {
		ss := st.Slots[slot.ID]
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			slot.ID, slot.Type, strings.ToUpper(string(ss.Status)), ss.AgentID, cell(ss.Error))
	}
	return sb.String()
}

func orID(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
