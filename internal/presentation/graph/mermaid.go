// Package graph renders a pipeline DAG as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/gantry/pkg/domain"
)

var statusClasses = []struct {
	status domain.SlotStatus
	style  string
}{
	{domain.SlotCompleted, "fill:#dcfce7,stroke:#15803d,stroke-width:2px,color:#000"},
	{domain.SlotInProgress, "fill:#fef9c3,stroke:#ca8a04,stroke-width:4px,color:#000"},
	{domain.SlotFailed, "fill:#fee2e2,stroke:#b91c1c,stroke-width:2px,color:#000"},
	{domain.SlotSkipped, "fill:#f3f4f6,stroke:#6b7280,stroke-dasharray:4,color:#000"},
}

// GenerateMermaid produces a Mermaid flowchart of p.
// Slots guarded by an approval gate are drawn as hexagons; data-flow edges are
// dotted and labelled with the artifact. When st is given, slots are styled by
// their runtime status.
func GenerateMermaid(p domain.Pipeline, st *domain.PipelineState) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, slot := range p.Slots {
		opener, closer := "[", "]"
		if needsApproval(slot) {
			opener, closer = "{{", "}}"
		}
		label := slot.ID
		if slot.Name != "" && slot.Name != slot.ID {
			label = slot.ID + "<br/>" + escape(slot.Name)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeID(slot.ID), opener, label, closer)
	}

	for _, slot := range p.Slots {
		for _, dep := range slot.DependsOn {
			fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeID(dep), sanitizeID(slot.ID))
		}
	}
	for _, edge := range p.DataFlow {
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", sanitizeID(edge.FromSlot), escape(edge.Artifact), sanitizeID(edge.ToSlot))
	}

	if st != nil {
		sb.WriteString("\n    %% Status Styles\n")
		for _, c := range statusClasses {
			fmt.Fprintf(&sb, "    classDef %s %s;\n", c.status, c.style)
		}
		for _, slot := range p.Slots {
			ss, ok := st.Slots[slot.ID]
			if !ok {
				continue
			}
			for _, c := range statusClasses {
				if c.status == ss.Status {
					fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeID(slot.ID), ss.Status)
				}
			}
		}
	}

	return sb.String()
}

func needsApproval(slot domain.Slot) bool {
	for _, g := range slot.PreConditions {
		if g.Type == domain.GateApproval {
			return true
		}
	}
	return false
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
