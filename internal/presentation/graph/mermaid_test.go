package graph

import (
	"strings"
	"testing"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func pipeline() domain.Pipeline {
	return domain.Pipeline{
		ID: "feature",
		Slots: []domain.Slot{
			{ID: "design-doc", Name: "Write \"the\" design"},
			{
				ID:            "build",
				Name:          "build",
				DependsOn:     []string{"design-doc"},
				PreConditions: []domain.Gate{{Check: "sign-off", Type: domain.GateApproval}},
			},
		},
		DataFlow: []domain.DataFlowEdge{{FromSlot: "design-doc", ToSlot: "build", Artifact: "spec"}},
	}
}

func TestGenerateMermaid(t *testing.T) {
	out := GenerateMermaid(pipeline(), nil)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `design_doc["design-doc<br/>Write 'the' design"]`)
	assert.Contains(t, out, `build{{"build"}}`)
	assert.Contains(t, out, "design_doc --> build")
	assert.Contains(t, out, `design_doc -. "spec" .-> build`)
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_StatusOverlay(t *testing.T) {
	st := &domain.PipelineState{Slots: map[string]domain.SlotState{
		"design-doc": {Status: domain.SlotCompleted},
		"build":      {Status: domain.SlotPending},
	}}
	out := GenerateMermaid(pipeline(), st)

	assert.Contains(t, out, "classDef completed")
	assert.Contains(t, out, "classDef in_progress")
	assert.Contains(t, out, "class design_doc completed;")
	assert.NotContains(t, out, "class build")
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e", sanitizeID("a.b-c/d e"))
}
