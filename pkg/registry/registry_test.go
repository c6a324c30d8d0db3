package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/gantry/pkg/adapters/memory"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *registry.Registry {
	types := memory.NewRegistry(
		domain.SlotType{ID: "implementer", Name: "Implementer", Category: "build", RequiredCapabilities: []string{"write_code", "run_tests"}},
		domain.SlotType{ID: "free", Name: "Free", Category: "misc"},
	)
	agents := memory.NewCatalog(
		domain.Agent{ID: "writer", Capabilities: []string{"write_docs"}, PromptPath: "agents/writer.md"},
		domain.Agent{ID: "coder", Capabilities: []string{"write_code", "run_tests", "deploy"}, PromptPath: "agents/coder.md"},
		domain.Agent{ID: "junior", Capabilities: []string{"write_code"}, PromptPath: "agents/junior.md"},
		domain.Agent{ID: "intern", Capabilities: []string{"run_tests"}, PromptPath: "agents/intern.md"},
	)
	return registry.New(types, agents)
}

func TestRegistry_FindCompatibleAgents(t *testing.T) {
	matches, err := newRegistry().FindCompatibleAgents(context.Background(), "implementer")
	require.NoError(t, err)
	require.Len(t, matches, 4)

	var order []string
	for _, m := range matches {
		order = append(order, m.AgentID)
	}
	assert.Equal(t, []string{"coder", "intern", "junior", "writer"}, order)

	assert.True(t, matches[0].Compatible)
	assert.Equal(t, []string{"run_tests", "write_code"}, matches[0].Matched)
	assert.Empty(t, matches[0].Missing)
	assert.Equal(t, "agents/coder.md", matches[0].PromptPath)

	assert.False(t, matches[2].Compatible)
	assert.Equal(t, []string{"run_tests"}, matches[2].Missing)

	_, err = newRegistry().FindCompatibleAgents(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSlotTypeNotFound)
}

func TestRegistry_NoRequirementsMatchesEveryone(t *testing.T) {
	matches, err := newRegistry().FindCompatibleAgents(context.Background(), "free")
	require.NoError(t, err)
	for _, m := range matches {
		assert.True(t, m.Compatible, m.AgentID)
	}
}

func TestRegistry_ValidateAssignment(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	m, err := reg.ValidateAssignment(ctx, "implementer", "junior")
	require.NoError(t, err)
	assert.False(t, m.Compatible)
	assert.Equal(t, []string{"write_code"}, m.Matched)
	assert.Equal(t, []string{"run_tests"}, m.Missing)

	_, err = reg.ValidateAssignment(ctx, "implementer", "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
	assert.Equal(t, "Agent 'nobody' not found in registry", err.Error())

	_, err = reg.ValidateAssignment(ctx, "ghost", "coder")
	assert.ErrorIs(t, err, domain.ErrSlotTypeNotFound)
}

func TestRegistry_Manifest(t *testing.T) {
	p := domain.Pipeline{ID: "feature", Slots: []domain.Slot{
		{ID: "build", Type: "implementer", Name: "Build it"},
		{ID: "mystery", Type: "unknown", Name: "???"},
	}}
	m, err := newRegistry().Manifest(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, domain.SlotManifest{
		PipelineID: "feature",
		Slots: []domain.ManifestEntry{
			{SlotID: "build", SlotType: "implementer", SlotName: "Build it", RequiredCapabilities: []string{"write_code", "run_tests"}},
			{SlotID: "mystery", SlotType: "unknown", SlotName: "???", RequiredCapabilities: []string{}},
		},
	}, m)
}
