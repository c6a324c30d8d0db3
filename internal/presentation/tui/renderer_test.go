package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMarkdown(t *testing.T) {
	p := domain.Pipeline{ID: "feature", Name: "Feature", Version: "1.0", Slots: []domain.Slot{
		{ID: "A", Type: "worker"},
		{ID: "B", Type: "worker"},
	}}
	st := domain.PipelineState{Status: domain.PipelineFailed, Slots: map[string]domain.SlotState{
		"A": {Status: domain.SlotCompleted, AgentID: "coder"},
		"B": {Status: domain.SlotFailed, Error: "Post-conditions failed: a|b"},
	}}

	md := StatusMarkdown(p, st)
	assert.Contains(t, md, "# Feature v1.0")
	assert.Contains(t, md, "**Progress:** 2/2 slots")
	assert.Contains(t, md, "| A | worker | COMPLETED | coder |  |")
	assert.Contains(t, md, `| B | worker | FAILED |  | Post-conditions failed: a\|b |`)
}

func TestRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)
	out, err := render("# Title\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
