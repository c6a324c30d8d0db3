package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgent(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestAgentCatalog_ListAgents(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "coder.md", `---
agent_id: coder
version: "2.1"
capabilities: [write_code, run_tests]
compatible_slot_types: [implementer]
---
You write code.
`)
	writeAgent(t, dir, "critic.md", `---
agent_id: critic
capabilities: [review_code]
---
You review code.
`)
	writeAgent(t, dir, "README.md", `---
title: Agents
---
Not an agent.
`)

	catalog, err := Open(dir)
	require.NoError(t, err)

	agents, err := catalog.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)

	coder := agents["coder"]
	assert.Equal(t, "2.1", coder.Version)
	assert.Equal(t, []string{"write_code", "run_tests"}, coder.Capabilities)
	assert.Equal(t, []string{"implementer"}, coder.CompatibleSlotTypes)
	assert.Equal(t, "coder.md", filepath.Base(coder.PromptPath))

	assert.Equal(t, "1.0", agents["critic"].Version)
}

func TestAgentCatalog_MissingDir(t *testing.T) {
	catalog, err := Open(filepath.Join(t.TempDir(), "agents"))
	require.NoError(t, err)

	agents, err := catalog.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestTrimExtension(t *testing.T) {
	assert.Equal(t, "coder", trimExtension("coder.md"))
	assert.Equal(t, "team/coder", trimExtension("team/coder.md"))
	assert.Equal(t, "coder", trimExtension("coder"))
}
