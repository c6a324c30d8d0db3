package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/gantry/internal/state"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func scaffolded(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := run(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created pipelines/feature.yaml")
	return dir
}

func TestCLI_Init(t *testing.T) {
	dir := scaffolded(t)
	assert.FileExists(t, filepath.Join(dir, "gantry.yaml"))
	assert.FileExists(t, filepath.Join(dir, "agents", "coder.md"))

	out, err := run(t, dir, "init")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCLI_DefinitionCommands(t *testing.T) {
	dir := scaffolded(t)

	out, err := run(t, dir, "validate", "pipelines/feature.yaml", "--param", "feature=login")
	require.NoError(t, err)
	assert.Contains(t, out, "Pipeline is valid")

	_, err = run(t, dir, "validate", "pipelines/feature.yaml")
	assert.ErrorIs(t, err, domain.ErrParameter)

	out, err = run(t, dir, "order", "pipelines/feature.yaml", "--param", "feature=login")
	require.NoError(t, err)
	assert.Equal(t, "1. design\n2. build\n", out)

	out, err = run(t, dir, "graph", "pipelines/feature.yaml", "--param", "feature=login")
	require.NoError(t, err)
	assert.Contains(t, out, "design --> build")

	_, err = run(t, dir, "order", "pipelines/feature.yaml", "--param", "oops")
	assert.ErrorContains(t, err, "expected key=value")
}

func TestCLI_Agents(t *testing.T) {
	dir := scaffolded(t)

	out, err := run(t, dir, "agents")
	require.NoError(t, err)
	assert.Equal(t, "coder\twrite_code,run_tests\nwriter\twrite_docs\n", out)

	out, err = run(t, dir, "agents", "implementer")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "+ coder"))
	assert.True(t, strings.HasPrefix(lines[1], "- writer"))
}

func TestCLI_DriveRun(t *testing.T) {
	dir := scaffolded(t)

	out, err := run(t, dir, "prepare", "pipelines/feature.yaml", "--param", "feature=login")
	require.NoError(t, err)
	statePath := strings.TrimSpace(out)
	assert.FileExists(t, statePath)
	runFlags := []string{"--state", statePath, "--pipeline", "pipelines/feature.yaml"}

	out, err = run(t, dir, append([]string{"next"}, runFlags...)...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "design\tdesigner\tDesign login"))

	out, err = run(t, dir, append([]string{"begin", "design", "--agent", "writer"}, runFlags...)...)
	require.NoError(t, err)
	assert.Equal(t, "Slot design: IN_PROGRESS\n", out)

	// the design document does not exist yet
	out, err = run(t, dir, append([]string{"complete", "design"}, runFlags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Slot design: FAILED")
	assert.Contains(t, out, "Post-conditions failed")

	out, err = run(t, dir, append([]string{"status"}, runFlags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: running")
	assert.Contains(t, out, "[FAILED] design -- agent: writer")

	out, err = run(t, dir, append([]string{"status", "--json"}, runFlags...)...)
	require.NoError(t, err)
	var status struct {
		Overview state.Summary        `json:"overview"`
		State    domain.PipelineState `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, []string{"design"}, status.Overview.Failed)
	assert.Equal(t, []string{"build"}, status.Overview.Pending)

	out, err = run(t, dir, append([]string{"archive"}, runFlags...)...)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".gantry", "archive", filepath.Base(statePath)), strings.TrimSpace(out))

	records, err := observability.ReadComplianceLog(filepath.Join(dir, ".gantry", "logs", "feature.events.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, domain.EventStatusChanged, records[0].Event)
}

func TestCLI_StrictGateFailures(t *testing.T) {
	dir := scaffolded(t)
	out, err := run(t, dir, "prepare", "pipelines/feature.yaml", "--param", "feature=login")
	require.NoError(t, err)
	runFlags := []string{"--state", strings.TrimSpace(out), "--pipeline", "pipelines/feature.yaml"}

	_, err = run(t, dir, append([]string{"begin", "design", "--strict"}, runFlags...)...)
	require.NoError(t, err)

	out, err = run(t, dir, append([]string{"complete", "design", "--strict"}, runFlags...)...)
	assert.ErrorContains(t, err, "slot 'design' failed")
	assert.Contains(t, out, "Post-conditions failed")

	_, err = run(t, dir, append([]string{"skip", "build", "--strict"}, runFlags...)...)
	assert.ErrorContains(t, err, "unknown flag: --strict")
}

func TestCLI_SkipAndAudit(t *testing.T) {
	dir := scaffolded(t)
	out, err := run(t, dir, "prepare", "pipelines/feature.yaml", "--param", "feature=login")
	require.NoError(t, err)
	runFlags := []string{"--state", strings.TrimSpace(out), "--pipeline", "pipelines/feature.yaml"}

	_, err = run(t, dir, append([]string{"audit"}, runFlags...)...)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "login.md"), []byte("# login"), 0o644))

	_, err = run(t, dir, append([]string{"begin", "design"}, runFlags...)...)
	require.NoError(t, err)
	_, err = run(t, dir, append([]string{"complete", "design"}, runFlags...)...)
	require.NoError(t, err)
	out, err = run(t, dir, append([]string{"skip", "build"}, runFlags...)...)
	require.NoError(t, err)
	assert.Equal(t, "Slot build: SKIPPED\n", out)

	out, err = run(t, dir, append([]string{"audit"}, runFlags...)...)
	require.NoError(t, err)
	assert.Equal(t, "Pipeline feature: auditing\n", out)

	_, err = run(t, dir, append([]string{"begin", "ghost"}, runFlags...)...)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	_, err = run(t, dir, "next")
	assert.ErrorContains(t, err, "--state and --pipeline are required")
}

func TestCLI_Version(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gantry version "))
}
