package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/gantry"
	"github.com/aretw0/gantry/pkg/adapters/memory"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p := domain.Pipeline{ID: "feature", Name: "Feature", Version: "1.0", Slots: []domain.Slot{
		{ID: "A", Type: "worker", Name: "First"},
		{ID: "B", Type: "worker", Name: "Second", DependsOn: []string{"A"}},
	}}
	eng, err := gantry.New(t.TempDir(),
		gantry.WithLoader(memory.NewLoader(p)),
		gantry.WithRegistry(memory.NewRegistry(domain.SlotType{ID: "worker", Name: "Worker"})),
		gantry.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	sess, err := eng.Prepare(context.Background(), "feature", nil)
	require.NoError(t, err)
	return NewServer(sess, "test")
}

func TestServer_Tools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	next, err := s.handleNext(ctx, req, nil)
	require.NoError(t, err)
	require.Len(t, next.Slots, 1)
	assert.Equal(t, "A", next.Slots[0].ID)

	ss, err := s.handleBegin(ctx, req, SlotArgs{SlotID: "A", AgentID: "coder"})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotInProgress, ss.Status)
	assert.Equal(t, "coder", ss.AgentID)

	ss, err = s.handleComplete(ctx, req, SlotArgs{SlotID: "A"})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotCompleted, ss.Status)

	ss, err = s.handleFail(ctx, req, SlotArgs{SlotID: "B", Error: "no time"})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotFailed, ss.Status)
	assert.Equal(t, "no time", ss.Error)

	status, err := s.handleStatus(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineFailed, status.State.Status)
	assert.Contains(t, status.Summary, "Progress: 1/2 slots")
	assert.Equal(t, []string{"B"}, status.Overview.Failed)
}

func TestServer_ToolErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	_, err := s.handleBegin(ctx, req, SlotArgs{})
	assert.ErrorContains(t, err, "slot_id is required")

	_, err = s.handleSkip(ctx, req, SlotArgs{SlotID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	ss, err := s.handleSkip(ctx, req, SlotArgs{SlotID: "A"})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotSkipped, ss.Status)
}
