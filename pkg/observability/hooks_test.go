package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/observability"
	"github.com/stretchr/testify/assert"
)

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	hooks := observability.NewLogHooks(logger)
	ctx := context.Background()

	base := domain.EventBase{Type: domain.EventSlotFailed, PipelineID: "feature"}
	_ = hooks.OnSlotFailed(ctx, &domain.SlotEvent{EventBase: base, SlotID: "A", Error: "boom"})
	_ = hooks.OnGateCheckCompleted(ctx, &domain.GateEvent{EventBase: base, SlotID: "A", Phase: domain.PhasePost})

	out := buf.String()
	assert.Contains(t, out, "msg=slot_failed")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "slot_id=A")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "phase=post")
	assert.Contains(t, out, "passed=true")
}
