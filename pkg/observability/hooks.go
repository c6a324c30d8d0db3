package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/gantry/pkg/domain"
)

// NewLogHooks returns an observer that writes every event to logger.
func NewLogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		PipelineStarted: func(ctx context.Context, e *domain.PipelineEvent) {
			logger.InfoContext(ctx, "pipeline_started", "pipeline_id", e.PipelineID, "slots", len(e.State.Slots))
		},
		PipelineCompleted: func(ctx context.Context, e *domain.PipelineEvent) {
			logger.InfoContext(ctx, "pipeline_completed", "pipeline_id", e.PipelineID)
		},
		PipelineFailed: func(ctx context.Context, e *domain.PipelineEvent) {
			logger.WarnContext(ctx, "pipeline_failed", "pipeline_id", e.PipelineID, "error", e.Error)
		},
		SlotStarted: func(ctx context.Context, e *domain.SlotEvent) {
			logger.InfoContext(ctx, "slot_started", "pipeline_id", e.PipelineID, "slot_id", e.SlotID, "agent_id", e.AgentID)
		},
		SlotCompleted: func(ctx context.Context, e *domain.SlotEvent) {
			logger.InfoContext(ctx, "slot_completed", "pipeline_id", e.PipelineID, "slot_id", e.SlotID)
		},
		SlotFailed: func(ctx context.Context, e *domain.SlotEvent) {
			logger.WarnContext(ctx, "slot_failed", "pipeline_id", e.PipelineID, "slot_id", e.SlotID, "error", e.Error)
		},
		GateCheckCompleted: func(ctx context.Context, e *domain.GateEvent) {
			logger.InfoContext(ctx, "gate_check_completed",
				"pipeline_id", e.PipelineID,
				"slot_id", e.SlotID,
				"phase", e.Phase,
				"passed", e.Passed(),
				"results", len(e.Results),
			)
		},
		StatusChanged: func(ctx context.Context, e *domain.StatusEvent) {
			logger.InfoContext(ctx, "status_changed", "pipeline_id", e.PipelineID, "from", e.Old, "to", e.New)
		},
	}
}
