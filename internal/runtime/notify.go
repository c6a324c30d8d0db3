package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/gantry/pkg/domain"
)

// notify invokes hook on every observer in order. Errors and panics are logged
// and never propagate, and never stop later observers.
func (r *Runner) notify(ctx context.Context, hook string, call func(domain.Observer) error) {
	for i, o := range r.observers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("observer panicked", "observer", fmt.Sprintf("%d:%T", i, o), "hook", hook, "error", rec)
				}
			}()
			if err := call(o); err != nil {
				r.logger.Error("observer failed", "observer", fmt.Sprintf("%d:%T", i, o), "hook", hook, "error", err)
			}
		}()
	}
}

func (r *Runner) notifyGate(ctx context.Context, slotID string, phase domain.GatePhase, results []domain.GateCheckResult) {
	r.logger.Debug("gates evaluated", "pipeline", r.state.PipelineID, "slot", slotID, "phase", phase, "results", len(results))
	r.notify(ctx, "OnGateCheckCompleted", func(o domain.Observer) error {
		return o.OnGateCheckCompleted(ctx, &domain.GateEvent{
			EventBase: r.base(domain.EventGateCheckCompleted),
			SlotID:    slotID,
			Phase:     phase,
			Results:   results,
		})
	})
}

func (r *Runner) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:  r.now().UTC(),
		Type:       t,
		PipelineID: r.state.PipelineID,
	}
}

func (r *Runner) slotEvent(t domain.EventType, slotID, errMsg string) *domain.SlotEvent {
	return &domain.SlotEvent{
		EventBase: r.base(t),
		SlotID:    slotID,
		AgentID:   r.state.Slots[slotID].AgentID,
		Error:     errMsg,
	}
}

func (r *Runner) pipelineEvent(t domain.EventType) *domain.PipelineEvent {
	e := &domain.PipelineEvent{
		EventBase: r.base(t),
		State:     r.state.Clone(),
	}
	if t == domain.EventPipelineFailed {
		for _, slot := range r.pipeline.Slots {
			if ss := r.state.Slots[slot.ID]; ss.Status == domain.SlotFailed {
				e.Error = fmt.Sprintf("slot '%s' failed: %s", slot.ID, ss.Error)
				break
			}
		}
	}
	return e
}
