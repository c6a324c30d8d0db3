package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPipelineStarted    EventType = "pipeline_started"
	EventPipelineCompleted  EventType = "pipeline_completed"
	EventPipelineFailed     EventType = "pipeline_failed"
	EventSlotStarted        EventType = "slot_started"
	EventSlotCompleted      EventType = "slot_completed"
	EventSlotFailed         EventType = "slot_failed"
	EventGateCheckCompleted EventType = "gate_check_completed"
	EventStatusChanged      EventType = "status_changed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	PipelineID string    `json:"pipeline_id"`
}

// PipelineEvent is emitted when a run starts, completes or fails.
type PipelineEvent struct {
	EventBase
	State PipelineState `json:"state"`
	Error string        `json:"error,omitempty"`
}

// SlotEvent is emitted when a slot starts, completes or fails.
type SlotEvent struct {
	EventBase
	SlotID  string `json:"slot_id"`
	AgentID string `json:"agent_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GateEvent carries the results of one pre- or post-condition evaluation.
type GateEvent struct {
	EventBase
	SlotID  string            `json:"slot_id"`
	Phase   GatePhase         `json:"phase"`
	Results []GateCheckResult `json:"results"`
}

// Passed reports whether every result in the event passed.
func (e *GateEvent) Passed() bool {
	for _, r := range e.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// StatusEvent is emitted on every pipeline status change.
type StatusEvent struct {
	EventBase
	Old PipelineStatus `json:"old_status"`
	New PipelineStatus `json:"new_status"`
}

// Observer receives run lifecycle notifications.
// Hooks are invoked synchronously, in registration order. A returned error or a
// panic is logged by the runner and never affects orchestration.
type Observer interface {
	OnPipelineStarted(ctx context.Context, e *PipelineEvent) error
	OnPipelineCompleted(ctx context.Context, e *PipelineEvent) error
	OnPipelineFailed(ctx context.Context, e *PipelineEvent) error
	OnSlotStarted(ctx context.Context, e *SlotEvent) error
	OnSlotCompleted(ctx context.Context, e *SlotEvent) error
	OnSlotFailed(ctx context.Context, e *SlotEvent) error
	OnGateCheckCompleted(ctx context.Context, e *GateEvent) error
	OnStatusChanged(ctx context.Context, e *StatusEvent) error
}

// LifecycleHooks adapts a set of optional callbacks into an Observer.
type LifecycleHooks struct {
	PipelineStarted    func(context.Context, *PipelineEvent)
	PipelineCompleted  func(context.Context, *PipelineEvent)
	PipelineFailed     func(context.Context, *PipelineEvent)
	SlotStarted        func(context.Context, *SlotEvent)
	SlotCompleted      func(context.Context, *SlotEvent)
	SlotFailed         func(context.Context, *SlotEvent)
	GateCheckCompleted func(context.Context, *GateEvent)
	StatusChanged      func(context.Context, *StatusEvent)
}

var _ Observer = LifecycleHooks{}

func (h LifecycleHooks) OnPipelineStarted(ctx context.Context, e *PipelineEvent) error {
	if h.PipelineStarted != nil {
		h.PipelineStarted(ctx, e)
	}
	return nil
}

func (h LifecycleHooks) OnPipelineCompleted(ctx context.Context, e *PipelineEvent) error {
	if h.PipelineCompleted != nil {
		h.PipelineCompleted(ctx, e)
	}
	return nil
}

func (h LifecycleHooks) OnPipelineFailed(ctx context.Context, e *PipelineEvent) error {
	if h.PipelineFailed != nil {
		h.PipelineFailed(ctx, e)
	}
	return nil
}

func (h LifecycleHooks) OnSlotStarted(ctx context.Context, e *SlotEvent) error {
	if h.SlotStarted != nil {
		h.SlotStarted(ctx, e)
	}
	return nil
}

func (h LifecycleHooks) OnSlotCompleted(ctx context.Context, e *SlotEvent) error {
	if h.SlotCompleted != nil {
		h.SlotCompleted(ctx, e)
	}
	return nil
}

func (h LifecycleHooks) OnSlotFailed(ctx context.Context, e *SlotEvent) error {
	if h.SlotFailed != nil {
		h.SlotFailed(ctx, e)
	}
	return nil
}

func (h LifecycleHooks) OnGateCheckCompleted(ctx context.Context, e *GateEvent) error {
	if h.GateCheckCompleted != nil {
		h.GateCheckCompleted(ctx, e)
	}
	return nil
}

func (h LifecycleHooks) OnStatusChanged(ctx context.Context, e *StatusEvent) error {
	if h.StatusChanged != nil {
		h.StatusChanged(ctx, e)
	}
	return nil
}
