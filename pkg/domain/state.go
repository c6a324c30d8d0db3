package domain

import (
	"maps"
	"slices"
	"time"
)

// SlotStatus is the runtime status of a single slot.
type SlotStatus string

const (
	SlotPending    SlotStatus = "pending"
	SlotBlocked    SlotStatus = "blocked"
	SlotReady      SlotStatus = "ready"
	SlotPreCheck   SlotStatus = "pre_check"
	SlotInProgress SlotStatus = "in_progress"
	SlotPostCheck  SlotStatus = "post_check"
	SlotCompleted  SlotStatus = "completed"
	SlotFailed     SlotStatus = "failed"
	SlotSkipped    SlotStatus = "skipped"
	SlotRetrying   SlotStatus = "retrying"
)

// IsTerminal reports whether no further work is expected for the slot.
func (s SlotStatus) IsTerminal() bool {
	return s == SlotCompleted || s == SlotFailed || s == SlotSkipped
}

// PipelineStatus is the runtime status of a whole run.
type PipelineStatus string

const (
	PipelineLoaded    PipelineStatus = "loaded"
	PipelineValidated PipelineStatus = "validated"
	PipelineRunning   PipelineStatus = "running"
	PipelinePaused    PipelineStatus = "paused"
	PipelineCompleted PipelineStatus = "completed"
	PipelineFailed    PipelineStatus = "failed"
	PipelineAborted   PipelineStatus = "aborted"
	PipelineAuditing  PipelineStatus = "auditing"
)

// GatePhase tags which side of a slot a gate evaluation guarded.
type GatePhase string

const (
	PhasePre  GatePhase = "pre"
	PhasePost GatePhase = "post"
)

// GateCheckResult is the outcome of evaluating one Gate.
type GateCheckResult struct {
	Condition string    `json:"condition" yaml:"condition"`
	Passed    bool      `json:"passed" yaml:"passed"`
	Evidence  string    `json:"evidence" yaml:"evidence"`
	CheckedAt time.Time `json:"checked_at" yaml:"checked_at"`
}

// SlotState is the runtime record of a single slot.
type SlotState struct {
	SlotID           string            `json:"slot_id" yaml:"slot_id"`
	Status           SlotStatus        `json:"status" yaml:"status"`
	StartedAt        time.Time         `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	CompletedAt      time.Time         `json:"completed_at,omitzero" yaml:"completed_at,omitempty"`
	RetryCount       int               `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`
	Error            string            `json:"error,omitempty" yaml:"error,omitempty"`
	AgentID          string            `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	AgentPrompt      string            `json:"agent_prompt,omitempty" yaml:"agent_prompt,omitempty"`
	PreCheckResults  []GateCheckResult `json:"pre_check_results,omitempty" yaml:"pre_check_results,omitempty"`
	PostCheckResults []GateCheckResult `json:"post_check_results,omitempty" yaml:"post_check_results,omitempty"`
}

// PipelineState is the durable record of one pipeline run.
type PipelineState struct {
	PipelineID      string               `json:"pipeline_id" yaml:"pipeline_id"`
	PipelineVersion string               `json:"pipeline_version" yaml:"pipeline_version"`
	DefinitionHash  string               `json:"definition_hash" yaml:"definition_hash"`
	Status          PipelineStatus       `json:"status" yaml:"status"`
	StartedAt       time.Time            `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	CompletedAt     time.Time            `json:"completed_at,omitzero" yaml:"completed_at,omitempty"`
	Parameters      map[string]any       `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Slots           map[string]SlotState `json:"slots" yaml:"slots"`
}

// Clone returns a deep copy whose slot records can be modified freely.
func (s PipelineState) Clone() PipelineState {
	out := s
	out.Parameters = maps.Clone(s.Parameters)
	out.Slots = make(map[string]SlotState, len(s.Slots))
	for id, ss := range s.Slots {
		ss.PreCheckResults = slices.Clone(ss.PreCheckResults)
		ss.PostCheckResults = slices.Clone(ss.PostCheckResults)
		out.Slots[id] = ss
	}
	return out
}

// SlotStatusOf returns the status of a slot and whether it is tracked.
func (s PipelineState) SlotStatusOf(id string) (SlotStatus, bool) {
	ss, ok := s.Slots[id]
	return ss.Status, ok
}
