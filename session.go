package gantry

import (
	"context"
	"sync"

	"github.com/aretw0/gantry/internal/runtime"
	"github.com/aretw0/gantry/internal/state"
	"github.com/aretw0/gantry/pkg/domain"
)

// Session is one pipeline run. It is safe for concurrent use; calls are
// serialized so concurrent drivers see each transition in full.
type Session struct {
	mu     sync.Mutex
	runner *runtime.Runner
}

// Pipeline returns the resolved pipeline being run.
func (s *Session) Pipeline() domain.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Pipeline()
}

// State returns a snapshot of the run state.
func (s *Session) State() domain.PipelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.State()
}

// StatePath returns the file the run is persisted to.
func (s *Session) StatePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.StatePath()
}

// Next returns the slots ready to begin, in declaration order.
func (s *Session) Next() []domain.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.NextSlots()
}

// Overview groups slot ids by status.
func (s *Session) Overview() state.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return state.Summarize(s.runner.State())
}

// Begin checks the slot's pre-conditions and, when they hold, moves it to
// IN_PROGRESS with the given agent. agentID and prompt may be empty.
func (s *Session) Begin(ctx context.Context, slotID, agentID, prompt string) (domain.SlotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var opts []runtime.BeginOption
	if agentID != "" || prompt != "" {
		opts = append(opts, runtime.WithAgent(agentID, prompt))
	}
	return s.runner.BeginSlot(ctx, slotID, opts...)
}

// Complete checks the slot's post-conditions and marks it COMPLETED or FAILED.
func (s *Session) Complete(ctx context.Context, slotID string) (domain.SlotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.CompleteSlot(ctx, slotID)
}

// Fail marks the slot FAILED with reason.
func (s *Session) Fail(ctx context.Context, slotID, reason string) (domain.SlotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.FailSlot(ctx, slotID, reason)
}

// Skip marks the slot SKIPPED.
func (s *Session) Skip(ctx context.Context, slotID string) (domain.SlotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.SkipSlot(ctx, slotID)
}

// StartAuditing moves a completed run to AUDITING.
func (s *Session) StartAuditing(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.StartAuditing(ctx)
}

// Summary renders a human-readable progress report.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Summary()
}

// Archive moves the state document into the archive directory.
func (s *Session) Archive() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Archive()
}
