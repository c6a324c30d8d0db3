// Package runtime drives a pipeline run.
//
// The Runner wires the validator, the gate checker and the state tracker
// together. It has no scheduler: every transition happens inside a call from an
// external driver, and every transition is persisted before the call returns.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/gantry/internal/gate"
	"github.com/aretw0/gantry/internal/logging"
	"github.com/aretw0/gantry/internal/state"
	"github.com/aretw0/gantry/internal/validator"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
)

// Runner orchestrates one pipeline run. It is not safe for concurrent use.
type Runner struct {
	loader    ports.PipelineLoader
	registry  ports.SlotTypeRegistry
	checker   *gate.Checker
	tracker   *state.Tracker
	observers []domain.Observer
	logger    *slog.Logger
	now       func() time.Time

	pipeline domain.Pipeline
	state    domain.PipelineState
}

// Option configures a Runner.
type Option func(*Runner)

// WithObservers appends observers, notified in the order given.
func WithObservers(observers ...domain.Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, observers...)
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithClock sets the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner. The registry may be nil, in which case slot types are
// not checked during Prepare.
func New(loader ports.PipelineLoader, registry ports.SlotTypeRegistry, checker *gate.Checker, tracker *state.Tracker, opts ...Option) *Runner {
	r := &Runner{
		loader:   loader,
		registry: registry,
		checker:  checker,
		tracker:  tracker,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	return r
}

// Pipeline returns the resolved pipeline of the current run.
func (r *Runner) Pipeline() domain.Pipeline {
	return r.pipeline
}

// State returns a copy of the current run state.
func (r *Runner) State() domain.PipelineState {
	return r.state.Clone()
}

// StatePath returns the file the run is persisted to.
func (r *Runner) StatePath() string {
	return r.tracker.Path()
}

// Prepare resolves parameters, validates the pipeline and its slot types, and
// initializes a persisted run in the VALIDATED status.
func (r *Runner) Prepare(ctx context.Context, p domain.Pipeline, params map[string]any) (domain.PipelineState, error) {
	resolved, err := r.loader.Resolve(ctx, p, params)
	if err != nil {
		return domain.PipelineState{}, err
	}

	res := validator.Validate(resolved)
	for _, w := range res.Warnings {
		r.logger.Warn("pipeline validation warning", "pipeline", resolved.ID, "warning", w)
	}
	if err := res.Err(); err != nil {
		return domain.PipelineState{}, err
	}

	if r.registry != nil {
		if _, err := r.registry.LoadSlotTypes(ctx); err != nil {
			return domain.PipelineState{}, fmt.Errorf("failed to load slot types: %w", err)
		}
		if missing := validator.CheckSlotTypes(ctx, resolved, r.registry); len(missing) > 0 {
			return domain.PipelineState{}, &domain.SlotTypeError{Errors: missing}
		}
	}

	st, err := r.tracker.InitState(resolved, resolved.ResolvedParameters)
	if err != nil {
		return domain.PipelineState{}, err
	}
	r.pipeline = resolved
	r.state = st

	if err := r.setStatus(ctx, domain.PipelineValidated); err != nil {
		return domain.PipelineState{}, err
	}
	r.logger.Info("pipeline prepared", "pipeline", resolved.ID, "slots", len(resolved.Slots), "state", r.tracker.Path())
	return r.State(), nil
}

// ResumeWithPipeline reloads a persisted run and checks that the pipeline
// definition still matches it. A nil params map reuses the parameters recorded
// in the state.
func (r *Runner) ResumeWithPipeline(ctx context.Context, statePath string, p domain.Pipeline, params map[string]any) (domain.PipelineState, error) {
	st, err := r.tracker.Load(statePath)
	if err != nil {
		return domain.PipelineState{}, err
	}
	if params == nil {
		params = st.Parameters
	}

	resolved, err := r.loader.Resolve(ctx, p, params)
	if err != nil {
		return domain.PipelineState{}, err
	}
	hash, err := state.DefinitionHash(resolved)
	if err != nil {
		return domain.PipelineState{}, err
	}
	if hash != st.DefinitionHash {
		return domain.PipelineState{}, &domain.HashMismatchError{Expected: st.DefinitionHash, Actual: hash}
	}

	r.pipeline = resolved
	r.state = st
	r.logger.Debug("pipeline resumed", "pipeline", st.PipelineID, "status", st.Status, "state", statePath)
	return r.State(), nil
}

// NextSlots returns the ready slots in declaration order.
func (r *Runner) NextSlots() []domain.Slot {
	var slots []domain.Slot
	for _, id := range state.ReadySlots(r.pipeline, r.state) {
		if s, ok := r.pipeline.Slot(id); ok {
			slots = append(slots, s)
		}
	}
	return slots
}

// BeginOption customizes BeginSlot.
type BeginOption func(*beginConfig)

type beginConfig struct {
	agentID string
	prompt  string
}

// WithAgent assigns an agent, and optionally its prompt, to the slot.
func WithAgent(agentID, prompt string) BeginOption {
	return func(c *beginConfig) {
		c.agentID = agentID
		c.prompt = prompt
	}
}

// BeginSlot evaluates the slot's pre-conditions. When they all pass the slot
// moves to IN_PROGRESS and the pipeline to RUNNING; otherwise the slot is
// FAILED and the failing evidence is recorded. A gate failure is not an error.
func (r *Runner) BeginSlot(ctx context.Context, slotID string, opts ...BeginOption) (domain.SlotState, error) {
	slot, err := r.lookup(slotID)
	if err != nil {
		return domain.SlotState{}, err
	}
	if current := r.state.Slots[slotID].Status; current.IsTerminal() || current == domain.SlotInProgress {
		return domain.SlotState{}, fmt.Errorf("%w: slot '%s' is already %s", domain.ErrInvalidTransition, slotID, current)
	}

	cfg := beginConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	results := r.checker.CheckPreConditions(ctx, slot, r.state)
	r.notifyGate(ctx, slotID, domain.PhasePre, results)

	if !gate.AllPassed(results) {
		msg := "Pre-conditions failed: " + strings.Join(gate.FailedEvidence(results), "; ")
		return r.failSlot(ctx, slotID, msg, state.WithPreCheckResults(results))
	}

	if r.state.Status != domain.PipelineRunning {
		if err := r.setStatus(ctx, domain.PipelineRunning); err != nil {
			return domain.SlotState{}, err
		}
	}

	next, err := r.tracker.UpdateSlot(r.state, slotID, domain.SlotInProgress,
		state.WithAgent(cfg.agentID, cfg.prompt), state.WithPreCheckResults(results))
	if err != nil {
		return domain.SlotState{}, err
	}
	r.state = next

	r.logger.Debug("slot started", "pipeline", r.state.PipelineID, "slot", slotID, "agent", cfg.agentID)
	r.notify(ctx, "OnSlotStarted", func(o domain.Observer) error {
		return o.OnSlotStarted(ctx, r.slotEvent(domain.EventSlotStarted, slotID, ""))
	})
	return r.state.Slots[slotID], nil
}

// CompleteSlot evaluates the slot's post-conditions and marks it COMPLETED or
// FAILED accordingly.
func (r *Runner) CompleteSlot(ctx context.Context, slotID string) (domain.SlotState, error) {
	slot, err := r.lookup(slotID)
	if err != nil {
		return domain.SlotState{}, err
	}
	if current := r.state.Slots[slotID].Status; current.IsTerminal() {
		return domain.SlotState{}, fmt.Errorf("%w: slot '%s' is already %s", domain.ErrInvalidTransition, slotID, current)
	}

	results := r.checker.CheckPostConditions(ctx, slot, r.state)
	r.notifyGate(ctx, slotID, domain.PhasePost, results)

	if !gate.AllPassed(results) {
		msg := "Post-conditions failed: " + strings.Join(gate.FailedEvidence(results), "; ")
		return r.failSlot(ctx, slotID, msg, state.WithPostCheckResults(results))
	}

	next, err := r.tracker.UpdateSlot(r.state, slotID, domain.SlotCompleted, state.WithPostCheckResults(results))
	if err != nil {
		return domain.SlotState{}, err
	}
	r.state = next

	r.logger.Debug("slot completed", "pipeline", r.state.PipelineID, "slot", slotID)
	r.notify(ctx, "OnSlotCompleted", func(o domain.Observer) error {
		return o.OnSlotCompleted(ctx, r.slotEvent(domain.EventSlotCompleted, slotID, ""))
	})
	if err := r.finish(ctx, domain.PipelineCompleted); err != nil {
		return domain.SlotState{}, err
	}
	return r.state.Slots[slotID], nil
}

// FailSlot marks a slot FAILED without evaluating any gate.
func (r *Runner) FailSlot(ctx context.Context, slotID, reason string) (domain.SlotState, error) {
	if _, err := r.lookup(slotID); err != nil {
		return domain.SlotState{}, err
	}
	return r.failSlot(ctx, slotID, reason)
}

// SkipSlot marks a slot SKIPPED without evaluating any gate.
func (r *Runner) SkipSlot(ctx context.Context, slotID string) (domain.SlotState, error) {
	if _, err := r.lookup(slotID); err != nil {
		return domain.SlotState{}, err
	}

	next, err := r.tracker.UpdateSlot(r.state, slotID, domain.SlotSkipped)
	if err != nil {
		return domain.SlotState{}, err
	}
	r.state = next
	r.logger.Debug("slot skipped", "pipeline", r.state.PipelineID, "slot", slotID)

	if err := r.finish(ctx, domain.PipelineCompleted); err != nil {
		return domain.SlotState{}, err
	}
	return r.state.Slots[slotID], nil
}

// StartAuditing moves a COMPLETED pipeline to AUDITING.
func (r *Runner) StartAuditing(ctx context.Context) error {
	if r.state.Status != domain.PipelineCompleted {
		return fmt.Errorf("%w: cannot start auditing from status %s", domain.ErrInvalidTransition, r.state.Status)
	}
	return r.setStatus(ctx, domain.PipelineAuditing)
}

// Archive moves the run's state file into the archive directory.
func (r *Runner) Archive() (string, error) {
	return r.tracker.Archive()
}

// Summary renders a plain-text progress report, one line per slot in
// declaration order.
func (r *Runner) Summary() string {
	completed := 0
	for _, ss := range r.state.Slots {
		if ss.Status == domain.SlotCompleted {
			completed++
		}
	}

	lines := []string{
		fmt.Sprintf("Pipeline: %s v%s", r.pipeline.ID, r.pipeline.Version),
		fmt.Sprintf("Status: %s", r.state.Status),
		fmt.Sprintf("Progress: %d/%d slots", completed, len(r.state.Slots)),
		"",
	}
	for _, slot := range r.pipeline.Slots {
		ss, ok := r.state.Slots[slot.ID]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  [%s] %s", strings.ToUpper(string(ss.Status)), slot.ID)
		if ss.AgentID != "" {
			line += " -- agent: " + ss.AgentID
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (r *Runner) lookup(slotID string) (domain.Slot, error) {
	slot, ok := r.pipeline.Slot(slotID)
	if !ok {
		return domain.Slot{}, &domain.NotFoundError{What: "Slot", ID: slotID, Where: "pipeline", Kind: domain.ErrSlotNotFound}
	}
	return slot, nil
}

func (r *Runner) failSlot(ctx context.Context, slotID, msg string, opts ...state.SlotOption) (domain.SlotState, error) {
	opts = append(opts, state.WithError(msg))
	next, err := r.tracker.UpdateSlot(r.state, slotID, domain.SlotFailed, opts...)
	if err != nil {
		return domain.SlotState{}, err
	}
	r.state = next

	r.logger.Debug("slot failed", "pipeline", r.state.PipelineID, "slot", slotID, "reason", msg)
	r.notify(ctx, "OnSlotFailed", func(o domain.Observer) error {
		return o.OnSlotFailed(ctx, r.slotEvent(domain.EventSlotFailed, slotID, msg))
	})
	if err := r.finish(ctx, domain.PipelineFailed); err != nil {
		return domain.SlotState{}, err
	}
	return r.state.Slots[slotID], nil
}

// finish flips the pipeline to outcome once every slot is terminal. A run that
// already finished keeps its status.
func (r *Runner) finish(ctx context.Context, outcome domain.PipelineStatus) error {
	switch r.state.Status {
	case domain.PipelineCompleted, domain.PipelineFailed, domain.PipelineAuditing:
		return nil
	}
	if !state.IsComplete(r.state) {
		return nil
	}
	if err := r.setStatus(ctx, outcome); err != nil {
		return err
	}

	r.logger.Info("pipeline finished", "pipeline", r.state.PipelineID, "status", outcome)
	if outcome == domain.PipelineFailed {
		r.notify(ctx, "OnPipelineFailed", func(o domain.Observer) error {
			return o.OnPipelineFailed(ctx, r.pipelineEvent(domain.EventPipelineFailed))
		})
		return nil
	}
	r.notify(ctx, "OnPipelineCompleted", func(o domain.Observer) error {
		return o.OnPipelineCompleted(ctx, r.pipelineEvent(domain.EventPipelineCompleted))
	})
	return nil
}

func (r *Runner) setStatus(ctx context.Context, status domain.PipelineStatus) error {
	old := r.state.Status
	firstStart := status == domain.PipelineRunning && r.state.StartedAt.IsZero()

	next, err := r.tracker.SetStatus(r.state, status)
	if err != nil {
		return err
	}
	r.state = next

	if old != status {
		r.notify(ctx, "OnStatusChanged", func(o domain.Observer) error {
			return o.OnStatusChanged(ctx, &domain.StatusEvent{
				EventBase: r.base(domain.EventStatusChanged),
				Old:       old,
				New:       status,
			})
		})
	}
	if firstStart {
		r.notify(ctx, "OnPipelineStarted", func(o domain.Observer) error {
			return o.OnPipelineStarted(ctx, r.pipelineEvent(domain.EventPipelineStarted))
		})
	}
	return nil
}
