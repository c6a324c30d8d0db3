// Package state owns the durable record of a pipeline run.
//
// A Tracker never mutates the PipelineState it is given: every transition
// returns an updated copy that has already been written to disk. A Tracker is
// bound to one run and is not safe for concurrent use.
package state

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/gantry/internal/logging"
	"github.com/aretw0/gantry/pkg/domain"
	"gopkg.in/yaml.v3"
)

const (
	fileSuffix  = ".state.yaml"
	stampLayout = "20060102T150405Z"
	archiveDir  = "archive"
	stateWhere  = "pipeline state"
)

// Tracker persists one PipelineState under a state directory.
type Tracker struct {
	dir    string
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source for timestamps and the state file name.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// New creates a Tracker writing into stateDir.
func New(stateDir string, opts ...Option) *Tracker {
	t := &Tracker{
		dir: stateDir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	return t
}

// Path returns the tracked state file, or "" before the first save.
func (t *Tracker) Path() string {
	return t.path
}

func (t *Tracker) timestamp() time.Time {
	return t.now().UTC()
}

// InitState builds a fresh state with every slot PENDING and persists it.
func (t *Tracker) InitState(p domain.Pipeline, params map[string]any) (domain.PipelineState, error) {
	hash, err := DefinitionHash(p)
	if err != nil {
		return domain.PipelineState{}, err
	}

	s := domain.PipelineState{
		PipelineID:      p.ID,
		PipelineVersion: p.Version,
		DefinitionHash:  hash,
		Status:          domain.PipelineLoaded,
		Slots:           make(map[string]domain.SlotState, len(p.Slots)),
	}
	if len(params) > 0 {
		s.Parameters = make(map[string]any, len(params))
		for k, v := range params {
			s.Parameters[k] = v
		}
	}
	for _, slot := range p.Slots {
		s.Slots[slot.ID] = domain.SlotState{SlotID: slot.ID, Status: domain.SlotPending}
	}

	if _, err := t.Save(s); err != nil {
		return domain.PipelineState{}, err
	}
	t.logger.Debug("state initialized", "pipeline", p.ID, "slots", len(p.Slots), "path", t.path)
	return s, nil
}

// SlotOption sets an optional field during UpdateSlot.
type SlotOption func(*domain.SlotState)

// WithError records an error message on the slot.
func WithError(msg string) SlotOption {
	return func(ss *domain.SlotState) {
		ss.Error = msg
	}
}

// WithAgent records the agent assigned to the slot.
func WithAgent(agentID, prompt string) SlotOption {
	return func(ss *domain.SlotState) {
		ss.AgentID = agentID
		ss.AgentPrompt = prompt
	}
}

// WithPreCheckResults records pre-condition outcomes.
func WithPreCheckResults(results []domain.GateCheckResult) SlotOption {
	return func(ss *domain.SlotState) {
		ss.PreCheckResults = nonEmpty(results)
	}
}

// WithPostCheckResults records post-condition outcomes.
func WithPostCheckResults(results []domain.GateCheckResult) SlotOption {
	return func(ss *domain.SlotState) {
		ss.PostCheckResults = nonEmpty(results)
	}
}

// UpdateSlot transitions one slot and persists the result.
// started_at is set once, the first time the slot enters IN_PROGRESS.
// completed_at is set whenever the slot enters COMPLETED, FAILED or SKIPPED.
// Entering RETRYING increments retry_count. Returning to PENDING is rejected.
// On error the returned state is the zero value and nothing was written.
func (t *Tracker) UpdateSlot(s domain.PipelineState, slotID string, status domain.SlotStatus, opts ...SlotOption) (domain.PipelineState, error) {
	current, ok := s.Slots[slotID]
	if !ok {
		return domain.PipelineState{}, &domain.NotFoundError{What: "Slot", ID: slotID, Where: stateWhere, Kind: domain.ErrSlotNotFound}
	}
	if !knownSlotStatus(status) {
		return domain.PipelineState{}, fmt.Errorf("%w: unknown slot status %q", domain.ErrInvalidTransition, status)
	}
	if status == domain.SlotPending && current.Status != domain.SlotPending {
		return domain.PipelineState{}, fmt.Errorf("%w: slot '%s' cannot return to pending from %s",
			domain.ErrInvalidTransition, slotID, current.Status)
	}

	next := s.Clone()
	ss := next.Slots[slotID]
	now := t.timestamp()

	if status == domain.SlotInProgress && ss.StartedAt.IsZero() {
		ss.StartedAt = now
	}
	if status.IsTerminal() {
		ss.CompletedAt = now
	}
	if status == domain.SlotRetrying && ss.Status != domain.SlotRetrying {
		ss.RetryCount++
	}
	ss.Status = status
	for _, opt := range opts {
		opt(&ss)
	}
	next.Slots[slotID] = ss

	if _, err := t.Save(next); err != nil {
		return domain.PipelineState{}, err
	}
	t.logger.Debug("slot updated", "pipeline", s.PipelineID, "slot", slotID, "from", current.Status, "to", status)
	return next, nil
}

// SetStatus changes the pipeline status and persists the result.
// started_at is set on the first transition to RUNNING; completed_at when the
// run reaches COMPLETED or FAILED.
func (t *Tracker) SetStatus(s domain.PipelineState, status domain.PipelineStatus) (domain.PipelineState, error) {
	next := s.Clone()
	now := t.timestamp()
	if status == domain.PipelineRunning && next.StartedAt.IsZero() {
		next.StartedAt = now
	}
	if status == domain.PipelineCompleted || status == domain.PipelineFailed {
		next.CompletedAt = now
	}
	next.Status = status

	if _, err := t.Save(next); err != nil {
		return domain.PipelineState{}, err
	}
	t.logger.Debug("pipeline status updated", "pipeline", s.PipelineID, "from", s.Status, "to", status)
	return next, nil
}

// ReadySlots returns, in declaration order, the ids of slots that are PENDING or
// BLOCKED and whose depends_on targets and data_flow sources are all COMPLETED.
func ReadySlots(p domain.Pipeline, s domain.PipelineState) []string {
	completed := func(id string) bool {
		st, ok := s.SlotStatusOf(id)
		return ok && st == domain.SlotCompleted
	}

	feeders := make(map[string][]string)
	for _, edge := range p.DataFlow {
		feeders[edge.ToSlot] = append(feeders[edge.ToSlot], edge.FromSlot)
	}

	var ready []string
	for _, slot := range p.Slots {
		st, ok := s.SlotStatusOf(slot.ID)
		if !ok || (st != domain.SlotPending && st != domain.SlotBlocked) {
			continue
		}
		if allOf(slot.DependsOn, completed) && allOf(feeders[slot.ID], completed) {
			ready = append(ready, slot.ID)
		}
	}
	return ready
}

func allOf(ids []string, pred func(string) bool) bool {
	for _, id := range ids {
		if !pred(id) {
			return false
		}
	}
	return true
}

// IsComplete reports whether every slot is COMPLETED, FAILED or SKIPPED.
// The pipeline's own status is not consulted.
func IsComplete(s domain.PipelineState) bool {
	for _, ss := range s.Slots {
		if !ss.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Save writes the state atomically and returns the file path.
// The path is chosen on the first save and reused afterwards.
func (t *Tracker) Save(s domain.PipelineState) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}

	path := t.path
	if path == "" {
		name := fmt.Sprintf("%s-%s%s", s.PipelineID, t.timestamp().Format(stampLayout), fileSuffix)
		path = filepath.Join(t.dir, name)
	}

	if err := writeFileAtomic(filepath.Dir(path), filepath.Base(path), data); err != nil {
		return "", err
	}
	t.path = path
	return path, nil
}

// Load reads a state document. A Tracker that has not saved yet adopts the
// loaded file, so a resumed run keeps writing to the same document.
func (t *Tracker) Load(path string) (domain.PipelineState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.PipelineState{}, fmt.Errorf("%w: %s", domain.ErrStateNotFound, path)
		}
		return domain.PipelineState{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var s domain.PipelineState
	if err := yaml.Unmarshal(data, &s); err != nil {
		return domain.PipelineState{}, fmt.Errorf("failed to unmarshal state %s: %w", path, err)
	}
	if s.Slots == nil {
		s.Slots = make(map[string]domain.SlotState)
	}
	for id, ss := range s.Slots {
		if ss.SlotID == "" {
			ss.SlotID = id
			s.Slots[id] = ss
		}
	}

	if t.path == "" {
		t.path = path
	}
	return s, nil
}

// Archive moves the tracked file into the archive directory next to the state
// directory and returns the new path.
func (t *Tracker) Archive() (string, error) {
	if t.path == "" {
		return "", domain.ErrNoStateFile
	}

	dest := filepath.Join(filepath.Dir(filepath.Dir(t.path)), archiveDir)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	target := filepath.Join(dest, filepath.Base(t.path))
	if err := os.Rename(t.path, target); err != nil {
		return "", fmt.Errorf("failed to archive state: %w", err)
	}

	t.logger.Debug("state archived", "from", t.path, "to", target)
	t.path = target
	return target, nil
}

func nonEmpty(results []domain.GateCheckResult) []domain.GateCheckResult {
	if len(results) == 0 {
		return nil
	}
	return results
}

func knownSlotStatus(s domain.SlotStatus) bool {
	switch s {
	case domain.SlotPending, domain.SlotBlocked, domain.SlotReady, domain.SlotPreCheck,
		domain.SlotInProgress, domain.SlotPostCheck, domain.SlotCompleted,
		domain.SlotFailed, domain.SlotSkipped, domain.SlotRetrying:
		return true
	}
	return false
}
