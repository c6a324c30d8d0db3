package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPipelineLoad is returned when a pipeline source cannot be read or parsed.
	ErrPipelineLoad = errors.New("pipeline load failed")

	// ErrParameter is returned when pipeline parameters cannot be resolved.
	ErrParameter = errors.New("pipeline parameter error")

	// ErrValidation is returned when a pipeline fails structural validation.
	ErrValidation = errors.New("pipeline validation failed")

	// ErrSlotTypeValidation is returned when slots reference unknown slot types.
	ErrSlotTypeValidation = errors.New("slot type validation failed")

	// ErrDependencyCycle is returned when the slot graph is not acyclic.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	// ErrSlotTypeNotFound is returned by registries for unknown slot type ids.
	ErrSlotTypeNotFound = errors.New("slot type not found")

	// ErrAgentNotFound is returned when an agent id is not in the catalogue.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrSlotNotFound is returned when a slot id is not part of the pipeline or state.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrStateNotFound is returned when a state document does not exist.
	ErrStateNotFound = errors.New("state file not found")

	// ErrNoStateFile is returned when archiving before anything was saved.
	ErrNoStateFile = errors.New("no state file to archive")

	// ErrDefinitionMismatch is returned when a resumed state belongs to a different pipeline definition.
	ErrDefinitionMismatch = errors.New("pipeline definition hash mismatch")

	// ErrInvalidTransition is returned for status changes the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// LoadError describes why a pipeline source could not be loaded.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPipelineLoad, e.Err}
	}
	return []error{ErrPipelineLoad}
}

// ParameterError describes a parameter that could not be resolved or coerced.
type ParameterError struct {
	Name   string
	Reason string
}

func (e *ParameterError) Error() string { return e.Reason }

func (e *ParameterError) Unwrap() error { return ErrParameter }

// ValidationError aggregates every structural problem found in a pipeline.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "Pipeline validation failed: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SlotTypeError lists slots whose type is unknown to the registry.
type SlotTypeError struct {
	Errors []string
}

func (e *SlotTypeError) Error() string {
	return "Slot type validation failed: " + strings.Join(e.Errors, "; ")
}

func (e *SlotTypeError) Unwrap() error { return ErrSlotTypeValidation }

// CycleError reports every slot whose in-degree never reached zero.
type CycleError struct {
	Slots []string
}

func (e *CycleError) Error() string {
	return "Dependency cycle detected involving slots: " + strings.Join(e.Slots, ", ")
}

func (e *CycleError) Unwrap() error { return ErrDependencyCycle }

// HashMismatchError is returned when a pipeline changed since its state was saved.
type HashMismatchError struct {
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("Pipeline definition hash mismatch: expected %s, got %s. Pipeline definition was modified since this state was saved.",
		e.Expected, e.Actual)
}

func (e *HashMismatchError) Unwrap() error { return ErrDefinitionMismatch }

// NotFoundError names a missing entity and the collection it was looked up in.
type NotFoundError struct {
	What  string
	ID    string
	Where string
	Kind  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found in %s", e.What, e.ID, e.Where)
}

func (e *NotFoundError) Unwrap() error { return e.Kind }

// SlotTypeNotFound builds the registry lookup error for a slot type id.
func SlotTypeNotFound(id string) error {
	return &NotFoundError{What: "Slot type", ID: id, Where: "registry", Kind: ErrSlotTypeNotFound}
}
