// Package validator performs read-only structural analysis of pipelines.
//
// Every check accumulates its findings instead of stopping at the first problem,
// so a single call reports everything wrong with a definition.
package validator

import (
	"context"
	"fmt"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
)

// Result collects the outcome of Validate.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Err returns a *domain.ValidationError aggregating all errors, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &domain.ValidationError{Errors: r.Errors}
}

// Validate runs every structural check on p:
// unique slot ids, depends_on integrity, acyclicity over depends_on and data_flow
// edges, data_flow I/O compatibility, and terminal-slot presence (warning only).
func Validate(p domain.Pipeline) Result {
	var errs []string
	errs = append(errs, checkUniqueIDs(p.Slots)...)
	errs = append(errs, checkDependencies(p.Slots)...)

	g := newGraph(p.Slots)
	for _, edge := range p.DataFlow {
		g.addEdge(edge.FromSlot, edge.ToSlot)
	}
	if _, stuck := g.sort(); len(stuck) > 0 {
		errs = append(errs, (&domain.CycleError{Slots: stuck}).Error())
	}

	errs = append(errs, CheckIOCompatibility(p)...)

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: checkTerminalSlot(p),
	}
}

// CheckDAG reports dependency cycles among slots as data.
// It returns at most one message, naming every slot stuck in or behind a cycle.
func CheckDAG(slots []domain.Slot) []string {
	if _, stuck := newGraph(slots).sort(); len(stuck) > 0 {
		return []string{(&domain.CycleError{Slots: stuck}).Error()}
	}
	return nil
}

// TopologicalSort returns slot ids in a valid execution order.
// Ties are broken by declaration order. A cycle yields a *domain.CycleError.
func TopologicalSort(slots []domain.Slot) ([]string, error) {
	order, stuck := newGraph(slots).sort()
	if len(stuck) > 0 {
		return nil, &domain.CycleError{Slots: stuck}
	}
	return order, nil
}

// ExecutionOrder sorts the pipeline's slots honoring both depends_on and data_flow edges.
func ExecutionOrder(p domain.Pipeline) ([]string, error) {
	g := newGraph(p.Slots)
	for _, edge := range p.DataFlow {
		g.addEdge(edge.FromSlot, edge.ToSlot)
	}
	order, stuck := g.sort()
	if len(stuck) > 0 {
		return nil, &domain.CycleError{Slots: stuck}
	}
	return order, nil
}

// CheckIOCompatibility verifies every data_flow edge connects existing slots
// and names an output its producer declares.
func CheckIOCompatibility(p domain.Pipeline) []string {
	byID := make(map[string]domain.Slot, len(p.Slots))
	for _, s := range p.Slots {
		if _, dup := byID[s.ID]; !dup {
			byID[s.ID] = s
		}
	}

	var errs []string
	for _, edge := range p.DataFlow {
		from, fromOK := byID[edge.FromSlot]
		if !fromOK {
			errs = append(errs, fmt.Sprintf("data_flow: from_slot '%s' does not exist", edge.FromSlot))
		}
		if _, ok := byID[edge.ToSlot]; !ok {
			errs = append(errs, fmt.Sprintf("data_flow: to_slot '%s' does not exist", edge.ToSlot))
		}
		if fromOK && !from.HasOutput(edge.Artifact) {
			errs = append(errs, fmt.Sprintf("data_flow: slot '%s' has no output named '%s' (required by '%s')",
				edge.FromSlot, edge.Artifact, edge.ToSlot))
		}
	}
	return errs
}

// CheckSlotTypes looks up every slot's type in reg and reports the ones it does not know.
func CheckSlotTypes(ctx context.Context, p domain.Pipeline, reg ports.SlotTypeRegistry) []string {
	var errs []string
	for _, s := range p.Slots {
		if _, err := reg.GetSlotType(ctx, s.Type); err != nil {
			errs = append(errs, fmt.Sprintf("Slot '%s': slot_type '%s' not found in registry", s.ID, s.Type))
		}
	}
	return errs
}

func checkUniqueIDs(slots []domain.Slot) []string {
	seen := make(map[string]bool, len(slots))
	var errs []string
	for _, s := range slots {
		if seen[s.ID] {
			errs = append(errs, fmt.Sprintf("Duplicate slot ID: '%s'", s.ID))
		}
		seen[s.ID] = true
	}
	return errs
}

func checkDependencies(slots []domain.Slot) []string {
	ids := make(map[string]bool, len(slots))
	for _, s := range slots {
		ids[s.ID] = true
	}
	var errs []string
	for _, s := range slots {
		for _, dep := range s.DependsOn {
			if !ids[dep] {
				errs = append(errs, fmt.Sprintf("Slot '%s': depends_on '%s' does not exist", s.ID, dep))
			}
		}
	}
	return errs
}

func checkTerminalSlot(p domain.Pipeline) []string {
	if len(p.Slots) == 0 {
		return nil
	}
	upstream := make(map[string]bool)
	for _, s := range p.Slots {
		for _, dep := range s.DependsOn {
			upstream[dep] = true
		}
	}
	for _, edge := range p.DataFlow {
		upstream[edge.FromSlot] = true
	}
	for _, s := range p.Slots {
		if !upstream[s.ID] {
			return nil
		}
	}
	return []string{"No terminal slot found (every slot is a dependency of another)"}
}
