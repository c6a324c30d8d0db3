// Package registry matches agents to the slot types they can fill.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
)

// Registry combines a slot type registry with an agent catalogue.
// The agent list is read once and cached.
type Registry struct {
	types   ports.SlotTypeRegistry
	catalog ports.AgentCatalog

	mu     sync.RWMutex
	agents map[string]domain.Agent
}

// New creates a Registry.
func New(types ports.SlotTypeRegistry, catalog ports.AgentCatalog) *Registry {
	return &Registry{types: types, catalog: catalog}
}

// LoadSlotTypes delegates to the slot type registry.
func (r *Registry) LoadSlotTypes(ctx context.Context) (map[string]domain.SlotType, error) {
	return r.types.LoadSlotTypes(ctx)
}

// GetSlotType delegates to the slot type registry.
func (r *Registry) GetSlotType(ctx context.Context, id string) (domain.SlotType, error) {
	return r.types.GetSlotType(ctx, id)
}

// Agents returns the cached agent catalogue.
func (r *Registry) Agents(ctx context.Context) (map[string]domain.Agent, error) {
	r.mu.RLock()
	agents := r.agents
	r.mu.RUnlock()
	if agents != nil {
		return agents, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.agents != nil {
		return r.agents, nil
	}
	loaded, err := r.catalog.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	if loaded == nil {
		loaded = map[string]domain.Agent{}
	}
	r.agents = loaded
	return loaded, nil
}

// FindCompatibleAgents matches every agent against the slot type's required
// capabilities. Results are ordered by matched count, most first; ties are
// ordered by agent id.
func (r *Registry) FindCompatibleAgents(ctx context.Context, slotTypeID string) ([]domain.CapabilityMatch, error) {
	st, err := r.types.GetSlotType(ctx, slotTypeID)
	if err != nil {
		return nil, err
	}
	agents, err := r.Agents(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	matches := make([]domain.CapabilityMatch, 0, len(ids))
	for _, id := range ids {
		matches = append(matches, match(st, agents[id]))
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return len(matches[i].Matched) > len(matches[j].Matched)
	})
	return matches, nil
}

// ValidateAssignment checks whether one agent can fill a slot type.
func (r *Registry) ValidateAssignment(ctx context.Context, slotTypeID, agentID string) (domain.CapabilityMatch, error) {
	st, err := r.types.GetSlotType(ctx, slotTypeID)
	if err != nil {
		return domain.CapabilityMatch{}, err
	}
	agents, err := r.Agents(ctx)
	if err != nil {
		return domain.CapabilityMatch{}, err
	}
	agent, ok := agents[agentID]
	if !ok {
		return domain.CapabilityMatch{}, &domain.NotFoundError{What: "Agent", ID: agentID, Where: "registry", Kind: domain.ErrAgentNotFound}
	}
	return match(st, agent), nil
}

// Manifest lists every slot of p with the capabilities its type requires.
// Slots whose type is unknown list no capabilities.
func (r *Registry) Manifest(ctx context.Context, p domain.Pipeline) (domain.SlotManifest, error) {
	types, err := r.types.LoadSlotTypes(ctx)
	if err != nil {
		return domain.SlotManifest{}, fmt.Errorf("failed to load slot types: %w", err)
	}

	m := domain.SlotManifest{PipelineID: p.ID, Slots: make([]domain.ManifestEntry, 0, len(p.Slots))}
	for _, slot := range p.Slots {
		caps := []string{}
		if st, ok := types[slot.Type]; ok {
			caps = append(caps, st.RequiredCapabilities...)
		}
		m.Slots = append(m.Slots, domain.ManifestEntry{
			SlotID:               slot.ID,
			SlotType:             slot.Type,
			SlotName:             slot.Name,
			RequiredCapabilities: caps,
		})
	}
	return m, nil
}

func match(st domain.SlotType, agent domain.Agent) domain.CapabilityMatch {
	has := make(map[string]bool, len(agent.Capabilities))
	for _, c := range agent.Capabilities {
		has[c] = true
	}

	required := dedupe(st.RequiredCapabilities)
	m := domain.CapabilityMatch{
		AgentID:    agent.ID,
		PromptPath: agent.PromptPath,
		Matched:    []string{},
		Missing:    []string{},
	}
	for _, c := range required {
		if has[c] {
			m.Matched = append(m.Matched, c)
		} else {
			m.Missing = append(m.Missing, c)
		}
	}
	m.Compatible = len(m.Missing) == 0
	return m
}

// dedupe returns the sorted set of values.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
