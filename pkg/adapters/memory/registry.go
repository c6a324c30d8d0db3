package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
)

var (
	_ ports.SlotTypeRegistry = (*Registry)(nil)
	_ ports.AgentCatalog     = (*Catalog)(nil)
)

// Registry implements ports.SlotTypeRegistry using an in-memory map.
type Registry struct {
	mu    sync.RWMutex
	types map[string]domain.SlotType
}

// NewRegistry creates a Registry holding the given slot types.
func NewRegistry(types ...domain.SlotType) *Registry {
	r := &Registry{types: make(map[string]domain.SlotType, len(types))}
	for _, st := range types {
		r.types[st.ID] = st
	}
	return r
}

// Register adds or replaces a slot type.
func (r *Registry) Register(st domain.SlotType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[st.ID] = st
}

// LoadSlotTypes returns a copy of every registered slot type.
func (r *Registry) LoadSlotTypes(ctx context.Context) (map[string]domain.SlotType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.types), nil
}

// GetSlotType returns one slot type by id.
func (r *Registry) GetSlotType(ctx context.Context, id string) (domain.SlotType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.types[id]
	if !ok {
		return domain.SlotType{}, domain.SlotTypeNotFound(id)
	}
	return st, nil
}

// Catalog implements ports.AgentCatalog using an in-memory map.
type Catalog struct {
	agents map[string]domain.Agent
}

// NewCatalog creates a Catalog holding the given agents.
func NewCatalog(agents ...domain.Agent) *Catalog {
	c := &Catalog{agents: make(map[string]domain.Agent, len(agents))}
	for _, a := range agents {
		c.agents[a.ID] = a
	}
	return c
}

// ListAgents returns a copy of every agent.
func (c *Catalog) ListAgents(ctx context.Context) (map[string]domain.Agent, error) {
	return maps.Clone(c.agents), nil
}
