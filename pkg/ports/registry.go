package ports

import (
	"context"

	"github.com/aretw0/gantry/pkg/domain"
)

// SlotTypeRegistry is the narrow surface the runner needs to check slot types.
type SlotTypeRegistry interface {
	// LoadSlotTypes returns every known slot type keyed by id.
	LoadSlotTypes(ctx context.Context) (map[string]domain.SlotType, error)

	// GetSlotType returns a slot type, or an error wrapping domain.ErrSlotTypeNotFound.
	GetSlotType(ctx context.Context, id string) (domain.SlotType, error)
}

// AgentCatalog lists the agents that can be assigned to slots.
type AgentCatalog interface {
	// ListAgents returns every agent keyed by agent id.
	ListAgents(ctx context.Context) (map[string]domain.Agent, error)
}
