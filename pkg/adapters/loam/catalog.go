// Package loam reads agent definitions from markdown prompt files through the
// Loam document library.
package loam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
	"github.com/aretw0/loam"
)

const defaultAgentVersion = "1.0"

var _ ports.AgentCatalog = (*AgentCatalog)(nil)

// AgentCatalog implements ports.AgentCatalog over a directory of agent prompt
// files. Each file's front-matter declares the agent; documents without an
// agent_id are not agents and are ignored.
type AgentCatalog struct {
	dir  string
	Repo *loam.TypedRepository[AgentMetadata]
}

// New wraps an existing repository rooted at dir.
func New(dir string, repo *loam.TypedRepository[AgentMetadata]) *AgentCatalog {
	return &AgentCatalog{dir: dir, Repo: repo}
}

// Open initializes a read-only repository over dir. A missing directory
// yields an empty catalog.
func Open(dir string) (*AgentCatalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return &AgentCatalog{dir: absPath}, nil
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(absPath, loam.NewTypedRepository[AgentMetadata](repo)), nil
}

// ListAgents returns every declared agent keyed by agent id.
func (c *AgentCatalog) ListAgents(ctx context.Context) (map[string]domain.Agent, error) {
	agents := make(map[string]domain.Agent)
	if c.Repo == nil {
		return agents, nil
	}

	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	for _, doc := range docs {
		if !strings.EqualFold(filepath.Ext(doc.ID), ".md") && filepath.Ext(doc.ID) != "" {
			continue
		}
		meta := doc.Data
		if meta.AgentID == "" {
			continue
		}
		if prev, ok := agents[meta.AgentID]; ok {
			return nil, fmt.Errorf("collision detected: agent '%s' is defined in both '%s' and '%s'", meta.AgentID, prev.PromptPath, c.promptPath(doc.ID))
		}

		version := meta.Version
		if version == "" {
			version = defaultAgentVersion
		}
		agents[meta.AgentID] = domain.Agent{
			ID:                  meta.AgentID,
			Version:             version,
			Capabilities:        meta.Capabilities,
			CompatibleSlotTypes: meta.CompatibleSlotTypes,
			PromptPath:          c.promptPath(doc.ID),
		}
	}
	return agents, nil
}

func (c *AgentCatalog) promptPath(docID string) string {
	return filepath.Join(c.dir, filepath.FromSlash(trimExtension(docID))+".md")
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
