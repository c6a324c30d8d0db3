package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aretw0/gantry/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DefinitionHash digests the identity fields of a pipeline.
// Only ids, names, version, authorship and the ordered slot ids take part;
// gates, outputs and task text do not.
func DefinitionHash(p domain.Pipeline) (string, error) {
	projection := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"version":     p.Version,
		"description": p.Description,
		"created_by":  p.CreatedBy,
		"created_at":  p.CreatedAt,
		"slots":       p.SlotIDs(),
	}
	// yaml.v3 emits map keys sorted, which makes the document canonical.
	canonical, err := yaml.Marshal(projection)
	if err != nil {
		return "", fmt.Errorf("failed to encode definition projection: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
