package ports

import (
	"context"

	"github.com/aretw0/gantry/pkg/domain"
)

// PipelineLoader defines how the runner obtains pipeline definitions.
type PipelineLoader interface {
	// Load reads the definition identified by source.
	// Failures wrap domain.ErrPipelineLoad.
	Load(ctx context.Context, source string) (domain.Pipeline, error)

	// Resolve substitutes parameter placeholders and returns a new pipeline.
	// The input pipeline is not modified. Failures wrap domain.ErrParameter.
	Resolve(ctx context.Context, p domain.Pipeline, params map[string]any) (domain.Pipeline, error)
}
