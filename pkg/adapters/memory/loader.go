package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/gantry/internal/params"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
)

var _ ports.PipelineLoader = (*Loader)(nil)

// Loader implements ports.PipelineLoader over pipelines held in memory.
// Sources are pipeline ids.
type Loader struct {
	mu        sync.RWMutex
	pipelines map[string]domain.Pipeline
}

// NewLoader creates a Loader serving the given pipelines.
func NewLoader(pipelines ...domain.Pipeline) *Loader {
	l := &Loader{pipelines: make(map[string]domain.Pipeline, len(pipelines))}
	for _, p := range pipelines {
		l.pipelines[p.ID] = p
	}
	return l
}

// Add registers or replaces a pipeline.
func (l *Loader) Add(p domain.Pipeline) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pipelines[p.ID] = p
}

// Load returns the pipeline registered under source.
func (l *Loader) Load(ctx context.Context, source string) (domain.Pipeline, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.pipelines[source]
	if !ok {
		return domain.Pipeline{}, &domain.LoadError{
			Path:   source,
			Reason: fmt.Sprintf("Pipeline not found: %s", source),
		}
	}
	return p, nil
}

// Resolve substitutes parameters into a copy of p.
func (l *Loader) Resolve(ctx context.Context, p domain.Pipeline, values map[string]any) (domain.Pipeline, error) {
	return params.Resolve(p, values)
}
