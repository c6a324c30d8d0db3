// Package file loads pipeline definitions and slot types from YAML files.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/gantry/internal/logging"
	"github.com/aretw0/gantry/internal/params"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
	"gopkg.in/yaml.v3"
)

var _ ports.PipelineLoader = (*Loader)(nil)

var pipelineRequired = []string{"id", "name", "version", "description", "created_by", "created_at"}

// Loader implements ports.PipelineLoader for pipeline YAML files.
type Loader struct {
	logger *slog.Logger
}

// Option configures the file adapters.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	o := buildOptions(opts)
	return &Loader{logger: o.logger}
}

// Load parses the pipeline at path. The document may wrap its fields in a
// top-level `pipeline:` key.
func (l *Loader) Load(ctx context.Context, path string) (domain.Pipeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: "Pipeline file not found: " + path}
		}
		return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: "Cannot read " + path, Err: err}
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: "Malformed YAML in " + path, Err: err}
	}
	if doc == nil {
		return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: "Empty YAML file: " + path}
	}
	data, ok := doc.(map[string]any)
	if !ok {
		return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: fmt.Sprintf("Expected YAML mapping, got %s", yamlKind(doc))}
	}
	if inner, ok := data[domain.KeyPipelineWrapper].(map[string]any); ok {
		data = inner
	}

	if missing := missingKeys(data, pipelineRequired...); len(missing) > 0 {
		return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: "Missing required fields: " + strings.Join(missing, ", ")}
	}
	if err := applyPipelineDefaults(data); err != nil {
		return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: "Invalid pipeline " + path, Err: err}
	}

	var p domain.Pipeline
	if err := decode(data, &p); err != nil {
		return domain.Pipeline{}, &domain.LoadError{Path: path, Reason: "Invalid pipeline " + path, Err: err}
	}

	l.logger.Debug("pipeline loaded", "path", path, "pipeline", p.ID, "slots", len(p.Slots))
	return p, nil
}

// Resolve substitutes parameters into a copy of p.
func (l *Loader) Resolve(ctx context.Context, p domain.Pipeline, values map[string]any) (domain.Pipeline, error) {
	return params.Resolve(p, values)
}

// LoadAndResolve loads path and resolves it with values.
func (l *Loader) LoadAndResolve(ctx context.Context, path string, values map[string]any) (domain.Pipeline, error) {
	p, err := l.Load(ctx, path)
	if err != nil {
		return domain.Pipeline{}, err
	}
	return l.Resolve(ctx, p, values)
}

// applyPipelineDefaults fills the optional fields the document left out and
// checks the per-item required keys.
func applyPipelineDefaults(data map[string]any) error {
	parameters, err := mappings(data["parameters"], "parameters")
	if err != nil {
		return err
	}
	for i, param := range parameters {
		if missing := missingKeys(param, "name"); len(missing) > 0 {
			return fmt.Errorf("parameters[%d]: missing required fields: %s", i, strings.Join(missing, ", "))
		}
		setDefault(param, "type", "string")
	}

	slots, err := mappings(data["slots"], "slots")
	if err != nil {
		return err
	}
	for i, slot := range slots {
		if missing := missingKeys(slot, "id", "name"); len(missing) > 0 {
			return fmt.Errorf("slots[%d]: missing required fields: %s", i, strings.Join(missing, ", "))
		}
		if err := applySlotDefaults(slot); err != nil {
			return fmt.Errorf("slot '%v': %w", slot["id"], err)
		}
	}

	flow, err := mappings(data["data_flow"], "data_flow")
	if err != nil {
		return err
	}
	for i, edge := range flow {
		if missing := missingKeys(edge, "from_slot", "to_slot", "artifact"); len(missing) > 0 {
			return fmt.Errorf("data_flow[%d]: missing required fields: %s", i, strings.Join(missing, ", "))
		}
		setDefault(edge, "required", true)
	}
	return nil
}

func applySlotDefaults(slot map[string]any) error {
	inputs, err := mappings(slot["inputs"], "inputs")
	if err != nil {
		return err
	}
	for i, in := range inputs {
		if missing := missingKeys(in, "name", "from_slot", "artifact"); len(missing) > 0 {
			return fmt.Errorf("inputs[%d]: missing required fields: %s", i, strings.Join(missing, ", "))
		}
		setDefault(in, "required", true)
	}

	outputs, err := mappings(slot["outputs"], "outputs")
	if err != nil {
		return err
	}
	for i, out := range outputs {
		if missing := missingKeys(out, "name"); len(missing) > 0 {
			return fmt.Errorf("outputs[%d]: missing required fields: %s", i, strings.Join(missing, ", "))
		}
		setDefault(out, "type", domain.DefaultArtifactType)
		setDefault(out, "validation", domain.DefaultValidationLevel)
	}

	for _, key := range []string{"pre_conditions", "post_conditions"} {
		gates, err := mappings(slot[key], key)
		if err != nil {
			return err
		}
		for _, g := range gates {
			setDefault(g, "type", string(domain.GateCustom))
		}
	}

	def := domain.DefaultExecutionConfig()
	exec, ok := slot["execution"].(map[string]any)
	if !ok {
		if v := slot["execution"]; v != nil {
			return fmt.Errorf("execution must be a mapping, got %T", v)
		}
		exec = map[string]any{}
		slot["execution"] = exec
	}
	setDefault(exec, "timeout_hours", def.TimeoutHours)
	setDefault(exec, "retry_on_fail", def.RetryOnFail)
	setDefault(exec, "max_retries", def.MaxRetries)
	return nil
}

func yamlKind(v any) string {
	switch v.(type) {
	case []any:
		return "list"
	case string:
		return "str"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
