package gantry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/gantry/internal/gate"
	"github.com/aretw0/gantry/internal/logging"
	"github.com/aretw0/gantry/internal/runtime"
	"github.com/aretw0/gantry/internal/state"
	"github.com/aretw0/gantry/internal/validator"
	"github.com/aretw0/gantry/pkg/adapters/file"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
	"github.com/go-git/go-billy/v5"
)

// Default locations relative to the project root.
const (
	DefaultStateDir     = ".gantry/state"
	DefaultSlotTypesDir = "slot_types"
)

// ValidationResult is the outcome of Engine.Validate.
type ValidationResult = validator.Result

// Engine is the high-level entry point for the gantry library.
// It assembles the loader, slot type registry, gate checker and state tracker
// used by every run it starts.
type Engine struct {
	root      string
	stateDir  string
	loader    ports.PipelineLoader
	types     ports.SlotTypeRegistry
	noTypes   bool
	gateOpts  []gate.Option
	observers []domain.Observer
	logger    *slog.Logger
	now       func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStateDir sets where run state documents are written. Relative paths are
// resolved against the project root.
func WithStateDir(dir string) Option {
	return func(e *Engine) {
		e.stateDir = dir
	}
}

// WithLoader injects a custom PipelineLoader, replacing the YAML file loader.
func WithLoader(l ports.PipelineLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithRegistry injects a custom SlotTypeRegistry. A nil registry disables slot
// type checks.
func WithRegistry(r ports.SlotTypeRegistry) Option {
	return func(e *Engine) {
		e.types = r
		e.noTypes = r == nil
	}
}

// WithObservers registers lifecycle observers, notified in order.
func WithObservers(observers ...domain.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, observers...)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTestCommand sets the command run by tests_pass gates.
func WithTestCommand(argv ...string) Option {
	return func(e *Engine) {
		e.gateOpts = append(e.gateOpts, gate.WithTestCommand(argv...))
	}
}

// WithTestTimeout bounds tests_pass gates.
func WithTestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.gateOpts = append(e.gateOpts, gate.WithTestTimeout(d))
	}
}

// WithCommandTimeout bounds command: gates.
func WithCommandTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.gateOpts = append(e.gateOpts, gate.WithCommandTimeout(d))
	}
}

// WithFilesystem evaluates file gates against fs instead of the project root.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(e *Engine) {
		e.gateOpts = append(e.gateOpts, gate.WithFilesystem(fs))
	}
}

// WithClock sets the time source for state and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes an Engine rooted at projectRoot. By default pipelines are
// read from YAML files and slot types from <projectRoot>/slot_types.
func New(projectRoot string, opts ...Option) (*Engine, error) {
	if projectRoot == "" {
		projectRoot = "."
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid project root: %w", err)
	}

	e := &Engine{root: abs, stateDir: DefaultStateDir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.With("project", filepath.Base(abs))

	if !filepath.IsAbs(e.stateDir) {
		e.stateDir = filepath.Join(abs, e.stateDir)
	}
	if e.loader == nil {
		e.loader = file.NewLoader(file.WithLogger(e.logger))
	}
	if e.types == nil && !e.noTypes {
		e.types = file.NewSlotTypeRegistry(filepath.Join(abs, DefaultSlotTypesDir), file.WithLogger(e.logger))
	}
	return e, nil
}

// Root returns the absolute project root.
func (e *Engine) Root() string {
	return e.root
}

// StateDir returns the absolute state directory.
func (e *Engine) StateDir() string {
	return e.stateDir
}

// Loader returns the PipelineLoader used by the engine.
func (e *Engine) Loader() ports.PipelineLoader {
	return e.loader
}

// Registry returns the SlotTypeRegistry used by the engine, or nil.
func (e *Engine) Registry() ports.SlotTypeRegistry {
	return e.types
}

// Prepare loads the pipeline at source, resolves params, validates it and
// starts a persisted run in the VALIDATED status.
func (e *Engine) Prepare(ctx context.Context, source string, params map[string]any) (*Session, error) {
	p, err := e.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	r := e.newRunner()
	if _, err := r.Prepare(ctx, p, params); err != nil {
		return nil, err
	}
	return &Session{runner: r}, nil
}

// Resume reopens the run persisted at statePath. The pipeline at source must
// resolve to the definition the run was started with. A nil params map reuses
// the parameters recorded in the state.
func (e *Engine) Resume(ctx context.Context, statePath, source string, params map[string]any) (*Session, error) {
	p, err := e.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	r := e.newRunner()
	if _, err := r.ResumeWithPipeline(ctx, statePath, p, params); err != nil {
		return nil, err
	}
	return &Session{runner: r}, nil
}

// Validate loads and resolves the pipeline at source and reports every
// structural problem and unknown slot type. The error is only set when the
// pipeline could not be loaded or resolved.
func (e *Engine) Validate(ctx context.Context, source string, params map[string]any) (ValidationResult, error) {
	p, err := e.resolve(ctx, source, params)
	if err != nil {
		return ValidationResult{}, err
	}

	res := validator.Validate(p)
	if e.types != nil {
		if missing := validator.CheckSlotTypes(ctx, p, e.types); len(missing) > 0 {
			res.Errors = append(res.Errors, missing...)
			res.Valid = false
		}
	}
	return res, nil
}

// Order returns the execution order of the pipeline at source.
func (e *Engine) Order(ctx context.Context, source string, params map[string]any) ([]string, error) {
	p, err := e.resolve(ctx, source, params)
	if err != nil {
		return nil, err
	}
	return validator.ExecutionOrder(p)
}

func (e *Engine) resolve(ctx context.Context, source string, params map[string]any) (domain.Pipeline, error) {
	p, err := e.loader.Load(ctx, source)
	if err != nil {
		return domain.Pipeline{}, err
	}
	return e.loader.Resolve(ctx, p, params)
}

func (e *Engine) newRunner() *runtime.Runner {
	gateOpts := append([]gate.Option{gate.WithClock(e.now), gate.WithLogger(e.logger)}, e.gateOpts...)
	return runtime.New(
		e.loader,
		e.types,
		gate.New(e.root, gateOpts...),
		state.New(e.stateDir, state.WithClock(e.now), state.WithLogger(e.logger)),
		runtime.WithObservers(e.observers...),
		runtime.WithLogger(e.logger),
		runtime.WithClock(e.now),
	)
}
