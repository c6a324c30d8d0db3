package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/gantry"
	"github.com/aretw0/gantry/internal/config"
	"github.com/aretw0/gantry/internal/logging"
	"github.com/aretw0/gantry/pkg/adapters/file"
	"github.com/aretw0/gantry/pkg/adapters/loam"
	"github.com/aretw0/gantry/pkg/adapters/redis"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/observability"
	"github.com/aretw0/gantry/pkg/registry"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const lockTTL = 30 * time.Second

// app carries what every command needs: resolved settings, the logger and the
// optional Redis client.
type app struct {
	root   string
	cfg    config.Config
	logger *slog.Logger
	redis  *backend.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid project root: %w", err)
	}

	cfgPath, _ := flags.GetString("config")
	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if v, _ := flags.GetString("state-dir"); v != "" {
		cfg.StateDir = v
	}
	if v, _ := flags.GetString("audit-log-dir"); v != "" {
		cfg.AuditLogDir = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := flags.GetString("redis-addr"); v != "" {
		cfg.Redis.Addr = v
	}
	cfg = cfg.Resolve(root)

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{root: root, cfg: cfg, logger: logging.NewWithWriter(cmd.ErrOrStderr(), level, false)}
	if cfg.Redis.Addr != "" {
		a.redis = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *app) slotTypes() *file.SlotTypeRegistry {
	return file.NewSlotTypeRegistry(a.cfg.SlotTypesDir, file.WithLogger(a.logger))
}

// registry combines the slot types with the agent catalogue in agents_dir.
func (a *app) registry() (*registry.Registry, error) {
	catalog, err := loam.Open(a.cfg.AgentsDir)
	if err != nil {
		return nil, err
	}
	return registry.New(a.slotTypes(), catalog), nil
}

// engine builds an Engine whose runs write the compliance log, log every
// event and, when Redis is configured, stream events.
func (a *app) engine(observers ...domain.Observer) (*gantry.Engine, error) {
	observers = append(observers,
		observability.NewLogHooks(a.logger),
		observability.NewComplianceLog(a.cfg.AuditLogDir),
	)
	if a.redis != nil {
		observers = append(observers, redis.NewPublisherFromClient(a.redis,
			redis.WithStreamPrefix(a.cfg.Redis.StreamPrefix),
			redis.WithMaxLen(a.cfg.Redis.MaxLen),
		))
	}

	return gantry.New(a.root,
		gantry.WithStateDir(a.cfg.StateDir),
		gantry.WithRegistry(a.slotTypes()),
		gantry.WithLogger(a.logger),
		gantry.WithObservers(observers...),
		gantry.WithTestCommand(a.cfg.TestCommand...),
		gantry.WithTestTimeout(a.cfg.TestTimeout),
		gantry.WithCommandTimeout(a.cfg.CommandTimeout),
	)
}

// resume reopens the run named by the --state and --pipeline flags.
func (a *app) resume(cmd *cobra.Command, observers ...domain.Observer) (*gantry.Session, error) {
	statePath, _ := cmd.Flags().GetString("state")
	source, _ := cmd.Flags().GetString("pipeline")
	if statePath == "" || source == "" {
		return nil, fmt.Errorf("--state and --pipeline are required")
	}
	params, err := parseParams(cmd)
	if err != nil {
		return nil, err
	}

	eng, err := a.engine(observers...)
	if err != nil {
		return nil, err
	}
	return eng.Resume(cmd.Context(), statePath, a.path(source), params)
}

// mutate resumes the run and applies fn while holding the run's lock, so two
// drivers never interleave writes to the same state document.
func (a *app) mutate(cmd *cobra.Command, fn func(ctx context.Context, sess *gantry.Session) error) (*gantry.Session, error) {
	ctx := cmd.Context()
	if a.redis != nil {
		statePath, _ := cmd.Flags().GetString("state")
		abs, err := filepath.Abs(statePath)
		if err != nil {
			return nil, err
		}
		lockCtx, cancel := context.WithTimeout(ctx, lockTTL)
		defer cancel()
		unlock, err := redis.NewLocker(a.redis, "gantry:").Lock(lockCtx, abs, lockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				a.logger.Warn("failed to release state lock", "state", abs, "error", err)
			}
		}()
	}

	sess, err := a.resume(cmd)
	if err != nil {
		return nil, err
	}
	return sess, fn(ctx, sess)
}

func (a *app) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.root, p)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("state", "", "State document of the run")
	cmd.Flags().String("pipeline", "", "Pipeline definition the run was prepared from")
	addParamFlag(cmd)
}

func addParamFlag(cmd *cobra.Command) {
	cmd.Flags().StringArray("param", nil, "Pipeline parameter as key=value (repeatable)")
}

// parseParams returns nil when no --param was given, so resumed runs reuse the
// parameters recorded in their state.
func parseParams(cmd *cobra.Command) (map[string]any, error) {
	raw, _ := cmd.Flags().GetStringArray("param")
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", kv)
		}
		params[strings.TrimSpace(k)] = v
	}
	return params, nil
}

func isTTY(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isTerminal(f)
}
