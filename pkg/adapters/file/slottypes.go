package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/aretw0/gantry/pkg/ports"
	"gopkg.in/yaml.v3"
)

var _ ports.SlotTypeRegistry = (*SlotTypeRegistry)(nil)

// SlotTypeRegistry reads slot type definitions from the *.yaml files of a
// directory. Definitions are read once and cached.
type SlotTypeRegistry struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	types  map[string]domain.SlotType
	loaded bool
}

// NewSlotTypeRegistry creates a registry over dir. A missing directory yields
// an empty registry.
func NewSlotTypeRegistry(dir string, opts ...Option) *SlotTypeRegistry {
	o := buildOptions(opts)
	return &SlotTypeRegistry{dir: dir, logger: o.logger}
}

// LoadSlotTypes returns every slot type keyed by id.
func (r *SlotTypeRegistry) LoadSlotTypes(ctx context.Context) (map[string]domain.SlotType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	out := make(map[string]domain.SlotType, len(r.types))
	for id, st := range r.types {
		out[id] = st
	}
	return out, nil
}

// GetSlotType returns one slot type by id.
func (r *SlotTypeRegistry) GetSlotType(ctx context.Context, id string) (domain.SlotType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoaded(); err != nil {
		return domain.SlotType{}, err
	}
	st, ok := r.types[id]
	if !ok {
		return domain.SlotType{}, domain.SlotTypeNotFound(id)
	}
	return st, nil
}

// Reload discards the cache so the next lookup rereads the directory.
func (r *SlotTypeRegistry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.types = nil
}

func (r *SlotTypeRegistry) ensureLoaded() error {
	if r.loaded {
		return nil
	}
	types, err := readSlotTypes(r.dir)
	if err != nil {
		return err
	}
	r.types = types
	r.loaded = true
	r.logger.Debug("slot types loaded", "dir", r.dir, "count", len(types))
	return nil
}

func readSlotTypes(dir string) (map[string]domain.SlotType, error) {
	types := make(map[string]domain.SlotType)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return types, nil
	}

	// Glob returns matches in lexical order.
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		st, ok, err := readSlotType(path)
		if err != nil {
			return nil, err
		}
		if ok {
			types[st.ID] = st
		}
	}
	return types, nil
}

func readSlotType(path string) (domain.SlotType, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SlotType{}, false, fmt.Errorf("failed to read slot type %s: %w", path, err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.SlotType{}, false, fmt.Errorf("malformed slot type %s: %w", path, err)
	}
	if doc == nil {
		return domain.SlotType{}, false, nil
	}
	data, ok := doc.(map[string]any)
	if !ok {
		return domain.SlotType{}, false, fmt.Errorf("slot type %s: expected YAML mapping, got %s", path, yamlKind(doc))
	}
	if inner, ok := data[domain.KeySlotTypeWrapper].(map[string]any); ok {
		data = inner
	}
	if missing := missingKeys(data, "id", "name", "category"); len(missing) > 0 {
		return domain.SlotType{}, false, fmt.Errorf("slot type %s: missing required fields: %s", path, strings.Join(missing, ", "))
	}

	var st domain.SlotType
	if err := decode(data, &st); err != nil {
		return domain.SlotType{}, false, fmt.Errorf("slot type %s: %w", path, err)
	}
	return st, true, nil
}
