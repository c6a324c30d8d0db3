package observability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const logSuffix = ".events.yaml"

// Record is one entry of the compliance log.
type Record struct {
	Event       domain.EventType `yaml:"event" json:"event"`
	EventID     string           `yaml:"event_id" json:"event_id"`
	Timestamp   time.Time        `yaml:"timestamp" json:"timestamp"`
	PipelineID  string           `yaml:"pipeline_id" json:"pipeline_id"`
	Status      string           `yaml:"status,omitempty" json:"status,omitempty"`
	SlotCount   *int             `yaml:"slot_count,omitempty" json:"slot_count,omitempty"`
	Error       string           `yaml:"error,omitempty" json:"error,omitempty"`
	SlotID      string           `yaml:"slot_id,omitempty" json:"slot_id,omitempty"`
	AgentID     string           `yaml:"agent_id,omitempty" json:"agent_id,omitempty"`
	GateType    string           `yaml:"gate_type,omitempty" json:"gate_type,omitempty"`
	Passed      *bool            `yaml:"passed,omitempty" json:"passed,omitempty"`
	ResultCount *int             `yaml:"result_count,omitempty" json:"result_count,omitempty"`
	OldStatus   string           `yaml:"old_status,omitempty" json:"old_status,omitempty"`
	NewStatus   string           `yaml:"new_status,omitempty" json:"new_status,omitempty"`
}

// ComplianceLog appends every run event to <dir>/<pipeline_id>.events.yaml as
// a sequence of YAML documents. The file is created on first write.
type ComplianceLog struct {
	dir   string
	newID func() string

	mu sync.Mutex
}

var _ domain.Observer = (*ComplianceLog)(nil)

// NewComplianceLog creates a ComplianceLog writing into dir.
func NewComplianceLog(dir string) *ComplianceLog {
	return &ComplianceLog{dir: dir, newID: uuid.NewString}
}

// Path returns the log file of a pipeline.
func (c *ComplianceLog) Path(pipelineID string) string {
	return filepath.Join(c.dir, pipelineID+logSuffix)
}

func (c *ComplianceLog) OnPipelineStarted(ctx context.Context, e *domain.PipelineEvent) error {
	n := len(e.State.Slots)
	return c.write(e.EventBase, Record{Status: string(e.State.Status), SlotCount: &n})
}

func (c *ComplianceLog) OnPipelineCompleted(ctx context.Context, e *domain.PipelineEvent) error {
	return c.write(e.EventBase, Record{Status: string(e.State.Status)})
}

func (c *ComplianceLog) OnPipelineFailed(ctx context.Context, e *domain.PipelineEvent) error {
	return c.write(e.EventBase, Record{Status: string(e.State.Status), Error: e.Error})
}

func (c *ComplianceLog) OnSlotStarted(ctx context.Context, e *domain.SlotEvent) error {
	return c.write(e.EventBase, Record{SlotID: e.SlotID, AgentID: e.AgentID})
}

func (c *ComplianceLog) OnSlotCompleted(ctx context.Context, e *domain.SlotEvent) error {
	return c.write(e.EventBase, Record{SlotID: e.SlotID})
}

func (c *ComplianceLog) OnSlotFailed(ctx context.Context, e *domain.SlotEvent) error {
	return c.write(e.EventBase, Record{SlotID: e.SlotID, Error: e.Error})
}

func (c *ComplianceLog) OnGateCheckCompleted(ctx context.Context, e *domain.GateEvent) error {
	passed := e.Passed()
	n := len(e.Results)
	return c.write(e.EventBase, Record{SlotID: e.SlotID, GateType: string(e.Phase), Passed: &passed, ResultCount: &n})
}

func (c *ComplianceLog) OnStatusChanged(ctx context.Context, e *domain.StatusEvent) error {
	return c.write(e.EventBase, Record{OldStatus: string(e.Old), NewStatus: string(e.New)})
}

func (c *ComplianceLog) write(base domain.EventBase, rec Record) error {
	rec.Event = base.Type
	rec.EventID = c.newID()
	rec.Timestamp = base.Timestamp
	rec.PipelineID = base.PipelineID

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", rec.Event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(c.Path(base.PipelineID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open compliance log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append([]byte("---\n"), data...)); err != nil {
		return fmt.Errorf("failed to append %s event: %w", rec.Event, err)
	}
	return nil
}

// ReadComplianceLog decodes every record of a compliance log file.
func ReadComplianceLog(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []Record
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("malformed compliance log %s: %w", path, err)
		}
		records = append(records, rec)
	}
}
