package domain

// GateType identifies how a Gate is evaluated.
type GateType string

const (
	GateFileExists    GateType = "file_exists"
	GateSlotCompleted GateType = "slot_completed"
	GateApproval      GateType = "approval"
	GateArtifactValid GateType = "artifact_valid"
	GateDeliveryValid GateType = "delivery_valid"
	GateReviewValid   GateType = "review_valid"
	GateTestsPass     GateType = "tests_pass"
	GateCustom        GateType = "custom"
)

// Artifact type and validation level defaults applied by loaders.
const (
	DefaultArtifactType    = "slot_output"
	DefaultValidationLevel = "exists"
)

// ExternalSource marks an ArtifactRef that is not produced by any slot.
const ExternalSource = "external"

// Parameter is a user-supplied value used to instantiate a pipeline template.
type Parameter struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Type        string `json:"type" yaml:"type" mapstructure:"type"` // string | int | bool | list
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
}

// ArtifactRef references an input artifact produced upstream.
type ArtifactRef struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	FromSlot string `json:"from_slot" yaml:"from_slot" mapstructure:"from_slot"`
	Artifact string `json:"artifact" yaml:"artifact" mapstructure:"artifact"`
	Required bool   `json:"required" yaml:"required" mapstructure:"required"`
}

// ArtifactOutput declares an artifact a slot produces.
type ArtifactOutput struct {
	Name       string `json:"name" yaml:"name" mapstructure:"name"`
	Type       string `json:"type" yaml:"type" mapstructure:"type"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
	Validation string `json:"validation" yaml:"validation" mapstructure:"validation"`
}

// Gate is a named pre- or post-condition on a slot.
type Gate struct {
	Check  string   `json:"check" yaml:"check" mapstructure:"check"`
	Type   GateType `json:"type" yaml:"type" mapstructure:"type"`
	Target string   `json:"target" yaml:"target" mapstructure:"target"`
}

// DataFlowEdge connects a producer slot's output to a consumer slot.
type DataFlowEdge struct {
	FromSlot string `json:"from_slot" yaml:"from_slot" mapstructure:"from_slot"`
	ToSlot   string `json:"to_slot" yaml:"to_slot" mapstructure:"to_slot"`
	Artifact string `json:"artifact" yaml:"artifact" mapstructure:"artifact"`
	Required bool   `json:"required" yaml:"required" mapstructure:"required"`
}

// SlotTask describes what the agent filling a slot must accomplish.
type SlotTask struct {
	Objective    string   `json:"objective" yaml:"objective" mapstructure:"objective"`
	ContextFiles []string `json:"context_files,omitempty" yaml:"context_files,omitempty" mapstructure:"context_files"`
	Deliverables []string `json:"deliverables,omitempty" yaml:"deliverables,omitempty" mapstructure:"deliverables"`
	Constraints  []string `json:"constraints,omitempty" yaml:"constraints,omitempty" mapstructure:"constraints"`
	KPIs         []string `json:"kpis,omitempty" yaml:"kpis,omitempty" mapstructure:"kpis"`
}

// ExecutionConfig holds execution constraints for a slot.
// Retry settings are recorded for drivers; the engine never retries on its own.
type ExecutionConfig struct {
	TimeoutHours  float64 `json:"timeout_hours" yaml:"timeout_hours" mapstructure:"timeout_hours"`
	RetryOnFail   bool    `json:"retry_on_fail" yaml:"retry_on_fail" mapstructure:"retry_on_fail"`
	MaxRetries    int     `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	ParallelGroup string  `json:"parallel_group,omitempty" yaml:"parallel_group,omitempty" mapstructure:"parallel_group"`
}

// DefaultExecutionConfig returns the execution settings used when a slot declares none.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		TimeoutHours: 4,
		RetryOnFail:  true,
		MaxRetries:   2,
	}
}

// Slot is a typed unit of work in the pipeline DAG.
type Slot struct {
	ID             string           `json:"id" yaml:"id" mapstructure:"id"`
	Type           string           `json:"slot_type" yaml:"slot_type" mapstructure:"slot_type"`
	Name           string           `json:"name" yaml:"name" mapstructure:"name"`
	Inputs         []ArtifactRef    `json:"inputs,omitempty" yaml:"inputs,omitempty" mapstructure:"inputs"`
	Outputs        []ArtifactOutput `json:"outputs,omitempty" yaml:"outputs,omitempty" mapstructure:"outputs"`
	PreConditions  []Gate           `json:"pre_conditions,omitempty" yaml:"pre_conditions,omitempty" mapstructure:"pre_conditions"`
	PostConditions []Gate           `json:"post_conditions,omitempty" yaml:"post_conditions,omitempty" mapstructure:"post_conditions"`
	DependsOn      []string         `json:"depends_on,omitempty" yaml:"depends_on,omitempty" mapstructure:"depends_on"`
	Task           *SlotTask        `json:"task,omitempty" yaml:"task,omitempty" mapstructure:"task"`
	Execution      ExecutionConfig  `json:"execution" yaml:"execution" mapstructure:"execution"`
}

// HasOutput reports whether the slot declares an output with the given name.
func (s Slot) HasOutput(name string) bool {
	for _, o := range s.Outputs {
		if o.Name == name {
			return true
		}
	}
	return false
}

// Pipeline is the immutable definition of a run.
type Pipeline struct {
	ID          string         `json:"id" yaml:"id" mapstructure:"id"`
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Version     string         `json:"version" yaml:"version" mapstructure:"version"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	CreatedBy   string         `json:"created_by" yaml:"created_by" mapstructure:"created_by"`
	CreatedAt   string         `json:"created_at" yaml:"created_at" mapstructure:"created_at"`
	Parameters  []Parameter    `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
	Slots       []Slot         `json:"slots" yaml:"slots" mapstructure:"slots"`
	DataFlow    []DataFlowEdge `json:"data_flow,omitempty" yaml:"data_flow,omitempty" mapstructure:"data_flow"`

	// ResolvedParameters holds the values substituted by a loader's Resolve.
	// It is nil for an unresolved template.
	ResolvedParameters map[string]any `json:"-" yaml:"-" mapstructure:"-"`
}

// Slot looks up a slot by id.
func (p Pipeline) Slot(id string) (Slot, bool) {
	for _, s := range p.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// SlotIDs returns the slot ids in declaration order.
func (p Pipeline) SlotIDs() []string {
	ids := make([]string, len(p.Slots))
	for i, s := range p.Slots {
		ids[i] = s.ID
	}
	return ids
}

// SlotType is the interface contract a slot's type refers to.
type SlotType struct {
	ID                   string         `json:"id" yaml:"id" mapstructure:"id"`
	Name                 string         `json:"name" yaml:"name" mapstructure:"name"`
	Category             string         `json:"category" yaml:"category" mapstructure:"category"`
	Description          string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	InputSchema          map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty" mapstructure:"input_schema"`
	OutputSchema         map[string]any `json:"output_schema,omitempty" yaml:"output_schema,omitempty" mapstructure:"output_schema"`
	RequiredCapabilities []string       `json:"required_capabilities,omitempty" yaml:"required_capabilities,omitempty" mapstructure:"required_capabilities"`
	Constraints          []string       `json:"constraints,omitempty" yaml:"constraints,omitempty" mapstructure:"constraints"`
}

// Agent describes the capabilities an agent advertises.
type Agent struct {
	ID                  string   `json:"agent_id" yaml:"agent_id"`
	Version             string   `json:"version" yaml:"version"`
	Capabilities        []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	CompatibleSlotTypes []string `json:"compatible_slot_types,omitempty" yaml:"compatible_slot_types,omitempty"`
	PromptPath          string   `json:"prompt_path" yaml:"prompt_path"`
}

// CapabilityMatch is the outcome of matching an agent against a slot type.
type CapabilityMatch struct {
	AgentID    string   `json:"agent_id" yaml:"agent_id"`
	PromptPath string   `json:"prompt_path" yaml:"prompt_path"`
	Matched    []string `json:"matched_capabilities" yaml:"matched_capabilities"`
	Missing    []string `json:"missing_capabilities" yaml:"missing_capabilities"`
	Compatible bool     `json:"is_compatible" yaml:"is_compatible"`
}

// ManifestEntry lists a slot and the capabilities needed to fill it.
type ManifestEntry struct {
	SlotID               string   `json:"slot_id" yaml:"slot_id"`
	SlotType             string   `json:"slot_type" yaml:"slot_type"`
	SlotName             string   `json:"slot_name" yaml:"slot_name"`
	RequiredCapabilities []string `json:"required_capabilities" yaml:"required_capabilities"`
}

// SlotManifest lists every slot of a pipeline for staffing.
type SlotManifest struct {
	PipelineID string          `json:"pipeline_id" yaml:"pipeline_id"`
	Slots      []ManifestEntry `json:"slots" yaml:"slots"`
}
