package loam

// AgentMetadata is the front-matter of an agent prompt file.
// It uses "mapstructure" tags to match the YAML keys.
type AgentMetadata struct {
	AgentID             string   `json:"agent_id" mapstructure:"agent_id"`
	Version             string   `json:"version" mapstructure:"version"`
	Name                string   `json:"name,omitempty" mapstructure:"name"`
	Capabilities        []string `json:"capabilities" mapstructure:"capabilities"`
	CompatibleSlotTypes []string `json:"compatible_slot_types" mapstructure:"compatible_slot_types"`
}
