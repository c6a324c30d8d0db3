package domain

// Required keys for the structured report gates.
var (
	DeliveryRequiredKeys = []string{"version", "agent_id", "status"}
	ReviewRequiredKeys   = []string{"version", "agent_id", "verdict"}
)

// Keys for the optional wrappers accepted around YAML documents.
const (
	KeyPipelineWrapper = "pipeline"
	KeySlotTypeWrapper = "slot_type"
)
