/*
Package ports defines the driven ports (interfaces) of the gantry engine.

These interfaces decouple the runner from where pipeline definitions, slot types
and agent descriptions come from, so the same core works with YAML files, Loam
repositories or in-memory fixtures.

# Key Interfaces

  - PipelineLoader: loads a pipeline definition and resolves its parameters.
  - SlotTypeRegistry: answers which slot types exist.
  - AgentCatalog: lists the agents available to fill slots.
*/
package ports
