/*
Package domain contains the core domain models of the gantry pipeline engine.

It defines the immutable pipeline definition (Pipeline, Slot, Gate, DataFlowEdge),
the durable run record (PipelineState, SlotState, GateCheckResult), the lifecycle
events delivered to observers, and the error taxonomy shared by every component.
The package is free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Pipeline: a DAG of typed slots plus data-flow edges between them.
  - Slot: a unit of work guarded by pre- and post-condition gates.
  - PipelineState: the authoritative status of every slot in one run.
  - Observer: receives run lifecycle notifications.
*/
package domain
