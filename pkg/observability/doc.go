/*
Package observability provides observers for monitoring a pipeline run.

It includes a compliance log that appends every event to a YAML audit trail,
Prometheus metrics for slot, gate and pipeline outcomes, and structured log
hooks for the CLI's verbose mode.
*/
package observability
