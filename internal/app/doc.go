// Package app contains the application lifecycle. It wires the HCL loader,
// the output provider, the metrics registry and the dispatch orchestrator
// together for one invocation, independent of the CLI entrypoint.
package app
