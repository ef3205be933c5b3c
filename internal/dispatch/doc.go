// Package dispatch runs one transform invocation end to end.
//
// An Orchestrator pushes its configuration and the class-loading context to
// the weaver. It decides whether the variant is skipped, clears previous
// outputs on full builds, and hands every archive and directory to the
// reconcilers. It then waits on the executor barrier. Unit failures are
// logged and tolerated unless the configuration is strict.
package dispatch
