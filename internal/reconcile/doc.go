// Package reconcile turns one input artifact into file operations and
// executor submissions that bring its destination in line with the source.
//
// Directories are walked on full builds, with each directory level's files
// batched into a single submission. On incremental builds the host's
// per-file status map is followed instead. Archives are never diffed: they
// are copied, deleted, or transformed in full. Every path handled is
// recorded exactly once in the run's artifact.Tally.
package reconcile
