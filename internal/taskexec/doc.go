// Package taskexec runs transform units on a bounded pool with an explicit
// completion barrier.
//
// Submit never blocks the caller; units queue for one of a bounded number of
// worker slots. AwaitAll joins everything submitted since the previous
// AwaitAll. In fail-fast mode it returns on the first failure and leaves
// in-flight units running. Otherwise it waits for all of them and aggregates
// their failures. An inline executor runs every unit on the caller's
// goroutine and yields the same outcomes as the pool.
package taskexec
