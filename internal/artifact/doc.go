// Package artifact models the inputs of one transform invocation: archives
// and directories of compiled classes, their change status relative to the
// previous build, and the single decision function that maps a status to an
// action.
//
// Statuses are only meaningful on incremental runs. On a full build every
// artifact present is processed fully regardless of what its status says.
package artifact
