// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level exit codes. It translates CLI flags
// into the application's configuration.
package cli
