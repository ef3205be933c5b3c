package dispatch

import "fmt"

// State is a step of one invocation.
type State int

const (
	Init State = iota
	Configuring
	SkipDecision
	Cleanup
	Dispatching
	Barrier
	Done
	Failed
)

var stateNames = [...]string{
	Init:         "init",
	Configuring:  "configuring",
	SkipDecision: "skip-decision",
	Cleanup:      "cleanup",
	Dispatching:  "dispatch",
	Barrier:      "barrier",
	Done:         "done",
	Failed:       "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
