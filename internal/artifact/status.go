package artifact

import (
	"fmt"
	"strings"
)

// Status is the change status of an artifact relative to the previous build,
// as reported by the host.
type Status int

const (
	NotChanged Status = iota
	Added
	Changed
	Removed
)

var statusNames = map[Status]string{
	NotChanged: "notchanged",
	Added:      "added",
	Changed:    "changed",
	Removed:    "removed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus converts a host status string to a Status. Matching ignores
// case, underscores and dashes, so "NOT_CHANGED" and "notchanged" are equal.
// An empty string means NotChanged.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(s)))
	if norm == "" {
		return NotChanged, nil
	}
	for st, name := range statusNames {
		if name == norm {
			return st, nil
		}
	}
	return NotChanged, fmt.Errorf("unknown artifact status %q", s)
}

// Action is what the pipeline does with one artifact.
type Action int

const (
	Noop Action = iota
	ProcessFully
	Delete
)

func (a Action) String() string {
	switch a {
	case Noop:
		return "noop"
	case ProcessFully:
		return "process"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Decide maps a status to an action. When incremental is false the status is
// ignored and every artifact is processed fully.
//
// Delete only expresses intent: removing a destination that does not exist
// is a no-op for the caller, not an error.
func Decide(status Status, incremental bool) Action {
	if !incremental {
		return ProcessFully
	}
	switch status {
	case Added, Changed:
		return ProcessFully
	case Removed:
		return Delete
	default:
		return Noop
	}
}
