package artifact

import (
	"fmt"
	"sync"
)

// Disposition is the outcome chosen for one artifact or file.
type Disposition int

const (
	Skipped Disposition = iota
	Copied
	Transformed
	Deleted
)

func (d Disposition) String() string {
	switch d {
	case Skipped:
		return "skipped"
	case Copied:
		return "copied"
	case Transformed:
		return "transformed"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("Disposition(%d)", int(d))
	}
}

// Tally records the disposition chosen for every path seen by a run. A path
// recorded twice is kept as a conflict.
type Tally struct {
	mu        sync.Mutex
	byPath    map[string]Disposition
	conflicts []string
}

func NewTally() *Tally {
	return &Tally{byPath: make(map[string]Disposition)}
}

// Record stores d for path. It returns false if path already had one.
func (t *Tally) Record(path string, d Disposition) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.byPath[path]; ok {
		t.conflicts = append(t.conflicts, fmt.Sprintf("%s: %s then %s", path, prev, d))
		return false
	}
	t.byPath[path] = d
	return true
}

// Of returns the disposition recorded for path.
func (t *Tally) Of(path string) (Disposition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.byPath[path]
	return d, ok
}

// Counts returns how many paths received each disposition.
func (t *Tally) Counts() map[Disposition]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Disposition]int, 4)
	for _, d := range t.byPath {
		out[d]++
	}
	return out
}

func (t *Tally) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byPath)
}

// Conflicts lists paths that were given more than one disposition.
func (t *Tally) Conflicts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.conflicts...)
}
