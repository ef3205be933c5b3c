package weaver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/classweave/internal/artifact"
)

// ClassPath is the class-loading context shared by all units of one
// invocation. It is built before the first unit is submitted and never
// modified afterwards.
type ClassPath struct {
	entries []string
	index   map[string]struct{}
}

// NewClassPath collects every archive and directory of the invocation's
// inputs and referenced inputs. Artifacts the host reports as removed on an
// incremental run are left out.
func NewClassPath(inv *artifact.Invocation) *ClassPath {
	cp := &ClassPath{index: make(map[string]struct{})}
	add := func(path string) {
		if path == "" {
			return
		}
		path = filepath.Clean(path)
		if _, dup := cp.index[path]; dup {
			return
		}
		cp.index[path] = struct{}{}
		cp.entries = append(cp.entries, path)
	}
	collect := func(inputs []artifact.Input) {
		for _, in := range inputs {
			for _, a := range in.Archives {
				if inv.Incremental && a.Status == artifact.Removed {
					continue
				}
				add(a.Path)
			}
			for _, d := range in.Directories {
				add(d.Path)
			}
		}
	}
	if inv != nil {
		collect(inv.Inputs)
		collect(inv.ReferencedInputs)
	}
	return cp
}

// Entries returns the class path entries in the order they were added.
func (cp *ClassPath) Entries() []string {
	if cp == nil {
		return nil
	}
	return append([]string(nil), cp.entries...)
}

func (cp *ClassPath) Len() int {
	if cp == nil {
		return 0
	}
	return len(cp.entries)
}

// Contains reports whether path is a class path entry.
func (cp *ClassPath) Contains(path string) bool {
	if cp == nil {
		return false
	}
	_, ok := cp.index[filepath.Clean(path)]
	return ok
}

// LocateDir returns the directory entries that hold className, given as an
// internal name such as "a/b/C". Archive entries are not searched.
func (cp *ClassPath) LocateDir(className string) []string {
	if cp == nil {
		return nil
	}
	rel := filepath.FromSlash(strings.TrimSuffix(className, ".class") + ".class")
	var found []string
	for _, e := range cp.entries {
		if info, err := os.Stat(filepath.Join(e, rel)); err == nil && !info.IsDir() {
			found = append(found, e)
		}
	}
	sort.Strings(found)
	return found
}
