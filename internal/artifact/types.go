package artifact

import "sort"

// ContentType names the kind of content an artifact carries (e.g. CLASSES).
type ContentType string

// Scope names where an artifact came from (e.g. PROJECT, EXTERNAL_LIBRARIES).
type Scope string

// Format is the shape of a resolved output location.
type Format int

const (
	FormatArchive Format = iota
	FormatDirectory
)

func (f Format) String() string {
	if f == FormatDirectory {
		return "directory"
	}
	return "archive"
}

// ArchiveArtifact is one archive file of classes.
type ArchiveArtifact struct {
	Path         string
	ContentTypes []ContentType
	Scopes       []Scope
	Status       Status
}

// DirectoryArtifact is a root directory of loose class files. ChangedFiles is
// only populated, and only authoritative, on incremental runs.
type DirectoryArtifact struct {
	// Name is the identity handed to the output resolver. Path is used when empty.
	Name         string
	Path         string
	ContentTypes []ContentType
	Scopes       []Scope
	ChangedFiles map[string]Status
}

// Identity returns the name used to resolve the directory's output location.
func (d DirectoryArtifact) Identity() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Path
}

// SortedChanges returns the ChangedFiles keys in lexical order.
func (d DirectoryArtifact) SortedChanges() []string {
	paths := make([]string, 0, len(d.ChangedFiles))
	for p := range d.ChangedFiles {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Input is one logical source of artifacts.
type Input struct {
	Archives    []ArchiveArtifact
	Directories []DirectoryArtifact
}

// OutputProvider is the host's output system: it resolves destinations and
// can wipe every previously produced output.
type OutputProvider interface {
	ContentLocation(name string, contentTypes []ContentType, scopes []Scope, format Format) (string, error)
	DeleteAll() error
}

// Invocation is one pipeline run as delivered by the host. It is consumed
// once and discarded.
type Invocation struct {
	Incremental bool
	Inputs      []Input
	// ReferencedInputs are visible on the class path but never transformed.
	ReferencedInputs []Input
	Outputs          OutputProvider
	VariantName      string
}

// UnitKind separates loose-file units from whole-archive units.
type UnitKind int

const (
	FileUnit UnitKind = iota
	ArchiveUnit
)

// WorkUnit is an atomic transform job. SourceBase is only set for file units.
// Re-running a unit with the same fields produces the same destination.
type WorkUnit struct {
	Kind        UnitKind
	Source      string
	Destination string
	SourceBase  string
}
