package experiments

import "github.com/RMShur/model-organization/internal/document"

// State describes what an experiment name currently holds.
type State int

const (
	// StateUnloaded means the entry is a pending file reference that has not
	// been read yet.
	StateUnloaded State = iota
	// StateLoaded means the entry holds a realized document.
	StateLoaded
	// StateArchived means the entry holds an archive marker.
	StateArchived
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// entry is the tagged variant stored per experiment name: exactly one of
// path (unloaded), doc (loaded) or archive (archived) is meaningful,
// selected by state.
type entry struct {
	state   State
	path    string
	doc     *document.Document
	archive Archive
}
