package experiments

import (
	"time"

	"github.com/RMShur/model-organization/internal/document"
)

// Archive marks a retired experiment. It replaces the experiment's document
// in the registry while keeping the name resolvable; the full configuration
// is no longer retained. Archives are immutable values constructed fresh per
// experiment.
type Archive struct {
	// Label identifies where the experiment went, typically the name of the
	// archive file it was packed into.
	Label string
	// Project is the owning project's name.
	Project string
	// Time is when the experiment was archived.
	Time time.Time
}

// NewArchive creates an archive marker stamped with the current time.
func NewArchive(label, project string) Archive {
	return Archive{Label: label, Project: project, Time: time.Now().UTC().Truncate(time.Second)}
}

// toDocument renders the marker for the master index. Unlike a plain string
// this shape survives a reload with project and time intact.
func (a Archive) toDocument() *document.Document {
	return document.FromPairs(
		"archived", a.Label,
		"project", a.Project,
		"time", a.Time.UTC().Format(time.RFC3339),
	)
}

// archiveFromDocument reconstructs a marker from an index entry. Returns
// false when the mapping is not an archive marker.
func archiveFromDocument(doc *document.Document) (Archive, bool) {
	label, ok := doc.String("archived")
	if !ok {
		return Archive{}, false
	}
	a := Archive{Label: label}
	a.Project, _ = doc.String("project")
	if ts, ok := doc.String("time"); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			a.Time = parsed
		}
	}
	return a, true
}
