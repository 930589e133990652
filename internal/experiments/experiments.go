// Package experiments maintains the registry of named experiment
// configurations, realized lazily from per-project metadata directories.
package experiments

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/log"
	"github.com/RMShur/model-organization/internal/projects"
	"github.com/RMShur/model-organization/internal/pubsub"
	"github.com/RMShur/model-organization/internal/relpath"
	"github.com/RMShur/model-organization/internal/store"
)

// IndexFile is the master index summarizing every known experiment.
const IndexFile = "experiments.yml"

var (
	// ErrUnknownExperiment is returned for lookups of unregistered names.
	ErrUnknownExperiment = errors.New("unknown experiment")
	// ErrArchived is returned when a realized document is requested for an
	// experiment that has been archived.
	ErrArchived = errors.New("experiment is archived")
	// ErrMissingProject is returned when an experiment document lacks the
	// mandatory project key.
	ErrMissingProject = errors.New("experiment document has no project key")
)

// Registry is an ordered mapping from experiment name to a tagged entry:
// a pending file reference, a realized document, or an archive marker.
// Names are unique across the whole registry, not per project.
type Registry struct {
	projects   *projects.Registry // non-owning, resolves project roots
	store      *store.Store
	names      []string
	entries    map[string]*entry
	projectMap map[string][]string
	broker     *pubsub.Broker[string]
}

// RecordPath returns where an experiment document is persisted.
func RecordPath(root, name string) string {
	return filepath.Join(projects.MetaDir(root), name+".yml")
}

// Load builds the registry: the master index first (preserving its order),
// then a scan of every project's metadata directory for experiment files not
// already represented, recorded as pending references. A missing index
// bootstraps from the scan alone.
func Load(ctx context.Context, proj *projects.Registry, st *store.Store) (*Registry, error) {
	r := &Registry{
		projects:   proj,
		store:      st,
		entries:    make(map[string]*entry),
		projectMap: make(map[string][]string),
		broker:     pubsub.NewBroker[string](),
	}

	index, err := st.Load(ctx, r.IndexPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		for _, name := range index.Keys() {
			value, _ := index.Get(name)
			if marker, ok := value.(*document.Document); ok {
				if archive, ok := archiveFromDocument(marker); ok {
					r.names = append(r.names, name)
					r.entries[name] = &entry{state: StateArchived, archive: archive}
					continue
				}
			}
			// Active experiment: the file path is filled in by the scan.
			r.names = append(r.names, name)
			r.entries[name] = &entry{state: StateUnloaded}
		}
	}

	if err := r.scan(); err != nil {
		return nil, err
	}
	r.refreshProjectMap()
	log.Info(log.CatExperiments, "loaded experiments", "count", len(r.names))
	return r, nil
}

// scan walks every project's metadata directory and records experiment files
// as pending references, skipping the project's own record file and any name
// already archived.
func (r *Registry) scan() error {
	for _, project := range r.projects.Names() {
		root, err := r.projects.ProjectRoot(project)
		if err != nil {
			return err
		}
		matches, err := filepath.Glob(filepath.Join(projects.MetaDir(root), "*.yml"))
		if err != nil {
			return fmt.Errorf("scanning project %q: %w", project, err)
		}
		for _, match := range matches {
			base := filepath.Base(match)
			if base == projects.RecordFileName {
				continue
			}
			name := strings.TrimSuffix(base, ".yml")
			if existing, ok := r.entries[name]; ok {
				if existing.state == StateArchived {
					continue
				}
				existing.path = match
			} else {
				r.names = append(r.names, name)
				r.entries[name] = &entry{state: StateUnloaded, path: match}
			}
			r.appendToProjectMap(project, name)
		}
	}
	return nil
}

// IndexPath returns the location of experiments.yml.
func (r *Registry) IndexPath() string {
	return filepath.Join(r.projects.ConfDir(), IndexFile)
}

// Events exposes realized/archived/saved notifications.
func (r *Registry) Events() pubsub.Subscriber[string] {
	return r.broker
}

// Close shuts down the event broker.
func (r *Registry) Close() {
	r.broker.Close()
}

// Names returns the experiment names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len returns the number of known experiments.
func (r *Registry) Len() int {
	return len(r.names)
}

// Status reports what an experiment name currently holds.
func (r *Registry) Status(name string) (State, error) {
	e, ok := r.entries[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownExperiment, name)
	}
	return e.state, nil
}

// Archived returns the archive marker for name, if it has one.
func (r *Registry) Archived(name string) (Archive, bool) {
	e, ok := r.entries[name]
	if !ok || e.state != StateArchived {
		return Archive{}, false
	}
	return e.archive, true
}

// Realize returns the document for name, loading and caching it on first
// access. Loaded documents have their path keys rewritten to absolute form.
// A failed load leaves the entry unrealized, so the next access retries.
func (r *Registry) Realize(ctx context.Context, name string) (*document.Document, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExperiment, name)
	}
	switch e.state {
	case StateLoaded:
		return e.doc, nil
	case StateArchived:
		return nil, fmt.Errorf("%w: %q", ErrArchived, name)
	}

	if e.path == "" {
		return nil, fmt.Errorf("experiment %q: no file on disk and not archived", name)
	}
	doc, err := r.store.Load(ctx, e.path)
	if err != nil {
		return nil, fmt.Errorf("realizing experiment %q: %w", name, err)
	}
	root, err := relpath.ResolveRoot(doc, "", r.projects)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", name, err)
	}
	relpath.Normalize(doc, root)

	e.state = StateLoaded
	e.doc = doc
	e.path = ""
	r.refreshProjectMap()
	r.broker.Publish(pubsub.RealizedEvent, name)
	log.Debug(log.CatExperiments, "realized experiment", "name", name)
	return doc, nil
}

// Set registers or replaces an experiment document. The document must name
// a known project.
func (r *Registry) Set(name string, doc *document.Document) error {
	project, ok := doc.String("project")
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingProject, name)
	}
	if _, err := r.projects.ProjectRoot(project); err != nil {
		return fmt.Errorf("experiment %q: %w", name, err)
	}

	if _, exists := r.entries[name]; !exists {
		r.names = append(r.names, name)
	}
	r.entries[name] = &entry{state: StateLoaded, doc: doc}
	r.refreshProjectMap()
	return nil
}

// SetArchive replaces an experiment's value with an archive marker. The
// project map is refreshed before the entry changes so the name is folded in
// under its project even if it was never realized in this process.
func (r *Registry) SetArchive(name string, archive Archive) error {
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExperiment, name)
	}
	r.refreshProjectMap()
	if archive.Project != "" {
		r.appendToProjectMap(archive.Project, name)
	}

	*e = entry{state: StateArchived, archive: archive}
	r.broker.Publish(pubsub.ArchivedEvent, name)
	log.Info(log.CatExperiments, "archived experiment", "name", name, "label", archive.Label)
	return nil
}

// ProjectMap returns the derived project -> experiment names mapping. The
// recomputation is explicit here (and at archive assignment) rather than a
// hidden side effect of reads; the returned map is a copy.
func (r *Registry) ProjectMap() map[string][]string {
	r.refreshProjectMap()
	out := make(map[string][]string, len(r.projectMap))
	for project, names := range r.projectMap {
		copied := make([]string, len(names))
		copy(copied, names)
		out[project] = copied
	}
	return out
}

// refreshProjectMap folds every entry whose project is known (realized
// documents and archive markers) into the project map. Entries discovered by
// the scan were folded in at scan time.
func (r *Registry) refreshProjectMap() {
	for _, name := range r.names {
		e := r.entries[name]
		switch e.state {
		case StateLoaded:
			if project, ok := e.doc.String("project"); ok {
				r.appendToProjectMap(project, name)
			}
		case StateArchived:
			if e.archive.Project != "" {
				r.appendToProjectMap(e.archive.Project, name)
			}
		}
	}
}

func (r *Registry) appendToProjectMap(project, name string) {
	for _, existing := range r.projectMap[project] {
		if existing == name {
			return
		}
	}
	r.projectMap[project] = append(r.projectMap[project], name)
}

// Load realizes every pending reference and returns the registry.
func (r *Registry) Load(ctx context.Context) (*Registry, error) {
	for _, name := range r.Names() {
		e := r.entries[name]
		if e.state != StateUnloaded {
			continue
		}
		if _, err := r.Realize(ctx, name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Save persists every realized document to its project's metadata directory
// with paths denormalized in place, then rewrites the master index mapping
// each name to null (active) or its archive marker.
func (r *Registry) Save(ctx context.Context) error {
	for _, name := range r.names {
		e := r.entries[name]
		if e.state != StateLoaded {
			continue
		}
		project, ok := e.doc.String("project")
		if !ok {
			return fmt.Errorf("%w: %q", ErrMissingProject, name)
		}
		root, err := r.projects.ProjectRoot(project)
		if err != nil {
			return fmt.Errorf("experiment %q: %w", name, err)
		}
		if err := relpath.Denormalize(e.doc, root); err != nil {
			return fmt.Errorf("experiment %q: %w", name, err)
		}
		if err := r.store.Save(ctx, e.doc, RecordPath(root, name)); err != nil {
			return fmt.Errorf("saving experiment %q: %w", name, err)
		}
	}

	index := document.New()
	for _, name := range r.names {
		e := r.entries[name]
		if e.state == StateArchived {
			index.Set(name, e.archive.toDocument())
		} else {
			index.Set(name, nil)
		}
	}
	if err := r.store.Save(ctx, index, r.IndexPath()); err != nil {
		return fmt.Errorf("saving experiments index: %w", err)
	}

	r.broker.Publish(pubsub.SavedEvent, IndexFile)
	log.Info(log.CatExperiments, "saved experiments", "count", index.Len())
	return nil
}
