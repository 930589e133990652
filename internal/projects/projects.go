// Package projects maintains the ordered registry of named model
// installations and its on-disk index.
package projects

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/log"
	"github.com/RMShur/model-organization/internal/store"
)

const (
	// IndexFile is the per-config-dir index mapping project name to root.
	IndexFile = "projects.yml"
	// MetaDirName is the metadata directory inside every project root.
	MetaDirName = ".project"
	// RecordFileName is the project's own record inside its metadata dir.
	RecordFileName = ".project.yml"
)

var (
	// ErrUnknownProject is returned for lookups of unregistered names.
	ErrUnknownProject = errors.New("unknown project")
	// ErrMissingRoot is returned when a project record lacks the mandatory
	// root key.
	ErrMissingRoot = errors.New("project record has no root key")
)

// Registry is an ordered mapping from project name to project record.
// Records are loaded eagerly on construction; a project listed in the index
// whose record cannot be read fails the whole load (fail-fast, matching the
// historical behavior; experiments load lazily instead).
type Registry struct {
	confDir string
	store   *store.Store
	names   []string
	records map[string]*document.Document
	roots   map[string]string // name -> root, including records never realized
}

// MetaDir returns the metadata directory for a project root.
func MetaDir(root string) string {
	return filepath.Join(root, MetaDirName)
}

// RecordPath returns the path of a project's own record file.
func RecordPath(root string) string {
	return filepath.Join(MetaDir(root), RecordFileName)
}

// Load builds the registry for confDir: reads the index and eagerly loads
// every listed project record. A missing index bootstraps an empty registry.
func Load(ctx context.Context, confDir string, st *store.Store) (*Registry, error) {
	r := &Registry{
		confDir: confDir,
		store:   st,
		records: make(map[string]*document.Document),
		roots:   make(map[string]string),
	}

	index, err := st.Load(ctx, r.IndexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug(log.CatProjects, "no projects index, starting empty", "path", r.IndexPath())
			return r, nil
		}
		return nil, err
	}

	for _, name := range index.Keys() {
		root, ok := index.String(name)
		if !ok {
			return nil, fmt.Errorf("projects index entry %q is not a path string", name)
		}
		record, err := st.Load(ctx, RecordPath(root))
		if err != nil {
			return nil, fmt.Errorf("loading project %q: %w", name, err)
		}
		r.names = append(r.names, name)
		r.records[name] = record
		r.roots[name] = root
	}
	log.Info(log.CatProjects, "loaded projects", "count", len(r.names))
	return r, nil
}

// NewWithRecords builds an in-memory registry from explicit records without
// touching the project directories. The index file is still consulted so
// previously known roots survive a save.
func NewWithRecords(ctx context.Context, confDir string, st *store.Store, records *document.Document) (*Registry, error) {
	r := &Registry{
		confDir: confDir,
		store:   st,
		records: make(map[string]*document.Document),
		roots:   make(map[string]string),
	}

	index, err := st.Load(ctx, r.IndexPath())
	if err == nil {
		for _, name := range index.Keys() {
			if root, ok := index.String(name); ok {
				r.roots[name] = root
			}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	for _, name := range records.Keys() {
		record, ok := records.Mapping(name)
		if !ok {
			return nil, fmt.Errorf("project %q: record is not a mapping", name)
		}
		if err := r.Register(name, record); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IndexPath returns the location of projects.yml.
func (r *Registry) IndexPath() string {
	return filepath.Join(r.confDir, IndexFile)
}

// ConfDir returns the configuration directory the registry belongs to.
func (r *Registry) ConfDir() string {
	return r.confDir
}

// Names returns the project names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len returns the number of registered projects.
func (r *Registry) Len() int {
	return len(r.names)
}

// Get returns the record for name.
func (r *Registry) Get(name string) (*document.Document, error) {
	record, ok := r.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, name)
	}
	return record, nil
}

// ProjectRoot resolves a project name to its root directory, satisfying
// relpath.RootResolver. Unrealized projects resolve through the index.
func (r *Registry) ProjectRoot(name string) (string, error) {
	if record, ok := r.records[name]; ok {
		if root, ok := record.String("root"); ok {
			return root, nil
		}
		return "", fmt.Errorf("%w: project %q", ErrMissingRoot, name)
	}
	if root, ok := r.roots[name]; ok {
		return root, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProject, name)
}

// Register adds or replaces a project record. The record must carry an
// absolute root path.
func (r *Registry) Register(name string, record *document.Document) error {
	root, ok := record.String("root")
	if !ok {
		return fmt.Errorf("%w: project %q", ErrMissingRoot, name)
	}
	if !filepath.IsAbs(root) {
		return fmt.Errorf("project %q: root %q is not absolute", name, root)
	}
	known := false
	for _, n := range r.names {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		r.names = append(r.names, name)
	}
	r.records[name] = record
	r.roots[name] = root
	return nil
}

// Remove drops a project from the registry and the in-memory index. Files
// under the project root are left alone.
func (r *Registry) Remove(name string) error {
	if _, ok := r.records[name]; !ok {
		if _, known := r.roots[name]; !known {
			return fmt.Errorf("%w: %q", ErrUnknownProject, name)
		}
	}
	delete(r.records, name)
	delete(r.roots, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return nil
}

// Save writes every realized record to its <root>/.project/.project.yml and
// rewrites the index. Names known only from a previous index keep their
// recorded root, so the index stays a superset of every known project.
func (r *Registry) Save(ctx context.Context) error {
	index := document.New()

	for _, name := range r.names {
		record, ok := r.records[name]
		if !ok {
			continue
		}
		root, ok := record.String("root")
		if !ok {
			return fmt.Errorf("%w: project %q", ErrMissingRoot, name)
		}
		if err := r.store.Save(ctx, record, RecordPath(root)); err != nil {
			return fmt.Errorf("saving project %q: %w", name, err)
		}
		index.Set(name, root)
	}

	// Roots remembered from the index but absent from the live mapping.
	for name, root := range r.roots {
		if !index.Has(name) {
			index.Set(name, root)
		}
	}

	if err := r.store.Save(ctx, index, r.IndexPath()); err != nil {
		return fmt.Errorf("saving projects index: %w", err)
	}
	log.Info(log.CatProjects, "saved projects", "count", index.Len())
	return nil
}
