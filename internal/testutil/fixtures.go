// Package testutil scaffolds configuration directories for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/projects"
	"github.com/RMShur/model-organization/internal/store"
)

// ConfigDir is a temporary configuration directory with registered projects,
// written through the same store the code under test uses.
type ConfigDir struct {
	t     *testing.T
	Dir   string
	Store *store.Store
}

// NewConfigDir creates an empty configuration directory.
func NewConfigDir(t *testing.T) *ConfigDir {
	t.Helper()
	return &ConfigDir{t: t, Dir: t.TempDir(), Store: store.New()}
}

// AddProject registers a project with a fresh root directory, writes its
// record file, and extends projects.yml. Returns the project root.
func (c *ConfigDir) AddProject(name string, extra ...any) string {
	c.t.Helper()
	ctx := context.Background()
	root := filepath.Join(c.t.TempDir(), name)

	record := document.FromPairs(append([]any{"root", root}, extra...)...)
	require.NoError(c.t, c.Store.Save(ctx, record, projects.RecordPath(root)))

	indexPath := filepath.Join(c.Dir, projects.IndexFile)
	index, err := c.Store.Load(ctx, indexPath)
	if err != nil {
		index = document.New()
	}
	index.Set(name, root)
	require.NoError(c.t, c.Store.Save(ctx, index, indexPath))
	return root
}

// WriteExperiment drops an experiment file into a project's metadata
// directory without going through a registry, as an external process would.
func (c *ConfigDir) WriteExperiment(root, name string, doc *document.Document) string {
	c.t.Helper()
	path := filepath.Join(root, ".project", name+".yml")
	require.NoError(c.t, c.Store.Save(context.Background(), doc, path))
	return path
}

// Projects loads a projects registry over the directory.
func (c *ConfigDir) Projects() *projects.Registry {
	c.t.Helper()
	registry, err := projects.Load(context.Background(), c.Dir, c.Store)
	require.NoError(c.t, err)
	return registry
}
