// Package organizer composes the projects registry, the experiments
// registry and the global settings document into one per-application
// configuration root.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/experiments"
	"github.com/RMShur/model-organization/internal/log"
	"github.com/RMShur/model-organization/internal/projects"
	"github.com/RMShur/model-organization/internal/store"
)

// GlobalsFile holds the free-form global settings document. No path
// rewriting is applied to it.
const GlobalsFile = "globals.yml"

// Config is the configuration root for one application. It exclusively owns
// its registries; the experiments registry keeps a back-reference to the
// projects registry for root resolution.
type Config struct {
	Name        string
	ConfDir     string
	Projects    *projects.Registry
	Experiments *experiments.Registry
	Globals     *document.Document

	store *store.Store
}

// Option configures construction.
type Option func(*options)

type options struct {
	store *store.Store
}

// WithStore substitutes the store used for all document I/O.
func WithStore(st *store.Store) Option {
	return func(o *options) { o.store = st }
}

// New resolves the configuration directory for name (creating it if absent)
// and loads projects, experiments and globals. Missing files bootstrap
// silently to empty state.
func New(ctx context.Context, name string, opts ...Option) (*Config, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = store.New()
	}

	confDir, err := ConfigDir(name)
	if err != nil {
		return nil, err
	}

	proj, err := projects.Load(ctx, confDir, o.store)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	exps, err := experiments.Load(ctx, proj, o.store)
	if err != nil {
		return nil, fmt.Errorf("loading experiments: %w", err)
	}

	globals, err := o.store.Load(ctx, filepath.Join(confDir, GlobalsFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading globals: %w", err)
		}
		globals = document.New()
	}

	log.Info(log.CatConfig, "configuration loaded",
		"app", name, "dir", confDir,
		"projects", proj.Len(), "experiments", exps.Len())

	return &Config{
		Name:        name,
		ConfDir:     confDir,
		Projects:    proj,
		Experiments: exps,
		Globals:     globals,
		store:       o.store,
	}, nil
}

// GlobalsPath returns the location of globals.yml.
func (c *Config) GlobalsPath() string {
	return filepath.Join(c.ConfDir, GlobalsFile)
}

// Store returns the document store shared by the registries.
func (c *Config) Store() *store.Store {
	return c.store
}

// Save persists projects, then experiments, then globals. There is no
// cross-file transaction; each file is individually lock-guarded and a crash
// mid-sequence leaves the earlier files updated.
func (c *Config) Save(ctx context.Context) error {
	if err := c.Projects.Save(ctx); err != nil {
		return err
	}
	if err := c.Experiments.Save(ctx); err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.Globals, c.GlobalsPath()); err != nil {
		return fmt.Errorf("saving globals: %w", err)
	}
	return nil
}

// Close releases in-process resources (event subscriptions). It does not
// save.
func (c *Config) Close() {
	c.Experiments.Close()
}
