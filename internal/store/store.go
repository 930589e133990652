// Package store persists documents to disk with inter-process locking and
// backup-rename semantics. Every read or write of a managed file happens
// under an exclusive advisory lock on a sidecar "<path>.lck" file.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/log"
)

const (
	// BackupSuffix is appended to the previous file content before a save.
	BackupSuffix = "~"
	// LockSuffix is appended to a path to form its sidecar lock file.
	LockSuffix = ".lck"

	defaultLockTimeout = 10 * time.Second
	defaultRetryDelay  = 50 * time.Millisecond
)

// Store performs lock-guarded document I/O. The zero value is not usable;
// construct with New.
type Store struct {
	lockTimeout time.Duration
	retryDelay  time.Duration
	cache       *docCache
}

// tracer resolves through the global provider on every call so spans pick up
// a provider installed after the store was constructed.
func tracer() trace.Tracer {
	return otel.Tracer("model-organization/store")
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long a single lock acquisition may wait.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithRetryDelay sets the polling interval while waiting for a lock.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Store) { s.retryDelay = d }
}

// WithCache enables a read-through document cache with the given TTL.
// Saves through this store invalidate the cached entry for their path.
func WithCache(ttl time.Duration) Option {
	return func(s *Store) { s.cache = newDocCache(ttl) }
}

// New creates a store with a 10s lock timeout and no cache.
func New(opts ...Option) *Store {
	s := &Store{
		lockTimeout: defaultLockTimeout,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads and decodes the document at path under its lock.
// A missing file surfaces as an error wrapping fs.ErrNotExist; callers that
// treat absence as "empty" check for that. Nothing is cached on failure, so
// retrying the same load is safe.
func (s *Store) Load(ctx context.Context, path string) (*document.Document, error) {
	ctx, span := tracer().Start(ctx, "store.Load",
		trace.WithAttributes(attribute.String("file.path", path)))
	defer span.End()

	if s.cache != nil {
		if doc, ok := s.cache.get(path); ok {
			log.Debug(log.CatCache, "document cache hit", "path", path)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return doc, nil
		}
	}

	var doc *document.Document
	err := s.withLock(ctx, path, func() error {
		data, err := os.ReadFile(path) //nolint:gosec // G304: registry-managed path
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		doc, err = document.Decode(data)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug(log.CatStore, "loaded document", "path", path, "keys", doc.Len())
	if s.cache != nil {
		s.cache.set(path, doc)
	}
	return doc, nil
}

// Save serializes doc to path under its lock, first renaming any existing
// file to path + "~" as a best-effort backup. The parent directory is
// created if absent.
func (s *Store) Save(ctx context.Context, doc *document.Document, path string) error {
	ctx, span := tracer().Start(ctx, "store.Save",
		trace.WithAttributes(attribute.String("file.path", path)))
	defer span.End()

	data, err := document.Encode(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	err = s.withLock(ctx, path, func() error {
		if _, statErr := os.Stat(path); statErr == nil {
			if renameErr := os.Rename(path, path+BackupSuffix); renameErr != nil {
				return fmt.Errorf("backing up %s: %w", path, renameErr)
			}
		}
		if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil { //nolint:gosec // G306: shared config files
			return fmt.Errorf("writing %s: %w", path, writeErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug(log.CatStore, "saved document", "path", path, "bytes", len(data))
	if s.cache != nil {
		s.cache.invalidate(path)
	}
	return nil
}

// InvalidateCache drops any cached copy of path. Used by the watcher when
// another process rewrites a file.
func (s *Store) InvalidateCache(path string) {
	if s.cache != nil {
		s.cache.invalidate(path)
	}
}
