// Package relpath rewrites the path-bearing keys of a document between
// absolute and project-root-relative forms.
package relpath

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/RMShur/model-organization/internal/document"
)

// pathKeys is the closed set of document keys whose values are treated as
// filesystem paths. The set applies at every nesting depth.
var pathKeys = map[string]struct{}{
	"expdir":         {},
	"src":            {},
	"data":           {},
	"input":          {},
	"outdata":        {},
	"outdir":         {},
	"plot_output":    {},
	"project_output": {},
}

// ErrNoRoot is returned when a document carries neither a resolvable
// `project` nor a `root` key and no explicit root was supplied.
var ErrNoRoot = errors.New("no root path: document has neither project nor root")

// RootResolver maps a project name to its root directory. The experiments
// registry satisfies this through its back-reference to the projects
// registry.
type RootResolver interface {
	ProjectRoot(name string) (string, error)
}

// IsPathKey reports whether key belongs to the rewritten set.
func IsPathKey(key string) bool {
	_, ok := pathKeys[key]
	return ok
}

// ResolveRoot determines the root directory for doc. An explicit root wins;
// otherwise a `project` key is resolved through the resolver, then a `root`
// key is used directly. Fails with ErrNoRoot when nothing applies.
func ResolveRoot(doc *document.Document, root string, resolver RootResolver) (string, error) {
	if root != "" {
		return root, nil
	}
	if project, ok := doc.String("project"); ok && resolver != nil {
		resolved, err := resolver.ProjectRoot(project)
		if err != nil {
			return "", fmt.Errorf("resolving root of project %q: %w", project, err)
		}
		return resolved, nil
	}
	if r, ok := doc.String("root"); ok {
		return r, nil
	}
	return "", ErrNoRoot
}

// Normalize rewrites every relative path value under a path key to an
// absolute path joined against root. The document is mutated in place.
// Values that are already absolute are left untouched, which makes the
// operation idempotent.
func Normalize(doc *document.Document, root string) {
	visit(doc, func(value string) (string, error) {
		if filepath.IsAbs(value) {
			return value, nil
		}
		return filepath.Join(root, value), nil
	})
}

// Denormalize rewrites every absolute path value under a path key to a path
// relative to root, mutating the document in place. Already-relative values
// are left untouched. Returns an error when a path cannot be expressed
// relative to root.
func Denormalize(doc *document.Document, root string) error {
	var firstErr error
	visit(doc, func(value string) (string, error) {
		if !filepath.IsAbs(value) {
			return value, nil
		}
		rel, err := filepath.Rel(root, value)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("relativizing %q against %q: %w", value, root, err)
			}
			return value, err
		}
		return rel, nil
	})
	return firstErr
}

// visit walks the document tree, applying rewrite to every path-key value.
// A scalar string value is rewritten directly; a sequence is rewritten
// element-wise when its first element is a string (empty sequences have no
// first element to test and are skipped).
func visit(doc *document.Document, rewrite func(string) (string, error)) {
	for _, key := range doc.Keys() {
		value, _ := doc.Get(key)

		if nested, ok := value.(*document.Document); ok {
			visit(nested, rewrite)
			continue
		}
		if !IsPathKey(key) {
			continue
		}

		switch val := value.(type) {
		case string:
			if out, err := rewrite(val); err == nil {
				doc.Set(key, out)
			}
		case []any:
			if len(val) == 0 {
				continue
			}
			if _, ok := val[0].(string); !ok {
				continue
			}
			for i, item := range val {
				s, ok := item.(string)
				if !ok {
					continue
				}
				if out, err := rewrite(s); err == nil {
					val[i] = out
				}
			}
		}
	}
}
