package store

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/RMShur/model-organization/internal/document"
)

// docCache is a TTL cache of decoded documents keyed by file path. Documents
// are cloned on both set and get so callers can mutate their copy (path
// normalization happens in place) without poisoning the cache.
type docCache struct {
	cache *gocache.Cache
}

func newDocCache(ttl time.Duration) *docCache {
	return &docCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *docCache) get(path string) (*document.Document, bool) {
	value, found := c.cache.Get(path)
	if !found {
		return nil, false
	}
	doc, ok := value.(*document.Document)
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

func (c *docCache) set(path string, doc *document.Document) {
	c.cache.Set(path, doc.Clone(), gocache.DefaultExpiration)
}

func (c *docCache) invalidate(path string) {
	c.cache.Delete(path)
}
