package manifest

import (
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of parsed manifests kept in memory.
const DefaultCacheSize = 256

type cacheEntry struct {
	manifest *Manifest
	modTime  time.Time
	size     int64
}

// Cache memoizes parsed manifests for read-only consumers such as the
// detectors, which read the root and current manifests repeatedly.
// Entries are invalidated when the file's size or modification time
// changes. Manifests returned by a Cache are shared and must not be
// modified; editors should call Load.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
}

// NewCache creates a Cache holding up to size manifests.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{entries: entries}
}

// Load returns the manifest in dir, parsing it at most once per change.
func (c *Cache) Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	info, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		return LoadFile(path)
	}

	if e, ok := c.entries.Get(path); ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		return e.manifest, nil
	}

	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	c.entries.Add(path, cacheEntry{manifest: m, modTime: info.ModTime(), size: info.Size()})
	return m, nil
}

// Len returns the number of cached manifests.
func (c *Cache) Len() int {
	return c.entries.Len()
}
