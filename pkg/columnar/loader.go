package columnar

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/strata/pkg/dictionary"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// ArtifactLoader loads the text artifacts of a store. Implementations must be
// safe for concurrent use and must never change query results.
type ArtifactLoader interface {
	Dictionary(column, path string) (*dictionary.Dictionary, error)
	ZoneMap(column, path string, chunkSize, records int) (*zonemap.ZoneMap, error)
}

// FileLoader parses artifacts from disk on every call.
type FileLoader struct{}

// Dictionary implements ArtifactLoader.
func (FileLoader) Dictionary(column, path string) (*dictionary.Dictionary, error) {
	return dictionary.ReadFile(column, path)
}

// ZoneMap implements ArtifactLoader.
func (FileLoader) ZoneMap(column, path string, chunkSize, records int) (*zonemap.ZoneMap, error) {
	return zonemap.ReadFile(column, path, chunkSize, records)
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

type cacheEntry struct {
	stamp fileStamp
	value interface{}
}

// CachedLoader keeps parsed artifacts in memory keyed by path and reloads one
// whenever the file's modification time or size changes.
type CachedLoader struct {
	next ArtifactLoader

	mu      sync.Mutex
	entries map[string]cacheEntry

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedLoader wraps next, or a FileLoader when next is nil.
func NewCachedLoader(next ArtifactLoader) *CachedLoader {
	if next == nil {
		next = FileLoader{}
	}
	return &CachedLoader{
		next:    next,
		entries: make(map[string]cacheEntry),
	}
}

// Dictionary implements ArtifactLoader.
func (c *CachedLoader) Dictionary(column, path string) (*dictionary.Dictionary, error) {
	v, err := c.load(path, path, func() (interface{}, error) {
		return c.next.Dictionary(column, path)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dictionary.Dictionary), nil
}

// ZoneMap implements ArtifactLoader.
func (c *CachedLoader) ZoneMap(column, path string, chunkSize, records int) (*zonemap.ZoneMap, error) {
	key := fmt.Sprintf("%s#%d#%d", path, chunkSize, records)
	v, err := c.load(key, path, func() (interface{}, error) {
		return c.next.ZoneMap(column, path, chunkSize, records)
	})
	if err != nil {
		return nil, err
	}
	return v.(*zonemap.ZoneMap), nil
}

// Hits returns the number of calls served from memory.
func (c *CachedLoader) Hits() int64 { return c.hits.Load() }

// Misses returns the number of calls that parsed the file.
func (c *CachedLoader) Misses() int64 { return c.misses.Load() }

// Len returns the number of cached artifacts.
func (c *CachedLoader) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachedLoader) load(key, path string, fn func() (interface{}, error)) (interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeMissingArtifact, "artifact not found").
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat artifact").
			WithDetail("path", path)
	}
	stamp := fileStamp{modTime: info.ModTime(), size: info.Size()}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && entry.stamp.modTime.Equal(stamp.modTime) && entry.stamp.size == stamp.size {
		c.hits.Add(1)
		return entry.value, nil
	}

	c.misses.Add(1)
	v, err := fn()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{stamp: stamp, value: v}
	c.mu.Unlock()
	return v, nil
}
