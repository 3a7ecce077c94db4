package tmpl

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/blockcss/log"
)

// Cache holds parsed templates keyed by a hash of their name and source.
// Templates are immutable, so cached entries are shared by all callers.
// The zero Cache is ready to use.
type Cache struct {
	entries sync.Map
	size    atomic.Int64
	logger  log.Logger
}

// entry tracks parsing state for one source.
type entry struct {
	once sync.Once
	tmpl *Template
	err  error
}

// NewCache returns an empty cache logging lookups to logger.
func NewCache(logger log.Logger) *Cache {
	return &Cache{logger: logger}
}

// Key returns the cache key of a template.
func Key(name, source string) uint64 {
	h := xxh3.New()

	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(source)

	return h.Sum64()
}

// Parse returns the cached template for name and source, parsing it on
// first use. Syntax errors are cached as well.
func (c *Cache) Parse(ctx context.Context, name, source string) (*Template, error) {
	key := Key(name, source)

	value, hit := c.entries.LoadOrStore(key, new(entry))
	e, _ := value.(*entry)

	if !hit {
		c.size.Add(1)
	}

	c.logger.TraceContext(ctx, "cache lookup",
		slog.String("name", name),
		slog.String("key", strconv.FormatUint(key, 16)),
		slog.Bool("cache_hit", hit))

	e.once.Do(func() {
		e.tmpl, e.err = Parse(name, source)
	})

	return e.tmpl, e.err
}

// ParseReader reads r to its end and parses the content through the cache.
func (c *Cache) ParseReader(ctx context.Context, name string, r io.Reader) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("name", name))
	}

	return c.Parse(ctx, name, string(data))
}

// Len returns the number of cached sources.
func (c *Cache) Len() int { return int(c.size.Load()) }

// Clear removes all entries.
func (c *Cache) Clear() {
	c.entries.Range(func(key, _ any) bool {
		if _, ok := c.entries.LoadAndDelete(key); ok {
			c.size.Add(-1)
		}

		return true
	})
}
