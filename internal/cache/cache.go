// Package cache holds the current sensitive word set in a single
// process-wide slot. The slot is filled from the word store on a miss and
// emptied whenever the store reports a change.
package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/go-ports/wordmask/internal/models"
	"github.com/go-ports/wordmask/internal/redaction"
)

// Key is the fixed key the word set is cached under.
const Key = "SensitiveWords"

// DefaultFetchTimeout bounds a shared fetch from the source.
const DefaultFetchTimeout = 30 * time.Second

// Source is the word store as seen by the cache.
type Source interface {
	// ListWords returns the full, unordered word list.
	ListWords(ctx context.Context) ([]string, error)
	// Subscribe registers fn for change notifications and returns a
	// function that removes it.
	Subscribe(fn func(models.ChangeEvent)) (unsubscribe func())
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Fills         uint64 `json:"fills"`
	Invalidations uint64 `json:"invalidations"`
	Cached        bool   `json:"cached"`
	Words         int    `json:"words"`
}

type entry struct {
	words  *redaction.WordSet
	filled time.Time
}

// Cache serves the current WordSet. It is safe for concurrent use.
type Cache struct {
	src    Source
	logger *zap.Logger
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	slot    *entry
	version uint64

	group       singleflight.Group
	unsubscribe func()

	hits          atomic.Uint64
	misses        atomic.Uint64
	fills         atomic.Uint64
	invalidations atomic.Uint64
}

// Option customises New.
type Option func(*Cache)

// WithTTL makes entries older than ttl count as absent. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithFetchTimeout bounds each fetch from the source. Zero or negative
// values keep DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty cache over src and subscribes it to src's change
// notifications. Call Close to unsubscribe.
func New(src Source, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		src:          src,
		logger:       logger.Named("cache"),
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = src.Subscribe(c.OnChange)
	return c
}

// Close detaches the cache from its source's notifications.
func (c *Cache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Resolve returns the cached WordSet, fetching and building it from the
// source on a miss. Fetch errors are returned and nothing is cached, so the
// next call retries. Concurrent misses share a single fetch that is detached
// from any one caller's cancellation; a caller whose ctx ends stops waiting
// and gets ctx.Err() while the others still receive the result.
func (c *Cache) Resolve(ctx context.Context) (*redaction.WordSet, error) {
	c.mu.RLock()
	e, version := c.slot, c.version
	c.mu.RUnlock()

	if e != nil && c.fresh(e) {
		c.hits.Add(1)
		c.logger.Debug("cache hit", zap.String("key", Key), zap.Int("words", e.words.Len()))
		return e.words, nil
	}

	c.misses.Add(1)
	c.logger.Info("cache miss, fetching sensitive words from store", zap.String("key", Key))

	ch := c.group.DoChan(Key+"@"+strconv.FormatUint(version, 10), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fill(fetchCtx, version)
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "cache: resolve")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*redaction.WordSet), nil
	}
}

// fill fetches the word list and stores the built set, unless an
// invalidation happened since version was read.
func (c *Cache) fill(ctx context.Context, version uint64) (*redaction.WordSet, error) {
	words, err := c.src.ListWords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cache: fetch sensitive words")
	}
	ws := redaction.NewWordSet(words, c.logger)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		c.logger.Info("word list changed during fetch, not caching result", zap.String("key", Key))
		return ws, nil
	}
	c.slot = &entry{words: ws, filled: c.now()}
	c.fills.Add(1)
	return ws, nil
}

func (c *Cache) fresh(e *entry) bool {
	return c.ttl <= 0 || c.now().Sub(e.filled) < c.ttl
}

// Invalidate removes the cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	had := c.slot != nil
	c.slot = nil
	c.version++
	c.mu.Unlock()

	c.invalidations.Add(1)
	c.logger.Info("sensitive words changed, invalidating cache",
		zap.String("key", Key), zap.Bool("was_cached", had))
}

// OnChange is the change notification handler; any event invalidates.
func (c *Cache) OnChange(ev models.ChangeEvent) {
	c.logger.Debug("change notification", zap.Stringer("event", ev), zap.String("origin", ev.Origin))
	c.Invalidate()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	e := c.slot
	c.mu.RUnlock()

	s := Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Fills:         c.fills.Load(),
		Invalidations: c.invalidations.Load(),
	}
	if e != nil && c.fresh(e) {
		s.Cached = true
		s.Words = e.words.Len()
	}
	return s
}
