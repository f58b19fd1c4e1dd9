package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
)

// DefaultTTL matches the dashboard's revalidation period for the catalog.
const DefaultTTL = time.Hour

// Loader fetches a fresh catalog, usually from the preferences API.
type Loader func(ctx context.Context) (models.Catalog, error)

// Entry is a stored catalog and the time it was fetched.
type Entry struct {
	Catalog  models.Catalog `json:"catalog"`
	CachedAt time.Time      `json:"cachedAt"`
}

// Store persists a single catalog [Entry].
//
// Load returns [shared.ErrCacheMiss] when nothing is stored.
type Store interface {
	Load(ctx context.Context) (Entry, error)
	Save(ctx context.Context, entry Entry) error
	Clear(ctx context.Context) error
}

// Options configures a [CatalogCache].
type Options struct {
	TTL    time.Duration
	Logger *log.Logger
	Now    func() time.Time
}

// CatalogCache serves the catalog from a [Store] and refreshes it through a [Loader].
//
// Concurrent misses share one load.
type CatalogCache struct {
	store  Store
	loader Loader
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates a [CatalogCache]. A zero TTL uses [DefaultTTL].
func New(store Store, loader Loader, opts Options) *CatalogCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CatalogCache{
		store:  store,
		loader: loader,
		ttl:    opts.TTL,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// Get returns the cached catalog, loading a fresh one when it is missing or expired.
//
// When the loader fails and an expired copy exists, the expired copy is returned.
func (c *CatalogCache) Get(ctx context.Context) (models.Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.store.Load(ctx)
	switch {
	case err == nil && c.fresh(entry):
		return entry.Catalog.Clone(), nil
	case err != nil && !errors.Is(err, shared.ErrCacheMiss):
		c.warn("catalog cache read failed", "error", err)
	}
	stale := err == nil

	catalog, loadErr := c.loader(ctx)
	if loadErr == nil {
		loadErr = catalog.Validate()
	}
	if loadErr != nil {
		if stale && len(entry.Catalog) > 0 {
			c.warn("serving expired catalog", "error", loadErr, "cached_at", entry.CachedAt)
			return entry.Catalog.Clone(), nil
		}
		return nil, fmt.Errorf("failed to load catalog: %w", loadErr)
	}

	if err := c.store.Save(ctx, Entry{Catalog: catalog.Clone(), CachedAt: c.now()}); err != nil {
		c.warn("catalog cache write failed", "error", err)
	}
	return catalog, nil
}

// Invalidate drops the stored catalog so the next [CatalogCache.Get] reloads it.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to invalidate catalog: %w", err)
	}
	return nil
}

// CachedAt reports when the stored catalog was fetched, or false when nothing is stored.
func (c *CatalogCache) CachedAt(ctx context.Context) (time.Time, bool) {
	entry, err := c.store.Load(ctx)
	if err != nil {
		return time.Time{}, false
	}
	return entry.CachedAt, true
}

func (c *CatalogCache) fresh(entry Entry) bool {
	return len(entry.Catalog) > 0 && c.now().Sub(entry.CachedAt) < c.ttl
}

func (c *CatalogCache) warn(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keyvals...)
	}
}
