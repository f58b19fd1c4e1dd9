package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meetingbaas/settings/internal/repositories"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps the entry in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	entry *Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == nil {
		return Entry{}, shared.ErrCacheMiss
	}
	return Entry{Catalog: s.entry.Catalog.Clone(), CachedAt: s.entry.CachedAt}, nil
}

func (s *MemoryStore) Save(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entry = &Entry{Catalog: entry.Catalog.Clone(), CachedAt: entry.CachedAt}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entry = nil
	return nil
}

// SQLiteStore adapts [repositories.EmailTypeRepository] to [Store].
type SQLiteStore struct {
	repo *repositories.EmailTypeRepository
}

func NewSQLiteStore(repo *repositories.EmailTypeRepository) *SQLiteStore {
	return &SQLiteStore{repo: repo}
}

func (s *SQLiteStore) Load(_ context.Context) (Entry, error) {
	catalog, cachedAt, err := s.repo.List()
	if err != nil {
		return Entry{}, err
	}
	if len(catalog) == 0 {
		return Entry{}, shared.ErrCacheMiss
	}
	return Entry{Catalog: catalog, CachedAt: cachedAt}, nil
}

// Save replaces the stored rows. The repository stamps rows with the current time.
func (s *SQLiteStore) Save(_ context.Context, entry Entry) error {
	return s.repo.ReplaceAll(entry.Catalog)
}

func (s *SQLiteStore) Clear(_ context.Context) error {
	return s.repo.Clear()
}

// DefaultRedisKey is used when no prefix is configured.
const DefaultRedisKey = "baas:catalog"

// RedisStore keeps the entry as JSON under a single key.
//
// Keys expire after ttl so instances that never invalidate still converge.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore] that stores the entry at key.
func NewRedisStore(client redis.Cmdable, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (Entry, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, shared.ErrCacheMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("corrupt catalog entry: %w", err)
	}
	return entry, nil
}

func (s *RedisStore) Save(ctx context.Context, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}

// NewRedisClient connects to addr, which may be a redis:// URL or host:port.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	var client *redis.Client
	if opts, err := redis.ParseURL(addr); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr, DB: db})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed (%s): %w", addr, err)
	}
	return client, nil
}

// NewStore builds the [Store] named by cfg.Backend. db is only used by the sqlite backend.
//
// The returned close function releases backend connections and is never nil.
func NewStore(ctx context.Context, cfg shared.CacheConfig, db *sql.DB) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), noop, nil
	case "sqlite":
		if db == nil {
			return nil, noop, fmt.Errorf("%w: sqlite cache needs a database", shared.ErrInvalidConfig)
		}
		return NewSQLiteStore(repositories.NewEmailTypeRepository(db)), noop, nil
	case "redis":
		ttl, err := cfg.TTLDuration()
		if err != nil {
			return nil, noop, err
		}
		client, err := NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(client, cfg.RedisPrefix, ttl), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
