package conduit

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phorge-tools/conduit-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrCacheKeyNotFound = errors.New("key not found")
	ErrCacheEntryStale  = errors.New("entry expired")
)

// CacheEntry is a cached response payload with its expiry.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL.
func (e *CacheEntry) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache is the backend contract shared by the memory, NATS KV, no-op, and
// chain implementations. An entry is never served past its TTL.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheOptions carries backend-independent cache behavior.
type CacheOptions struct {
	// DefaultTTL is applied when a caller does not specify one.
	DefaultTTL time.Duration
}

// DefaultCacheOptions returns the default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		DefaultTTL: constants.DefaultCacheTTL,
	}
}

// MemoryCache is an in-process cache with TTL expiry and least-recently-used
// eviction when the capacity bound is exceeded.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	maxSize  int
	stopOnce sync.Once
	stop     chan struct{}
}

type memoryEntry struct {
	entry    *CacheEntry
	lastUsed time.Time
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}
}

// Get returns the entry for key, or an error if absent or expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheKeyNotFound
	}

	if item.entry.Expired() {
		delete(c.entries, key)

		return nil, ErrCacheEntryStale
	}

	item.lastUsed = time.Now()

	return item.entry, nil
}

// Set stores an entry, evicting the least-recently-used entry if the
// capacity bound is exceeded.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &memoryEntry{entry: entry, lastUsed: time.Now()}

	for len(c.entries) > c.maxSize {
		c.evictOldestLocked()
	}

	return nil
}

func (c *MemoryCache) evictOldestLocked() {
	var (
		oldestKey  string
		oldestTime time.Time
	)

	for key, item := range c.entries {
		if oldestKey == "" || item.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.lastUsed
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryEntry)

	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.entries[key]
	if !ok {
		return false
	}

	if item.entry.Expired() {
		delete(c.entries, key)

		return false
	}

	return true
}

// Cleanup removes all expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.entries {
		if item.entry.Expired() {
			delete(c.entries, key)
		}
	}
}

// StartJanitor sweeps expired entries every interval until Close is called.
func (c *MemoryCache) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-c.stop:
				return
			}
		}
	}()
}

// Close stops the janitor, if running.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })

	return nil
}

// CacheStats tracks cache effectiveness.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Deletes   int64
	InFlights int64
}

// GetHitRate returns the fraction of reads served from the cache.
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CacheManager wraps a Cache backend with statistics, key building, and a
// single-flight guarantee: concurrent callers for the same fingerprint share
// one in-flight computation instead of issuing duplicate network calls.
type CacheManager struct {
	cache  Cache
	logger Logger

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64

	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	done chan struct{}
	data []byte
	err  error
}

// NewCacheManager creates a cache manager over a backend. Logger may be nil.
func NewCacheManager(cache Cache, logger Logger) *CacheManager {
	return &CacheManager{
		cache:   cache,
		logger:  logger,
		flights: make(map[string]*flight),
	}
}

// GetCacheKey builds the fingerprint for a request.
func (m *CacheManager) GetCacheKey(method string, params url.Values, credentialDigest string) string {
	return Fingerprint(method, params, credentialDigest)
}

// Get returns cached data for key.
func (m *CacheManager) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		m.misses.Add(1)

		return nil, err
	}

	if entry.Data == nil || entry.ExpiresAt.IsZero() {
		// A stored entry without payload or expiry is a programming
		// defect, not a miss.
		return nil, &CacheInvariantError{Reason: "stored entry has no payload or no expiry"}
	}

	m.hits.Add(1)

	return entry.Data, nil
}

// Set stores data under key for ttl.
func (m *CacheManager) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return &CacheInvariantError{Reason: "TTL must be positive"}
	}

	m.sets.Add(1)

	return m.cache.Set(ctx, key, &CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// GetOrCompute returns the cached value for key, or runs compute exactly
// once across concurrent callers and caches its result. The result is
// stored in full or not at all: a failed or cancelled computation leaves
// the cache untouched.
func (m *CacheManager) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, err := m.Get(ctx, key); err == nil {
		return data, nil
	} else {
		var invariantErr *CacheInvariantError
		if errors.As(err, &invariantErr) {
			return nil, err
		}
	}

	m.mu.Lock()

	if f, ok := m.flights[key]; ok {
		m.mu.Unlock()

		select {
		case <-f.done:
			return f.data, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	m.flights[key] = f
	m.mu.Unlock()

	data, err := compute(ctx)
	if err == nil {
		if setErr := m.Set(ctx, key, data, ttl); setErr != nil && m.logger != nil {
			m.logger.Warn("cache store failed", map[string]interface{}{"error": setErr.Error()})
		}
	}

	f.data = data
	f.err = err
	close(f.done)

	m.mu.Lock()
	delete(m.flights, key)
	m.mu.Unlock()

	return data, err
}

// Delete removes a single entry.
func (m *CacheManager) Delete(ctx context.Context, key string) error {
	m.deletes.Add(1)

	return m.cache.Delete(ctx, key)
}

// InvalidateNamespace removes every cached entry belonging to a method's
// application namespace. An edit through "maniphest.edit" invalidates all
// "maniphest." reads so the next search cannot return the stale value.
func (m *CacheManager) InvalidateNamespace(ctx context.Context, method string) error {
	m.deletes.Add(1)

	return m.cache.DeletePrefix(ctx, MethodNamespace(method))
}

// Clear removes all entries.
func (m *CacheManager) Clear(ctx context.Context) error {
	return m.cache.Clear(ctx)
}

// GetStats returns a snapshot of the cache statistics.
func (m *CacheManager) GetStats() CacheStats {
	m.mu.Lock()
	inFlight := int64(len(m.flights))
	m.mu.Unlock()

	return CacheStats{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Sets:      m.sets.Load(),
		Deletes:   m.deletes.Load(),
		InFlights: inFlight,
	}
}

// MethodNamespace returns the application prefix of a Conduit method:
// "maniphest.edit" belongs to "maniphest.".
func MethodNamespace(method string) string {
	if idx := strings.Index(method, "."); idx >= 0 {
		return method[:idx+1]
	}

	return method
}

// CachingPolicy decides which operations are cacheable. Only read methods
// are eligible; mutating operations always bypass the cache.
type CachingPolicy struct {
	// CacheReads enables caching of read methods.
	CacheReads bool

	// IncludeMethods, when non-empty, restricts caching to these methods.
	IncludeMethods []string

	// ExcludeMethods lists methods never cached.
	ExcludeMethods []string
}

// DefaultCachingPolicy caches read methods except file downloads, whose
// payloads are large and already content-addressed upstream.
func DefaultCachingPolicy() *CachingPolicy {
	return &CachingPolicy{
		CacheReads:     true,
		ExcludeMethods: []string{"file.download"},
	}
}

// ShouldCache reports whether the method's responses may be memoized.
func (p *CachingPolicy) ShouldCache(method string) bool {
	if !p.CacheReads || !IsReadMethod(method) {
		return false
	}

	for _, excluded := range p.ExcludeMethods {
		if method == excluded {
			return false
		}
	}

	if len(p.IncludeMethods) > 0 {
		for _, included := range p.IncludeMethods {
			if method == included {
				return true
			}
		}

		return false
	}

	return true
}

// IsReadMethod reports whether a Conduit method is idempotent.
func IsReadMethod(method string) bool {
	switch method {
	case "conduit.ping", "conduit.getcapabilities", "user.whoami",
		"diffusion.browsequery", "diffusion.filecontentquery",
		"differential.getrawdiff", "file.download":
		return true
	}

	for _, suffix := range []string{".search", ".info", ".query"} {
		if strings.HasSuffix(method, suffix) {
			return true
		}
	}

	return false
}
