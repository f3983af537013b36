package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/logging"
	"github.com/nutriscan/backend/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL   = 15 * time.Minute
	defaultMaxEntries = 50
	defaultMinLatency = 300 * time.Millisecond

	minBarcodeLen = 8
	maxBarcodeLen = 14
)

// LookupCacheConfig tunes the cache; zero values take the defaults above
type LookupCacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	MinLatency time.Duration
}

// cacheEntry is one cached product keyed by normalized barcode
type cacheEntry struct {
	product    *domain.BarcodeProduct
	insertedAt time.Time
}

// LookupCache resolves barcodes against the product backend with a TTL cache,
// insertion-order LRU eviction, and deduplication of concurrent in-flight
// requests for the same code. Lookup never returns an error; every outcome is
// a LookupResult value. One instance is shared for the app's lifetime.
type LookupCache struct {
	backend    domain.LookupBackend
	ttl        time.Duration
	maxEntries int
	minLatency time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string // insertion order, oldest first

	flight singleflight.Group
	log    zerolog.Logger
	now    func() time.Time
}

// NewLookupCache creates a lookup cache over the given backend
func NewLookupCache(backend domain.LookupBackend, cfg LookupCacheConfig) *LookupCache {
	if cfg.TTL == 0 {
		cfg.TTL = defaultCacheTTL
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.MinLatency == 0 {
		cfg.MinLatency = defaultMinLatency
	}

	return &LookupCache{
		backend:    backend,
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		minLatency: cfg.MinLatency,
		entries:    make(map[string]cacheEntry),
		log:        logging.WithComponent("lookup-cache"),
		now:        time.Now,
	}
}

// Lookup resolves a barcode. Flow: normalize -> cache -> shared in-flight
// request -> backend. Resolution is padded to the configured minimum latency
// regardless of branch, so sub-latency answers do not flicker in the UI.
func (c *LookupCache) Lookup(ctx context.Context, barcode string) domain.LookupResult {
	start := time.Now()
	result := c.resolve(ctx, barcode)
	c.padLatency(ctx, start)

	if result.OK {
		metrics.Lookups.WithLabelValues("ok").Inc()
	} else {
		metrics.Lookups.WithLabelValues(string(result.Reason)).Inc()
	}
	return result
}

func (c *LookupCache) resolve(ctx context.Context, barcode string) domain.LookupResult {
	key := NormalizeBarcode(barcode)
	if len(key) < minBarcodeLen || len(key) > maxBarcodeLen {
		return domain.LookupFail(domain.ReasonInvalid,
			fmt.Sprintf("barcode must be %d-%d digits, got %d", minBarcodeLen, maxBarcodeLen, len(key)), 0)
	}

	if product, ok := c.cached(key); ok {
		metrics.CacheHits.Inc()
		return domain.LookupOK(product, true)
	}
	metrics.CacheMisses.Inc()

	// Concurrent callers for the same key attach to one shared backend call;
	// the in-flight entry is dropped on settlement, success or failure
	v, err, _ := c.flight.Do(key, func() (any, error) {
		product, err := c.backend.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		c.store(key, product)
		return product, nil
	})
	if err != nil {
		le := domain.AsLookupError(err)
		c.log.Debug().Str("barcode", key).Str("reason", string(le.Reason)).Msg("lookup failed")
		return domain.LookupFail(le.Reason, le.Message, le.Status)
	}

	return domain.LookupOK(v.(*domain.BarcodeProduct), false)
}

// cached returns a fresh entry for key, dropping it when stale
func (c *LookupCache) cached(key string) (*domain.BarcodeProduct, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		c.dropFromOrder(key)
		return nil, false
	}
	return entry.product, true
}

// store inserts a product, evicting the oldest entries past capacity
func (c *LookupCache) store(key string, product *domain.BarcodeProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.dropFromOrder(key)
	}
	for len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = cacheEntry{product: product, insertedAt: c.now()}
	c.order = append(c.order, key)
}

func (c *LookupCache) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// padLatency blocks until at least the minimum latency has elapsed since
// start, or the context is done
func (c *LookupCache) padLatency(ctx context.Context, start time.Time) {
	remaining := c.minLatency - time.Since(start)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Size returns the current number of cached entries
func (c *LookupCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all cached entries; used for test isolation
func (c *LookupCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.order = nil
}

// NormalizeBarcode strips everything but digits from a scanned code
func NormalizeBarcode(barcode string) string {
	var b strings.Builder
	b.Grow(len(barcode))
	for _, r := range barcode {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
