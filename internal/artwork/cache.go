package artwork

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/genricoloni/tunecord/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultCapacity bounds the in-process tier
	DefaultCapacity = 500
	// DefaultTTL is how long a persisted entry stays valid
	DefaultTTL = 30 * 24 * time.Hour
)

// Lookup is the external source consulted on a cache miss
type Lookup interface {
	Find(ctx context.Context, artist, album string) (string, error)
}

// Options tunes a Cache. Zero values fall back to the defaults.
type Options struct {
	// Path of the persisted tier; empty keeps the disk tier in memory only
	Path        string
	Capacity    int
	TTL         time.Duration
	MinInterval time.Duration
}

type memoryEntry struct {
	url        string
	insertedAt time.Time
	seq        uint64
}

// Cache resolves artwork through a memory tier, a persisted tier and finally
// a rate-limited lookup. It is owned by the sync loop and is not safe for
// concurrent use.
type Cache struct {
	logger  *zap.Logger
	lookup  Lookup
	limiter *RateLimiter
	now     func() time.Time

	path     string
	capacity int
	ttl      time.Duration

	memory map[string]memoryEntry
	seq    uint64

	disk  diskCache
	dirty bool
}

// NewCache builds the cache and loads the persisted tier once. Load failures
// are logged and leave the tier empty.
func NewCache(logger *zap.Logger, lookup Lookup, opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	c := &Cache{
		logger:   logger,
		lookup:   lookup,
		limiter:  NewRateLimiter(opts.MinInterval),
		now:      time.Now,
		path:     opts.Path,
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		memory:   make(map[string]memoryEntry),
		disk:     newDiskCache(),
	}

	if c.path != "" {
		disk, err := loadDiskCache(c.path, c.now(), c.ttl)
		if err != nil {
			logger.Warn("Artwork cache unreadable, starting empty",
				zap.String("path", c.path), zap.Error(err))
		}
		c.disk = disk
		logger.Info("Artwork cache loaded",
			zap.String("path", c.path),
			zap.Int("entries", len(c.disk.Entries)))
	}

	return c
}

// CacheKey normalizes an artist/album pair.
func CacheKey(artist, album string) string {
	a := strings.ToLower(strings.TrimSpace(artist))
	b := strings.ToLower(strings.TrimSpace(album))
	if b == "" {
		return a
	}
	return a + "::" + b
}

// Resolve returns the artwork URL for artist/album, or false when none can
// be found. Failures never propagate.
func (c *Cache) Resolve(ctx context.Context, artist, album string) (string, bool) {
	key := CacheKey(artist, album)
	if key == "" {
		return "", false
	}

	if entry, ok := c.memory[key]; ok {
		c.logger.Debug("Artwork cache hit (memory)", zap.String("key", key))
		metrics.ArtworkCacheHits.WithLabelValues("memory").Inc()
		return entry.url, true
	}

	if entry, ok := c.disk.Entries[key]; ok && fresh(entry.FetchedAt, c.now(), c.ttl) {
		c.logger.Debug("Artwork cache hit (disk)", zap.String("key", key))
		metrics.ArtworkCacheHits.WithLabelValues("disk").Inc()
		c.insertMemory(key, entry.URL)
		return entry.URL, true
	}

	if err := c.limiter.WaitTurn(ctx); err != nil {
		c.logger.Debug("Artwork lookup abandoned", zap.String("key", key), zap.Error(err))
		return "", false
	}

	artURL, err := c.lookup.Find(ctx, artist, album)
	if err != nil {
		if errors.Is(err, ErrNoArtwork) {
			c.logger.Debug("No artwork found", zap.String("key", key))
		} else {
			c.logger.Warn("Artwork lookup failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}

	c.insertMemory(key, artURL)
	c.insertDisk(key, artURL)
	c.saveIfDirty()

	return artURL, true
}

// insertMemory adds an entry, evicting the oldest insertion when full.
// Hits never refresh insertedAt.
func (c *Cache) insertMemory(key, artURL string) {
	if _, exists := c.memory[key]; !exists && len(c.memory) >= c.capacity {
		c.evictOldest()
	}

	c.seq++
	c.memory[key] = memoryEntry{url: artURL, insertedAt: c.now(), seq: c.seq}
	metrics.ArtworkMemoryEntries.Set(float64(len(c.memory)))
}

func (c *Cache) evictOldest() {
	var (
		oldestKey string
		oldest    memoryEntry
		found     bool
	)

	for key, entry := range c.memory {
		if !found || entry.insertedAt.Before(oldest.insertedAt) ||
			(entry.insertedAt.Equal(oldest.insertedAt) && entry.seq < oldest.seq) {
			oldestKey, oldest, found = key, entry, true
		}
	}

	if found {
		delete(c.memory, oldestKey)
		c.logger.Debug("Evicted artwork from memory", zap.String("key", oldestKey))
	}
}

func (c *Cache) insertDisk(key, artURL string) {
	c.disk.Entries[key] = diskEntry{URL: artURL, FetchedAt: c.now().Unix()}
	c.dirty = true
}

// saveIfDirty persists the disk tier. A failed write keeps the dirty flag
// so the next successful resolve retries it.
func (c *Cache) saveIfDirty() {
	if !c.dirty || c.path == "" {
		return
	}

	if err := saveDiskCache(c.path, c.disk); err != nil {
		c.logger.Warn("Failed to persist artwork cache", zap.String("path", c.path), zap.Error(err))
		return
	}

	c.dirty = false
	c.logger.Debug("Artwork cache saved", zap.String("path", c.path))
}
