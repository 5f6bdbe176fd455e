package artwork

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

type diskEntry struct {
	URL       string `json:"url"`
	FetchedAt int64  `json:"fetched_at"`
}

type diskCache struct {
	Entries map[string]diskEntry `json:"entries"`
}

func newDiskCache() diskCache {
	return diskCache{Entries: make(map[string]diskEntry)}
}

// fresh reports whether an entry fetched at fetchedAt is still within ttl.
// Entries stamped in the future count as fresh.
func fresh(fetchedAt int64, now time.Time, ttl time.Duration) bool {
	age := now.Unix() - fetchedAt
	if age < 0 {
		age = 0
	}
	return age < int64(ttl/time.Second)
}

// loadDiskCache reads the cache file and drops expired entries. A missing
// file yields an empty cache and no error.
func loadDiskCache(path string, now time.Time, ttl time.Duration) (diskCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newDiskCache(), nil
		}
		return newDiskCache(), fmt.Errorf("failed to read cache file: %w", err)
	}

	var cache diskCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return newDiskCache(), fmt.Errorf("failed to parse cache file: %w", err)
	}
	if cache.Entries == nil {
		cache.Entries = make(map[string]diskEntry)
	}

	for key, entry := range cache.Entries {
		if !fresh(entry.FetchedAt, now, ttl) {
			delete(cache.Entries, key)
		}
	}

	return cache, nil
}

// saveDiskCache rewrites the whole cache file, creating parent directories.
func saveDiskCache(path string, cache diskCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}
