package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LocalCache implements Cache using one JSON file per key under a directory.
// This is suitable for single-instance deployments.
type LocalCache struct {
	mu  sync.RWMutex
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewLocalCache creates a new local file-based cache. A zero ttl never expires entries.
func NewLocalCache(dir string, ttl time.Duration) *LocalCache {
	return &LocalCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

func (c *LocalCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get retrieves a model listing from its file.
func (c *LocalCache) Get(_ context.Context, key string) (*ModelList, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No cache file yet, not an error
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var list ModelList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if expired(&list, c.ttl, c.now()) {
		return nil, nil
	}

	return &list, nil
}

// Set stores a model listing to its file.
func (c *LocalCache) Set(_ context.Context, key string, list *ModelList) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dir == "" {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	// Write atomically using temp file + rename
	target := c.path(key)
	tmpFile := target + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpFile, target); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	return nil
}

// Close is a no-op for local cache.
func (c *LocalCache) Close() error {
	return nil
}
