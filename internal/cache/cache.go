// Package cache stores local model listings so repeated queries do not hit the
// provider. Supports a local file backend and Redis for multi-instance deployments.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"infergate/internal/core"
)

// CurrentVersion is written into every entry; entries with another version are ignored.
const CurrentVersion = 1

// ModelList is one cached model listing.
type ModelList struct {
	Version   int               `json:"version"`
	Provider  string            `json:"provider"`
	BaseURL   string            `json:"base_url"`
	UpdatedAt time.Time         `json:"updated_at"`
	Models    []core.LocalModel `json:"models"`
}

// Cache defines the interface for model list storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the listing stored under key.
	// Returns nil, nil if nothing is cached or the entry expired.
	Get(ctx context.Context, key string) (*ModelList, error)

	// Set stores a listing under key.
	Set(ctx context.Context, key string, list *ModelList) error

	// Close releases any resources held by the cache.
	Close() error
}

// Key derives the cache key for a provider endpoint. Two providers pointing at
// different servers never share an entry.
func Key(provider, baseURL string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	sum := xxhash.Sum64String(provider + "\x00" + strings.TrimRight(baseURL, "/"))
	return fmt.Sprintf("%s-%016x", provider, sum)
}

func expired(list *ModelList, ttl time.Duration, now time.Time) bool {
	if list == nil || list.Version != CurrentVersion {
		return true
	}
	return ttl > 0 && now.Sub(list.UpdatedAt) > ttl
}
