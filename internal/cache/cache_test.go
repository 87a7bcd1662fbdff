package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"infergate/internal/core"
)

func sampleList() *ModelList {
	return &ModelList{
		Version:   CurrentVersion,
		Provider:  "ollama",
		BaseURL:   "http://localhost:11434",
		UpdatedAt: time.Now().UTC(),
		Models: []core.LocalModel{
			{Name: "mistral:latest", Size: 4109865159, Digest: "f974a74358d6"},
		},
	}
}

func TestKey(t *testing.T) {
	a := Key("ollama", "http://localhost:11434")
	if a != Key("Ollama", "http://localhost:11434/") {
		t.Error("Key should ignore case and trailing slashes")
	}
	if a == Key("ollama", "http://gpu-box:11434") {
		t.Error("different base URLs must produce different keys")
	}
	if !strings.HasPrefix(a, "ollama-") || len(a) != len("ollama-")+16 {
		t.Errorf("Key = %q, want provider prefix plus 16 hex digits", a)
	}
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()

	t.Run("GetSetRoundTrip", func(t *testing.T) {
		cache := NewLocalCache(t.TempDir(), time.Minute)
		key := Key("ollama", "http://localhost:11434")

		result, err := cache.Get(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != nil {
			t.Fatalf("expected nil result for empty cache, got %v", result)
		}

		if err := cache.Set(ctx, key, sampleList()); err != nil {
			t.Fatalf("unexpected error on set: %v", err)
		}

		result, err = cache.Get(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error on get: %v", err)
		}
		if result == nil {
			t.Fatal("expected result, got nil")
		}
		if len(result.Models) != 1 || result.Models[0].Name != "mistral:latest" {
			t.Errorf("Models = %+v", result.Models)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		cache := NewLocalCache(t.TempDir(), time.Minute)
		now := time.Now()
		cache.now = func() time.Time { return now }

		list := sampleList()
		list.UpdatedAt = now.Add(-2 * time.Minute)
		if err := cache.Set(ctx, "k", list); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := cache.Get(ctx, "k")
		if err != nil || result != nil {
			t.Errorf("expected expired entry to be ignored, got %v, %v", result, err)
		}
	})

	t.Run("VersionMismatch", func(t *testing.T) {
		cache := NewLocalCache(t.TempDir(), 0)
		list := sampleList()
		list.Version = CurrentVersion + 1
		_ = cache.Set(ctx, "k", list)

		if result, _ := cache.Get(ctx, "k"); result != nil {
			t.Error("entries with another version should be ignored")
		}
	})

	t.Run("CreatesDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "cache")
		cache := NewLocalCache(dir, 0)
		if err := cache.Set(ctx, "k", sampleList()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "k.json")); err != nil {
			t.Errorf("cache file not created: %v", err)
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "k.json"), []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewLocalCache(dir, 0).Get(ctx, "k"); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("EmptyDirDisablesCache", func(t *testing.T) {
		cache := NewLocalCache("", 0)
		if err := cache.Set(ctx, "k", sampleList()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result, err := cache.Get(ctx, "k"); result != nil || err != nil {
			t.Errorf("got %v, %v", result, err)
		}
	})
}

// TestRedisCache runs against a live server when REDIS_URL is set.
func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	cache, err := NewRedisCache(RedisConfig{URL: url, Key: "infergate:test:" + t.Name(), TTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, "k", sampleList()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := cache.Get(ctx, "k")
	if err != nil || got == nil || got.Models[0].Name != "mistral:latest" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	missing, err := cache.Get(ctx, "absent")
	if err != nil || missing != nil {
		t.Errorf("Get(absent) = %+v, %v", missing, err)
	}
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	if _, err := NewRedisCache(RedisConfig{URL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
}
