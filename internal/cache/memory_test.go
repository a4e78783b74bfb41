package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, err := NewMemoryProviderWithSize(2)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	if _, err := provider.Get(ctx, ProductListKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty cache, got %v", err)
	}

	if err := provider.Set(ctx, ProductListKey, `[{"name":"Watch"}]`, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := provider.Get(ctx, ProductListKey)
	if err != nil || got != `[{"name":"Watch"}]` {
		t.Fatalf("unexpected get result: %q, %v", got, err)
	}

	if err := provider.Delete(ctx, ProductListKey); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := provider.Get(ctx, ProductListKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryProviderExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	if err := provider.Set(ctx, CategoryListKey, "[]", -time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := provider.Get(ctx, CategoryListKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected non-positive ttl to store nothing, got %v", err)
	}

	now := time.Now()
	provider.now = func() time.Time { return now }
	if err := provider.Set(ctx, CategoryListKey, "[]", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := provider.Get(ctx, CategoryListKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired entry to be reported missing, got %v", err)
	}
}

func TestMemoryProviderDeleteMany(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	keys := []string{ProductListKey, ProductKey("a"), ProductKey("b")}
	for _, key := range keys {
		_ = provider.Set(ctx, key, "x", time.Minute)
	}
	if err := provider.Delete(ctx, append(keys, ProductKey("missing"))...); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	for _, key := range keys {
		if _, err := provider.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected %s to be deleted, got %v", key, err)
		}
	}
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	var names []string
	found, err := GetJSON(ctx, provider, CategoryListKey, &names)
	if err != nil || found {
		t.Fatalf("GetJSON() on empty cache = %v, %v", found, err)
	}

	if err := SetJSON(ctx, provider, CategoryListKey, []string{"Audio", "Home"}, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	found, err = GetJSON(ctx, provider, CategoryListKey, &names)
	if err != nil || !found || len(names) != 2 || names[1] != "Home" {
		t.Fatalf("GetJSON() = %v, %v, %v", names, found, err)
	}

	_ = provider.Set(ctx, ProductListKey, "{not json", time.Minute)
	if _, err := GetJSON(ctx, provider, ProductListKey, &names); err == nil {
		t.Fatal("expected error for corrupt entry")
	}
}

func TestMemoryProviderEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider, err := NewMemoryProviderWithSize(2)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_ = provider.Set(ctx, ProductKey("a"), "a", time.Minute)
	_ = provider.Set(ctx, ProductKey("b"), "b", time.Minute)
	_, _ = provider.Get(ctx, ProductKey("a"))
	_ = provider.Set(ctx, ProductKey("c"), "c", time.Minute)

	if _, err := provider.Get(ctx, ProductKey("b")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected b to be evicted, got %v", err)
	}
	if _, err := provider.Get(ctx, ProductKey("a")); err != nil {
		t.Fatalf("expected a to survive eviction, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{Provider: "memory"}); err != nil {
		t.Fatalf("memory provider: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "memcached"}); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}
