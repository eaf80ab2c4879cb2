package memory

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestCacheExpiresAfterTTL(t *testing.T) {
	clock := clockz.NewFakeClock()
	cache := NewCache(clock)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), 5*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, ok, _ := cache.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("expected hit, got %q ok=%v", v, ok)
	}

	clock.Advance(5*time.Minute - time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Fatalf("entry should still be live just before ttl")
	}

	clock.Advance(time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatalf("entry should expire at ttl")
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	cache := NewCache(clockz.NewFakeClock())
	ctx := context.Background()
	src := []byte("abc")
	_ = cache.Set(ctx, "k", src, time.Minute)
	src[0] = 'x'

	v, _, _ := cache.Get(ctx, "k")
	if string(v) != "abc" {
		t.Fatalf("cache must not alias caller buffers, got %q", v)
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	cache := NewCache(clockz.NewFakeClock())
	ctx := context.Background()
	_ = cache.Set(ctx, "analytics:ds-1:a", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "analytics:ds-1:b", []byte("2"), time.Minute)
	_ = cache.Set(ctx, "analytics:ds-10:a", []byte("3"), time.Minute)

	if err := cache.DeletePrefix(ctx, "analytics:ds-1:"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "analytics:ds-1:a"); ok {
		t.Fatalf("expected ds-1 entry removed")
	}
	if _, ok, _ := cache.Get(ctx, "analytics:ds-10:a"); !ok {
		t.Fatalf("ds-10 shares a textual prefix but must survive")
	}
}

func TestCacheSweep(t *testing.T) {
	clock := clockz.NewFakeClock()
	cache := NewCache(clock)
	ctx := context.Background()
	_ = cache.Set(ctx, "short", []byte("1"), time.Second)
	_ = cache.Set(ctx, "long", []byte("2"), time.Hour)

	clock.Advance(time.Minute)
	if removed := cache.Sweep(); removed != 1 {
		t.Fatalf("Sweep() removed %d, want 1", removed)
	}
	if _, ok, _ := cache.Get(ctx, "long"); !ok {
		t.Fatalf("long-lived entry should survive sweep")
	}
}

func TestCacheIgnoresNonPositiveTTL(t *testing.T) {
	cache := NewCache(clockz.NewFakeClock())
	ctx := context.Background()
	_ = cache.Set(ctx, "k", []byte("v"), 0)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatalf("zero ttl should not store")
	}
}
