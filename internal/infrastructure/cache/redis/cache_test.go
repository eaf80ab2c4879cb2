package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/salesscope/internal/infrastructure/resilience"
)

func TestEscapeGlob(t *testing.T) {
	got := escapeGlob(`analytics:a*b?[c]\:`)
	want := `analytics:a\*b\?\[c\]\\:`
	if got != want {
		t.Fatalf("escapeGlob() = %q, want %q", got, want)
	}
}

func TestGetWrapsTransportErrors(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cache := NewCache(client, resilience.NewExecutor(resilience.Policy{
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}))

	_, ok, err := cache.Get(context.Background(), "analytics:ds-1:{}")
	if err == nil {
		t.Fatalf("expected error against an unreachable redis")
	}
	if ok {
		t.Fatalf("failed lookup must not report a hit")
	}
}
