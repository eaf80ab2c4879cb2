package metrics

import (
	"context"
	"time"

	"github.com/kirillkom/salesscope/internal/core/ports"
)

type CacheRecorder interface {
	RecordCacheLookup(service, result string)
}

// ObservedCache counts hits, misses and errors of the wrapped analytics cache.
type ObservedCache struct {
	next     ports.AnalyticsCache
	recorder CacheRecorder
	service  string
}

func NewObservedCache(next ports.AnalyticsCache, recorder CacheRecorder, service string) *ObservedCache {
	return &ObservedCache{next: next, recorder: recorder, service: service}
}

func (c *ObservedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := c.next.Get(ctx, key)
	switch {
	case err != nil:
		c.recorder.RecordCacheLookup(c.service, "error")
	case ok:
		c.recorder.RecordCacheLookup(c.service, "hit")
	default:
		c.recorder.RecordCacheLookup(c.service, "miss")
	}
	return value, ok, err
}

func (c *ObservedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.next.Set(ctx, key, value, ttl)
}

func (c *ObservedCache) DeletePrefix(ctx context.Context, prefix string) error {
	return c.next.DeletePrefix(ctx, prefix)
}
