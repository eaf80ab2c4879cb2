package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/salesscope/internal/infrastructure/resilience"
)

const scanBatch = 500

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Cache stores analytics payloads as plain string values with a TTL.
type Cache struct {
	client   goredis.UniversalClient
	executor *resilience.Executor
}

func NewCache(client goredis.UniversalClient, executor *resilience.Executor) *Cache {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultPolicy())
	}
	return &Cache{client: client, executor: executor}
}

type lookup struct {
	value []byte
	ok    bool
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := resilience.Call(ctx, c.executor, "redis.get", resilience.Transient, func(ctx context.Context) (lookup, error) {
		value, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return lookup{}, nil
		}
		if err != nil {
			return lookup{}, err
		}
		return lookup{value: value, ok: true}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return res.value, res.ok, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.executor.Run(ctx, "redis.set", resilience.Transient, func(ctx context.Context) error {
		return c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix. It walks the keyspace with SCAN
// so large keyspaces never block the server.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(prefix) + "*"
	var cursor uint64
	for {
		var keys []string
		err := c.executor.Run(ctx, "redis.scan", resilience.Transient, func(ctx context.Context) error {
			var err error
			keys, cursor, err = c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
			return err
		})
		if err != nil {
			return fmt.Errorf("redis scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			err := c.executor.Run(ctx, "redis.del", resilience.Transient, func(ctx context.Context) error {
				return c.client.Del(ctx, keys...).Err()
			})
			if err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
