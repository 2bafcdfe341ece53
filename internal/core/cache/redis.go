package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	RDB *redis.Client
	sf  singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache { return &Cache{RDB: rdb} }

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

// GetOrLoad reads key, falling back to load on a miss. Concurrent misses on
// the same key share one load. Redis being down degrades to always loading.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	// 先读缓存
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		return b, nil
	} else if !errors.Is(err, redis.Nil) {
		cacheErrors.Inc()
	}
	// single flight 合并回源
	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		_ = c.RDB.Set(ctx, key, b, ttl).Err()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops keys after the underlying rows changed.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.RDB.Del(ctx, keys...).Err()
}

// InvalidateTwice drops keys now and once more after delay. A load that read
// the old row before the write committed may still Set it in between; the
// second delete removes that value.
func (c *Cache) InvalidateTwice(ctx context.Context, delay time.Duration, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	// 请求结束后 ctx 可能被回收，延迟删除用独立 ctx
	time.AfterFunc(delay, func() {
		dctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.Invalidate(dctx, keys...); err != nil {
			cacheErrors.Inc()
		}
	})
	return c.Invalidate(ctx, keys...)
}
