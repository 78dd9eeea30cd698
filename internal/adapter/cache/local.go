package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/ports"
)

type localItem struct {
	raw      string
	deadline time.Time
}

func (i localItem) stale(now time.Time) bool {
	return !i.deadline.IsZero() && !now.Before(i.deadline)
}

// LocalCache is the in-process panel store used when Redis is disabled.
// A zero expiration on Set falls back to the default ttl, as WithTTL does for Redis.
type LocalCache struct {
	mu    sync.Mutex
	items map[string]localItem
	ttl   time.Duration
	now   func() time.Time
}

// NewLocalCache returns an empty store. ttl <= 0 keeps entries until overwritten.
func NewLocalCache(ttl time.Duration, log *zap.Logger) *LocalCache {
	log.Info("Redis disabled, keeping panel in process", zap.Duration("ttl", ttl))
	return &LocalCache{
		items: make(map[string]localItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", ports.ErrCacheMiss
	}
	if item.stale(c.now()) {
		delete(c.items, key)
		return "", ports.ErrCacheMiss
	}
	return item.raw, nil
}

func (c *LocalCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	if expiration == 0 {
		expiration = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item := localItem{raw: raw}
	if expiration > 0 {
		item.deadline = c.now().Add(expiration)
	}
	c.items[key] = item
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Ping() error  { return nil }
func (c *LocalCache) Close() error { return nil }

// encodeValue stores strings and bytes as is and everything else as JSON,
// matching what go-redis writes for the same values.
func encodeValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("cache: encode value: %w", err)
	}
	return string(data), nil
}

var _ ports.Cache = (*LocalCache)(nil)
