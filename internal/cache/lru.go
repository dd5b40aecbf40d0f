package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// item 包装缓存数据和过期时间
type item struct {
	data      []byte
	expiresAt time.Time
}

// LRU 进程内缓存，容量满时淘汰最久未用的条目
type LRU struct {
	lruCache *lru.Cache[string, item]
	ttl      time.Duration
	now      func() time.Time
}

func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRU{lruCache: l, ttl: ttl, now: time.Now}, nil
}

// Get 获取缓存，不存在或已过期返回 false
func (c *LRU) Get(_ context.Context, key string) ([]byte, bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		return nil, false
	}
	return val.data, true
}

func (c *LRU) Set(_ context.Context, key string, data []byte) {
	c.lruCache.Add(key, item{
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	})
}

func (c *LRU) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		c.lruCache.Remove(k)
	}
}
