package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type lruStore interface {
	Add(key Key, value string) bool
	Get(key Key) (string, bool)
	Len() int
	Purge()
}

// LRU is a bounded in-process cache. With a positive TTL entries also expire.
type LRU struct {
	store lruStore
}

func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	if size <= 0 {
		return nil, fmt.Errorf("lru cache size must be positive, got %d", size)
	}
	if ttl > 0 {
		return &LRU{store: expirable.NewLRU[Key, string](size, nil, ttl)}, nil
	}
	c, err := lru.New[Key, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{store: c}, nil
}

func (c *LRU) Get(_ context.Context, key Key) (string, bool) {
	return c.store.Get(key)
}

func (c *LRU) Set(_ context.Context, key Key, value string) {
	c.store.Add(key, value)
}

func (c *LRU) Len() int { return c.store.Len() }

func (c *LRU) Purge() { c.store.Purge() }
