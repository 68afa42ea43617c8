// Package cache stores model responses keyed by prompt and model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Key identifies a cached response.
type Key struct {
	Prompt string
	Model  string
}

// Digest returns a fixed-length identifier for k, used where the raw prompt
// is too large to serve as a key.
func (k Key) Digest() string {
	h := sha256.New()
	h.Write([]byte(k.Model))
	h.Write([]byte{0})
	h.Write([]byte(k.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is the response cache consumed by the model client. Implementations
// must be safe for concurrent use. A failing backend reports a miss.
type Cache interface {
	Get(ctx context.Context, key Key) (string, bool)
	Set(ctx context.Context, key Key, value string)
}

// Unbounded is an insert-only in-process cache that lives as long as the
// process. Concurrent writers of one key race and the last write wins.
type Unbounded struct {
	mu      sync.RWMutex
	entries map[Key]string
}

func NewUnbounded() *Unbounded {
	return &Unbounded{entries: make(map[Key]string)}
}

func (c *Unbounded) Get(_ context.Context, key Key) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Unbounded) Set(_ context.Context, key Key, value string) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *Unbounded) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
