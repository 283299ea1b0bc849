package imageinfo

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Cache stores classification results keyed by cacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (ProcessedImage, bool)
	Set(ctx context.Context, key string, info ProcessedImage)
}

// cacheKey is the exact URL, except for data URLs which are keyed by the
// sha256 digest of the whole URL so large payloads are not held twice.
func cacheKey(rawURL string) string {
	if strings.HasPrefix(rawURL, "data:") {
		sum := sha256.Sum256([]byte(rawURL))
		return "sha256:" + hex.EncodeToString(sum[:])
	}
	return rawURL
}

// LRU is a bounded, concurrency-safe in-process cache.
type LRU struct {
	mu    sync.Mutex
	size  int
	ll    *list.List
	items map[string]*list.Element
}

type lruEntry struct {
	key  string
	info ProcessedImage
}

// NewLRU creates an LRU holding at most size entries (minimum 1).
func NewLRU(size int) *LRU {
	return &LRU{
		size:  max(size, 1),
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *LRU) Get(_ context.Context, key string) (ProcessedImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return ProcessedImage{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).info, true
}

func (c *LRU) Set(_ context.Context, key string, info ProcessedImage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).info = info
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&lruEntry{key: key, info: info})
	for c.ll.Len() > c.size {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Tiered checks each layer in order. A hit in a lower layer is copied into
// the layers above it.
type Tiered struct {
	layers []Cache
}

// NewTiered creates a cache over layers, fastest first. Nil layers are skipped.
func NewTiered(layers ...Cache) *Tiered {
	t := &Tiered{}
	for _, l := range layers {
		if l != nil {
			t.layers = append(t.layers, l)
		}
	}
	return t
}

func (t *Tiered) Get(ctx context.Context, key string) (ProcessedImage, bool) {
	for i, layer := range t.layers {
		if info, ok := layer.Get(ctx, key); ok {
			for _, upper := range t.layers[:i] {
				upper.Set(ctx, key, info)
			}
			return info, true
		}
	}
	return ProcessedImage{}, false
}

func (t *Tiered) Set(ctx context.Context, key string, info ProcessedImage) {
	for _, layer := range t.layers {
		layer.Set(ctx, key, info)
	}
}
