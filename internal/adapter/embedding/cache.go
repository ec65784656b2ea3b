package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// cacheKeyPrefix is how much of the text feeds the cache key. Chunks
// rarely share a 100-character prefix, and hashing the whole chunk on
// every lookup is wasted work.
const cacheKeyPrefix = 100

// Cached wraps a Provider with a bounded content-addressed cache.
// When the cache grows past capacity it drops the oldest fifth by
// insertion order: deterministic and bounded, not strict LRU.
type Cached struct {
	inner Provider
	cap   int

	mu      sync.Mutex
	entries map[string][]float32
	order   []string
}

func NewCached(inner Provider, capacity int) *Cached {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cached{
		inner:   inner,
		cap:     capacity,
		entries: make(map[string][]float32, capacity),
	}
}

func (c *Cached) Name() string   { return c.inner.Name() }
func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	c.mu.Lock()
	if vec, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return cloneVec(vec), nil
	}
	c.mu.Unlock()

	vec, err := c.inner.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.put(key, vec)
	c.mu.Unlock()
	return cloneVec(vec), nil
}

func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missIdx []int
	var missTexts []string

	c.mu.Lock()
	for i, t := range texts {
		keys[i] = cacheKey(t)
		if vec, ok := c.entries[keys[i]]; ok {
			out[i] = cloneVec(vec)
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, t)
		}
	}
	c.mu.Unlock()

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for j, i := range missIdx {
		c.put(keys[i], vecs[j])
		out[i] = cloneVec(vecs[j])
	}
	c.mu.Unlock()
	return out, nil
}

// Len reports how many vectors are currently cached.
func (c *Cached) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// put stores a vector and evicts if over capacity. Caller holds c.mu.
func (c *Cached) put(key string, vec []float32) {
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = cloneVec(vec)
	c.order = append(c.order, key)

	if len(c.entries) <= c.cap {
		return
	}
	drop := c.cap / 5
	if drop < 1 {
		drop = 1
	}
	for _, k := range c.order[:drop] {
		delete(c.entries, k)
	}
	c.order = c.order[drop:]
}

func cacheKey(text string) string {
	if len(text) > cacheKeyPrefix {
		text = text[:cacheKeyPrefix]
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
