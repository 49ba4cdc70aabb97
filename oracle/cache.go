package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// ResponseCache wraps a Client with a bounded in-process cache keyed by a
// fingerprint of prompt plus options, so identical inference requests do
// not hit the oracle twice. Errors are never cached.
type ResponseCache struct {
	inner   Client
	maxSize int

	mu      sync.Mutex
	entries map[string]string
	order   []string // insertion order for eviction
}

// NewResponseCache wraps inner with a cache holding at most maxSize
// responses. The oldest entry is evicted first.
func NewResponseCache(inner Client, maxSize int) *ResponseCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &ResponseCache{
		inner:   inner,
		maxSize: maxSize,
		entries: make(map[string]string),
	}
}

// Generate returns the cached response for an identical request, or calls
// through and stores the result.
func (c *ResponseCache) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	key := fingerprint(prompt, opts)

	c.mu.Lock()
	if cached, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	text, err := c.inner.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[key] = text
		c.order = append(c.order, key)
	}
	c.mu.Unlock()

	return text, nil
}

// Clear drops every cached response.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.order = nil
	c.mu.Unlock()
}

// Len returns the number of cached responses.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func fingerprint(prompt string, opts GenerateOptions) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%.3f|%d", prompt, opts.Temperature, opts.MaxOutputTokens)))
	return hex.EncodeToString(sum[:])
}
