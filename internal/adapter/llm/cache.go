package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProvider memoizes Send responses of the wrapped provider. Stream
// calls pass straight through.
type CachedProvider struct {
	Provider
	cache   *cache.Cache
	maxSize int
}

// NewCachedProvider wraps p with a response cache. maxSize <= 0 means no
// limit on the number of entries.
func NewCachedProvider(p Provider, ttl time.Duration, maxSize int) *CachedProvider {
	return &CachedProvider{
		Provider: p,
		cache:    cache.New(ttl, 2*ttl),
		maxSize:  maxSize,
	}
}

// Send returns a cached response for an identical request, or calls the
// wrapped provider and stores its answer.
func (c *CachedProvider) Send(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	key, err := c.key(messages, opts)
	if err != nil {
		return c.Provider.Send(ctx, messages, opts...)
	}
	if v, ok := c.cache.Get(key); ok {
		resp := v.(Response)
		return &resp, nil
	}

	resp, err := c.Provider.Send(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
	}
	if c.maxSize <= 0 || c.cache.ItemCount() < c.maxSize {
		c.cache.Set(key, *resp, cache.DefaultExpiration)
	}
	return resp, nil
}

// Len returns the number of cached responses.
func (c *CachedProvider) Len() int {
	return c.cache.ItemCount()
}

type cacheKey struct {
	Model       string    `json:"model"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Messages    []Message `json:"messages"`
}

func (c *CachedProvider) key(messages []Message, opts []Option) (string, error) {
	call := CallOptions{Model: c.Describe().Name}
	for _, opt := range opts {
		opt(&call)
	}
	data, err := json.Marshal(cacheKey{
		Model:       call.Model,
		MaxTokens:   call.MaxTokens,
		Temperature: call.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
