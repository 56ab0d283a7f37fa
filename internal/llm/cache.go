package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"paperforge/internal/providers"
)

const cacheKeyPrefix = "paperforge:completion:"

// Cache stores completion results in redis keyed by a hash of the request.
// Cached responses are billed at zero cost.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *Cache) Get(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResult, bool) {
	raw, err := c.client.Get(ctx, cacheKey(req)).Bytes()
	if err != nil {
		return providers.CompletionResult{}, false
	}
	var res providers.CompletionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return providers.CompletionResult{}, false
	}
	res.CacheHit = true
	res.Cost = 0
	return res, true
}

func (c *Cache) Put(ctx context.Context, req providers.CompletionRequest, res providers.CompletionResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(req), raw, c.ttl).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func cacheKey(req providers.CompletionRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(req.SystemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
