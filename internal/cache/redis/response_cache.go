// Package redis implements the domain.ResponseCache interface with an
// exact-match cache on Redis. Keys hash the full request parameters, so two
// requests share an entry only when model, prompt and generation settings
// are identical.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/basalt/internal/domain"
)

const keyPrefix = "basalt:result:"

// ResponseCache stores completed generation results in Redis.
type ResponseCache struct {
	client *redis.Client
}

// NewResponseCache creates a new Redis-backed response cache.
func NewResponseCache(client *redis.Client) *ResponseCache {
	return &ResponseCache{client: client}
}

// Get retrieves a cached result for an identical earlier request.
func (c *ResponseCache) Get(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	data, err := c.client.Get(ctx, cacheKey(req)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var res domain.GenerationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}

	return &res, nil
}

// Set stores a result with the given TTL.
func (c *ResponseCache) Set(ctx context.Context, req *domain.GenerationRequest, res *domain.GenerationResult, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(req), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}

	return nil
}

// cacheKey derives a stable key from every parameter that affects the
// generated output.
func cacheKey(req *domain.GenerationRequest) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%.4f|%d|%s",
		req.Model, req.Temperature, req.MaxTokens, req.Prompt))
	return keyPrefix + hex.EncodeToString(sum[:])
}
