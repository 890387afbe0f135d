package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ResultCache stores redaction results in Redis keyed by payload hash, so
// identical payloads are redacted once across runs
type ResultCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a new Redis-based result cache
func NewResultCache(config *Config, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	cache := NewResultCacheWithClient(redis.NewClient(opts), config, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.client.Ping(ctx).Err(); err != nil {
		cache.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// NewResultCacheWithClient wraps an existing client without checking it
func NewResultCacheWithClient(client *redis.Client, config *Config, logger *zap.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		config: config,
		logger: logger,
	}
}

// Key returns the Redis key for a payload hash
func (rc *ResultCache) Key(hash string) string {
	if len(hash) > 32 {
		hash = hash[:32]
	}
	return fmt.Sprintf("%s:rec:%s", rc.config.KeyPrefix, hash)
}

// GetBatch looks up many payload hashes in one round trip. Missing and
// undecodable entries are simply absent from the returned map.
func (rc *ResultCache) GetBatch(ctx context.Context, hashes []string) (map[string]*CachedResult, error) {
	found := make(map[string]*CachedResult, len(hashes))
	if len(hashes) == 0 {
		return found, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = rc.Key(h)
	}

	values, err := rc.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			rc.misses.Add(1)
			continue
		}

		var result CachedResult
		if err := json.Unmarshal([]byte(s), &result); err != nil {
			rc.logger.Warn("Dropping corrupted cache entry", zap.String("key", keys[i]), zap.Error(err))
			rc.client.Del(ctx, keys[i])
			rc.misses.Add(1)
			continue
		}

		rc.hits.Add(1)
		found[hashes[i]] = &result
	}

	return found, nil
}

// StoreBatch caches multiple results using a Redis pipeline
func (rc *ResultCache) StoreBatch(ctx context.Context, results map[string]*CachedResult) error {
	if len(results) == 0 {
		return nil
	}

	pipe := rc.client.Pipeline()
	now := time.Now()

	for hash, result := range results {
		result.CachedAt = now
		data, err := json.Marshal(result)
		if err != nil {
			rc.logger.Error("Failed to marshal result for caching", zap.Error(err))
			continue
		}
		pipe.Set(ctx, rc.Key(hash), data, rc.config.DefaultTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch cache operation failed: %w", err)
	}

	rc.logger.Debug("Batch cache operation completed", zap.Int("cached_results", len(results)))
	return nil
}

// GetStats returns cache performance statistics
func (rc *ResultCache) GetStats(ctx context.Context) (*CacheStats, error) {
	info, err := rc.client.Info(ctx, "memory").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &CacheStats{
		Hits:        rc.hits.Load(),
		Misses:      rc.misses.Load(),
		MemoryUsage: parseUsedMemory(info),
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	if keys, err := rc.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes all cached results under the key prefix
func (rc *ResultCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.config.KeyPrefix+":rec:*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := min(i+batchSize, len(keys))
		if err := rc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	rc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (rc *ResultCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if memStr, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
				return mem
			}
		}
	}
	return 0
}

// maskRedisURL masks the password in a Redis URL for logging
func maskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid url]"
	}
	return u.Redacted()
}
