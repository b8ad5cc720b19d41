package mcq

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/preppro/backend/internal/logger"
	"github.com/preppro/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// Cache stores generated question sets. Backend failures are treated as
// misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.MCQ, bool)
	Set(ctx context.Context, key string, qs []models.MCQ)
}

// CacheKey identifies a request by its text, difficulty and size.
func CacheKey(text string, difficulty models.Difficulty, n int) string {
	sum := md5.Sum([]byte(text + "_" + string(difficulty)))
	return fmt.Sprintf("%s:%d", hex.EncodeToString(sum[:]), n)
}

type memoryItem struct {
	qs      []models.MCQ
	expires time.Time
}

// MemoryCache is an in-process TTL map.
type MemoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, items: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]models.MCQ, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().After(it.expires) {
		delete(c.items, key)
		return nil, false
	}
	return append([]models.MCQ(nil), it.qs...), true
}

func (c *MemoryCache) Set(_ context.Context, key string, qs []models.MCQ) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryItem{qs: append([]models.MCQ(nil), qs...), expires: c.now().Add(c.ttl)}
}

const redisPrefix = "mcq:"

// RedisCache keeps entries in Redis under mcq:<key> with an expiry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.MCQ, bool) {
	data, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("[mcq] redis get %s: %v", key, err)
		}
		return nil, false
	}
	var qs []models.MCQ
	if err := json.Unmarshal(data, &qs); err != nil {
		logger.Warnf("[mcq] corrupt cache entry %s: %v", key, err)
		return nil, false
	}
	return qs, true
}

func (c *RedisCache) Set(ctx context.Context, key string, qs []models.MCQ) {
	data, err := json.Marshal(qs)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisPrefix+key, data, c.ttl).Err(); err != nil {
		logger.Warnf("[mcq] redis set %s: %v", key, err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
