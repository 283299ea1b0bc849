package imageinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "imageinfo:"

// RedisClient is the subset of *redis.Client used by RedisCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares classification results between server instances.
// Redis errors are logged and treated as misses.
type RedisCache struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisCache wraps client. Entries expire after ttl (0 keeps them forever).
func NewRedisCache(client RedisClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and applies short timeouts so a slow
// cache never holds up rendering.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return redis.NewClient(opts), nil
}

type redisEntry struct {
	IsPortrait  bool    `json:"p"`
	AspectRatio float64 `json:"r"`
	Width       int     `json:"w"`
	Height      int     `json:"h"`
}

func (c *RedisCache) Get(ctx context.Context, key string) (ProcessedImage, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ProcessedImage{}, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("image cache: redis get failed")
		return ProcessedImage{}, false
	}
	var e redisEntry
	if err := json.Unmarshal(data, &e); err != nil {
		log.Warn().Err(err).Msg("image cache: corrupt redis entry")
		return ProcessedImage{}, false
	}
	return ProcessedImage{
		IsPortrait:  e.IsPortrait,
		AspectRatio: e.AspectRatio,
		Width:       e.Width,
		Height:      e.Height,
		Loaded:      true,
	}, true
}

func (c *RedisCache) Set(ctx context.Context, key string, info ProcessedImage) {
	data, err := json.Marshal(redisEntry{
		IsPortrait:  info.IsPortrait,
		AspectRatio: info.AspectRatio,
		Width:       info.Width,
		Height:      info.Height,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("image cache: redis set failed")
	}
}
