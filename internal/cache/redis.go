package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisCache реализует Cache поверх Redis.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCache создает новый Redis-кэш и проверяет соединение.
func NewRedisCache(addr, password string, db int, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", addr)
	return &RedisCache{client: client, log: log}, nil
}

// Close закрывает соединение с Redis
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Get возвращает значение ключа из Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		c.log.Errorw("Error getting key from Redis", "error", err, "key", key)
		return nil, false, fmt.Errorf("cache: failed to get key: %w", err)
	}
	return data, true, nil
}

// Set сохраняет значение ключа в Redis.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Errorw("Failed to set key in Redis", "error", err, "key", key)
		return fmt.Errorf("cache: failed to set key: %w", err)
	}
	return nil
}

// Delete удаляет ключ из Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Errorw("Failed to delete key from Redis", "error", err, "key", key)
		return fmt.Errorf("cache: failed to delete key: %w", err)
	}
	return nil
}

// Incr атомарно увеличивает счетчик; TTL ставится только новому ключу.
func (c *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Errorw("Failed to increment key in Redis", "error", err, "key", key)
		return 0, fmt.Errorf("cache: failed to increment key: %w", err)
	}
	return incr.Val(), nil
}
