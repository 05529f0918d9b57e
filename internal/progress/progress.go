// Package progress хранит счётчики успешных операций job'ов в Redis.
//
// Оба воркера job'а увеличивают один счётчик INCRBY, поэтому инкременты
// атомарны без блокировок на стороне процесса.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keepalive9s/taobao/internal/config"
)

const (
	keyPrefix = "taoshelf:progress:"

	// defaultTTL страхует от ключей, оставшихся после упавшей финализации.
	defaultTTL = 48 * time.Hour
)

// NewClient подключается к Redis и проверяет соединение.
func NewClient(ctx context.Context, cfg config.RedisCfg) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisCounter — счётчик прогресса по id task'а.
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCounter создаёт RedisCounter поверх готового клиента.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client, ttl: defaultTTL}
}

// Reset выставляет счётчик в 0.
func (c *RedisCounter) Reset(ctx context.Context, id string) error {
	if err := c.client.Set(ctx, key(id), 0, c.ttl).Err(); err != nil {
		return fmt.Errorf("reset counter %s: %w", id, err)
	}
	return nil
}

// Increment атомарно прибавляет delta.
func (c *RedisCounter) Increment(ctx context.Context, id string, delta int64) error {
	if err := c.client.IncrBy(ctx, key(id), delta).Err(); err != nil {
		return fmt.Errorf("increment counter %s: %w", id, err)
	}
	return nil
}

// Read возвращает текущее значение. Отсутствующий ключ читается как 0.
func (c *RedisCounter) Read(ctx context.Context, id string) (int64, error) {
	n, err := c.client.Get(ctx, key(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", id, err)
	}
	return n, nil
}

// Delete удаляет счётчик.
func (c *RedisCounter) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete counter %s: %w", id, err)
	}
	return nil
}

func key(id string) string {
	return keyPrefix + id
}
