package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"hesapla/backend/internal/pricing"
)

type RedisSimulationCache struct {
	client *redis.Client
}

func NewRedisSimulationCache(addr string, password string, db int) *RedisSimulationCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSimulationCache{client: client}
}

func (c *RedisSimulationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSimulationCache) Close() error {
	return c.client.Close()
}

func (c *RedisSimulationCache) Get(ctx context.Context, key string) (*pricing.Simulation, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var sim pricing.Simulation
	if err := json.Unmarshal(val, &sim); err != nil {
		return nil, false, err
	}
	return &sim, true, nil
}

func (c *RedisSimulationCache) Set(ctx context.Context, key string, value *pricing.Simulation, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
