package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelic/skyfare/config"
	"github.com/avelic/skyfare/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

// RecordLoginFailure bumps the per-address failure counter and returns the
// new count. The TTL starts on the first failure in the window.
func (c *RedisCache) RecordLoginFailure(ctx context.Context, addr string, ttl time.Duration) (int64, error) {
	key := lockoutKey(addr)
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (c *RedisCache) LoginFailures(ctx context.Context, addr string) (int64, error) {
	count, err := c.client.Get(ctx, lockoutKey(addr)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (c *RedisCache) ClearLoginFailures(ctx context.Context, addr string) error {
	return c.client.Del(ctx, lockoutKey(addr)).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func lockoutKey(addr string) string {
	return fmt.Sprintf("lockout:login:%s", addr)
}
