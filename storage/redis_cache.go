package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const locationKeyPrefix = "rightmove:typeahead:"

// RedisLocationCache keeps typeahead results so repeated runs over the same
// cities skip the lookup.
type RedisLocationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocationCache(addr, password string, db int, ttl time.Duration) *RedisLocationCache {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisLocationCache{rdb: rdb, ttl: ttl}
}

func (c *RedisLocationCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisLocationCache) GetLocations(ctx context.Context, query string) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, locationKeyPrefix+query).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get %q: %w", query, err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, fmt.Errorf("redis: decode %q: %w", query, err)
	}
	return ids, true, nil
}

func (c *RedisLocationCache) SetLocations(ctx context.Context, query string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, locationKeyPrefix+query, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", query, err)
	}
	return nil
}

func (c *RedisLocationCache) Close() error {
	return c.rdb.Close()
}
