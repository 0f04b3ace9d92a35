package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/errors"
)

// Redis stores blobs as plain string keys: {prefix}{key}. Keys never expire.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client. prefix is prepended to every key.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis connects to cfg.RedisAddr and verifies the connection with PING.
func OpenRedis(ctx context.Context, cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return NewRedis(client, cfg.RedisKeyPrefix), nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get returns the blob stored under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(fmt.Errorf("failed to get %s: %w", key, err))
	}
	return data, true, nil
}

// Set stores value under key without a TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to set %s: %w", key, err))
	}
	return nil
}

// Remove deletes key.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to delete %s: %w", key, err))
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
