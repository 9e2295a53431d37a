package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores short-lived values such as replayable checkout results.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get returns "" and no error when the key does not exist.
	Get(ctx context.Context, key string) (string, error)
	GenerateKey(operation string, parts ...string) string
	Ping(ctx context.Context) error
	Close() error
}

type redisCache struct {
	client      *redis.Client
	serviceName string
}

func NewRedisCache(addr, serviceName string) Cache {
	return NewFromClient(redis.NewClient(&redis.Options{Addr: addr}), serviceName)
}

func NewFromClient(client *redis.Client, serviceName string) Cache {
	return &redisCache{client: client, serviceName: serviceName}
}

func (r redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// GenerateKey namespaces a key as service:operation:part1:part2...
func (r redisCache) GenerateKey(operation string, parts ...string) string {
	return GenerateKey(r.serviceName, operation, parts...)
}

func (r redisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r redisCache) Close() error {
	return r.client.Close()
}

func GenerateKey(service, operation string, parts ...string) string {
	key := fmt.Sprintf("%s:%s", service, operation)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
