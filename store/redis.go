package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// RedisKVStore implements jaat.KVStore on Redis.
// Keys are laid out as "{prefix}:{namespace}:{key}".
type RedisKVStore struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	Prefix  string        // key prefix, default "jaat"
	TTL     time.Duration // expiry applied on every write, 0 = no expiry
	Timeout time.Duration // per-call timeout, default 2s
}

// NewRedisKVStore creates a KVStore backed by an existing client.
// Works with *redis.Client, *redis.ClusterClient and *redis.Ring.
func NewRedisKVStore(client redis.UniversalClient, config ...RedisStoreConfig) *RedisKVStore {
	cfg := RedisStoreConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "jaat"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &RedisKVStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, timeout: cfg.Timeout}
}

// OpenRedis parses a redis:// URL, pings the server and wraps the client.
func OpenRedis(ctx context.Context, url string, config ...RedisStoreConfig) (*RedisKVStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisKVStore(client, config...), nil
}

func (r *RedisKVStore) key(namespace, key string) string {
	return r.prefix + ":" + namespace + ":" + key
}

func (r *RedisKVStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisKVStore) Get(namespace, key string) (string, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	val, err := r.client.Get(ctx, r.key(namespace, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(namespace, key, value string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, r.key(namespace, key), value, r.ttl).Err()
}

func (r *RedisKVStore) Delete(namespace, key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, r.key(namespace, key)).Err()
}

// ListKeys walks the namespace with SCAN and returns the bare keys, sorted.
func (r *RedisKVStore) ListKeys(namespace string) ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	prefix := r.prefix + ":" + namespace + ":"
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if k := strings.TrimPrefix(iter.Val(), prefix); k != "" {
			keys = append(keys, k)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the underlying client.
func (r *RedisKVStore) Close() error {
	return r.client.Close()
}

var _ jaat.KVStore = (*RedisKVStore)(nil)
