package blob

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces object keys inside a shared Redis database.
const DefaultRedisPrefix = "committee:blob:"

// RedisStore keeps objects as plain Redis string values.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore builds a client for the Redis server at rawURL (redis://...).
// No connection is made here; an unreachable server surfaces on first use,
// where the metadata stores fall back to memory.
func NewRedisStore(rawURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("blob: parse redis url: %w", err)
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// Ping checks that the server answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("blob: ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Get returns the object stored at key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("blob: get %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("blob: get %s: %w", key, err)
	}
	return data, nil
}

// Put stores data at key without expiry. The content type is not kept.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte, _ string) (Object, error) {
	if err := s.rdb.Set(ctx, s.redisKey(key), data, 0).Err(); err != nil {
		return Object{}, fmt.Errorf("blob: put %s: %w", key, err)
	}
	return Object{Key: key, URL: "redis://" + s.redisKey(key), Size: len(data)}, nil
}

// Delete removes the object at key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.rdb.Del(ctx, s.redisKey(key)).Result()
	if err != nil {
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("blob: delete %s: %w", key, ErrNotFound)
	}
	return nil
}

// Keys lists stored keys with the given prefix, ordered by key.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, escapeGlob(s.redisKey(prefix))+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("blob: scan %s: %w", prefix, err)
	}
	slices.Sort(keys)
	return keys, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
