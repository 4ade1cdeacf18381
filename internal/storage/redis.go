package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the redis backend.
var ErrRedisUnavailable = errors.New("storage: redis unavailable")

const scanBatch = 200

// RedisStore keeps keys as plain redis strings under "<prefix>:<key>".
// It lets several portal replicas share workspaces.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "erp-portal"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.redis.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"
	strip := s.prefix + ":"

	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, strip))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Strings(keys)
	return dedupe(keys), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SCAN may return a key more than once; keys must be sorted.
func dedupe(keys []string) []string {
	out := keys[:0]
	for i, k := range keys {
		if i > 0 && k == keys[i-1] {
			continue
		}
		out = append(out, k)
	}
	return out
}
