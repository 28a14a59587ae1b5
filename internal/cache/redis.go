package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces aggregate entries so SCAN-based status and clear-all
// never touch unrelated keys in a shared Redis.
const keyPrefix = "agg-cache:"

// RedisStore persists entries with Redis-native expiry. The expiresAt field
// is still stored and checked on read so semantics match MemoryStore even if
// Redis expiry lags.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	if entry.expired(s.now()) {
		return nil, nil
	}
	return &entry, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	now := s.now()
	entry := Entry{
		Key:       key,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Status(ctx context.Context, sample int) (int64, []string, error) {
	if sample < 0 {
		sample = 0
	}

	var (
		count int64
		keys  []string
	)
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
		if len(keys) < sample {
			keys = append(keys, iter.Val()[len(keyPrefix):])
		}
	}
	if err := iter.Err(); err != nil {
		return 0, nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return count, keys, nil
}

func (s *RedisStore) Clear(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = keyPrefix + key
	}
	cleared, err := s.client.Del(ctx, prefixed...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache keys: %w", err)
	}
	return cleared, nil
}

func (s *RedisStore) ClearAll(ctx context.Context) (int64, error) {
	var cleared int64
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		deleted, err := s.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return cleared, fmt.Errorf("failed to clear cache keys: %w", err)
		}
		cleared += deleted
	}
	if err := iter.Err(); err != nil {
		return cleared, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return cleared, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
