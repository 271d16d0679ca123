package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOpTimeout bounds each Redis call; a slow cache must not slow the CLI.
const redisOpTimeout = 500 * time.Millisecond

// RedisStore is a Backend on a shared Redis instance, for workstations where
// several agents run the CLI against the same store.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. addr accepts "host:port" or a
// redis:// URL.
func NewRedisStore(addr, key, storeURL string, ttl time.Duration) *RedisStore {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	hash := sha1.Sum([]byte(storeURL))
	return &RedisStore{
		client: redis.NewClient(opts),
		key:    fmt.Sprintf("trueblue:%s:%s", hex.EncodeToString(hash[:6]), sanitizeKey(key)),
		ttl:    ttl,
	}
}

// Get loads cached items into dst. Returns false on miss, Redis error, or
// when caching is disabled.
func (s *RedisStore) Get(dst any) bool {
	if disabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// Put writes items with the store TTL. Silently no-ops on error or when disabled.
func (s *RedisStore) Put(items any) {
	if disabled() {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	_ = s.client.Set(ctx, s.key, data, s.ttl).Err()
}

// Clear removes this cache key.
func (s *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	_ = s.client.Del(ctx, s.key).Err()
}

// Close releases the client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
