package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wardgate/internal/ratelimit/models"
	"wardgate/internal/sentinel"
)

const (
	keyPrefixWindow     = "wardgate:rl:req:"
	keyPrefixSuspicious = "wardgate:rl:sus:"
	keyPrefixBlock      = "wardgate:rl:block:"
)

// observeScript prunes, checks, and conditionally records in one atomic step
// so replicas sharing the store cannot both take the last slot in a window.
// Returns {allowed, count, oldest score in ms}.
var observeScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[3]) then
  redis.call('ZADD', KEYS[1], tonumber(ARGV[1]), ARGV[4])
  redis.call('PEXPIRE', KEYS[1], tonumber(ARGV[2]))
  allowed = 1
  count = count + 1
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if oldest[2] == nil then
  return {allowed, count, 0}
end
return {allowed, count, oldest[2]}
`)

var suspiciousScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
redis.call('ZADD', KEYS[1], tonumber(ARGV[1]), ARGV[3])
redis.call('PEXPIRE', KEYS[1], tonumber(ARGV[2]))
return redis.call('ZCARD', KEYS[1])
`)

// RedisStore keeps windows and blocks in the shared store so limits hold
// across instances. Windows are sorted sets scored by event time in
// milliseconds; blocks are plain keys whose TTL is the block duration.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps a connected redis client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) ObserveRequest(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (*Observation, error) {
	raw, err := observeScript.Run(ctx, s.client,
		[]string{keyPrefixWindow + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("observe request window: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("observe request window: unexpected reply shape")
	}

	allowed, _ := raw[0].(int64)
	count, _ := raw[1].(int64)
	oldestMillis, err := scriptInt(raw[2])
	if err != nil {
		return nil, fmt.Errorf("observe request window: %w", err)
	}

	obs := &Observation{Allowed: allowed == 1, Count: int(count)}
	if oldestMillis > 0 {
		obs.OldestAt = time.UnixMilli(oldestMillis)
	}
	return obs, nil
}

func (s *RedisStore) AddSuspicious(ctx context.Context, identifier string, now time.Time, window time.Duration) (int, error) {
	count, err := suspiciousScript.Run(ctx, s.client,
		[]string{keyPrefixSuspicious + identifier},
		now.UnixMilli(), window.Milliseconds(), uuid.NewString(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("record suspicion event: %w", err)
	}
	return count, nil
}

func (s *RedisStore) SetBlock(ctx context.Context, block models.Block) error {
	ttl := time.Until(block.BlockedUntil)
	if ttl <= 0 {
		return nil
	}
	err := s.client.Set(ctx, keyPrefixBlock+block.Identifier,
		strconv.FormatInt(block.BlockedUntil.UnixMilli(), 10), ttl).Err()
	if err != nil {
		return fmt.Errorf("set block: %w", err)
	}
	return nil
}

func (s *RedisStore) GetBlock(ctx context.Context, identifier string) (*models.Block, error) {
	raw, err := s.client.Get(ctx, keyPrefixBlock+identifier).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read block: %w", err)
	}
	untilMillis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse block expiry: %w", err)
	}
	return &models.Block{Identifier: identifier, BlockedUntil: time.UnixMilli(untilMillis)}, nil
}

// Prune is a no-op for redis: window keys and blocks expire via TTL.
func (s *RedisStore) Prune(_ context.Context, _ time.Time, _ time.Duration) (int, error) {
	return 0, nil
}

// scriptInt handles Lua replies that arrive as int64 or bulk string
// depending on the server.
func scriptInt(v any) (int64, error) {
	switch typed := v.(type) {
	case int64:
		return typed, nil
	case string:
		return strconv.ParseInt(typed, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected script reply type %T", v)
	}
}
