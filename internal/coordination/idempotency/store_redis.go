package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idem:"

// reserveScript reads-or-creates the record in one round trip. Returns the
// existing record's JSON when one is present, or an empty string after
// writing the new reservation.
var reserveScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
  return existing
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return ''
`)

// finalizeScript transitions processing -> completed, but only while the
// caller still owns the reservation.
var finalizeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return 0
end
local rec = cjson.decode(v)
if rec.owner ~= ARGV[1] or rec.status ~= 'processing' then
  return 0
end
rec.status = 'completed'
rec.owner = nil
rec.response_status = tonumber(ARGV[2])
rec.response_body = ARGV[3]
rec.expires_at = ARGV[4]
redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ARGV[5])
return 1
`)

// releaseScript deletes the reservation if the caller still owns it.
var releaseScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return 0
end
local rec = cjson.decode(v)
if rec.owner ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// RedisStore keeps idempotency records in Redis. Expiry is store-driven:
// the key's own TTL is the reclaim mechanism for stuck processing records.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed idempotency store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(principal, key string) string {
	return redisKeyPrefix + principal + ":" + key
}

func (s *RedisStore) Reserve(ctx context.Context, rec *Record, processingTTL time.Duration) (bool, *Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, nil, fmt.Errorf("marshal record: %w", err)
	}

	res, err := reserveScript.Run(ctx, s.client,
		[]string{recordKey(rec.Principal, rec.Key)},
		string(data), processingTTL.Milliseconds(),
	).Result()
	if err != nil {
		return false, nil, fmt.Errorf("reserve idempotency record: %w", err)
	}

	raw, _ := res.(string)
	if raw == "" {
		return true, nil, nil
	}

	var existing Record
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return false, nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return false, &existing, nil
}

func (s *RedisStore) Finalize(ctx context.Context, principal, key, owner string, responseStatus int, responseBody string, recordTTL time.Duration) (bool, error) {
	expiresAt := time.Now().Add(recordTTL).UTC().Format(time.RFC3339Nano)

	res, err := finalizeScript.Run(ctx, s.client,
		[]string{recordKey(principal, key)},
		owner, responseStatus, responseBody, expiresAt, recordTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("finalize idempotency record: %w", err)
	}
	return res == 1, nil
}

func (s *RedisStore) Release(ctx context.Context, principal, key, owner string) error {
	if err := releaseScript.Run(ctx, s.client,
		[]string{recordKey(principal, key)}, owner,
	).Err(); err != nil {
		return fmt.Errorf("release idempotency record: %w", err)
	}
	return nil
}
