package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fulfillment:parcel:"

// RedisStore implements Store on top of Redis. Records are stored as JSON
// under fulfillment:parcel:<provider>:<id>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store for the given Redis URL.
// The redisURL should be in the format: redis://[:password@]host[:port][/database]
// A zero ttl keeps records forever.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func recordKeyFor(provider string, parcelID int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, provider, parcelID)
}

// Save writes rec, replacing any previous record.
func (r *RedisStore) Save(ctx context.Context, rec *StatusRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode status record: %w", err)
	}
	key := recordKeyFor(rec.Provider, rec.ParcelID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Get reads the record for a parcel or returns ErrStatusNotFound.
func (r *RedisStore) Get(ctx context.Context, provider string, parcelID int64) (*StatusRecord, error) {
	key := recordKeyFor(provider, parcelID)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s parcel %d", ErrStatusNotFound, provider, parcelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var rec StatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode status record %s: %w", key, err)
	}
	return &rec, nil
}

// Ping checks if Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
