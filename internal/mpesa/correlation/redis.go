package correlation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mpesa:correlation:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by a shared redis instance, suitable
// for multi-instance deployments.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Put(ctx context.Context, checkoutRequestID string, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+checkoutRequestID, payload, s.ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, checkoutRequestID string) (*Entry, error) {
	payload, err := s.client.Get(ctx, keyPrefix+checkoutRequestID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *redisStore) Delete(ctx context.Context, checkoutRequestID string) error {
	return s.client.Del(ctx, keyPrefix+checkoutRequestID).Err()
}
