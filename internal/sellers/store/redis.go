package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
)

const recordPrefix = "sellers:cache:"

// RedisStore keeps records as opaque JSON blobs under one key per domain.
// It deliberately does not implement MembershipQueryable: lookups against
// this backend always take the full-document path.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, dom string) (*domain.CacheRecord, error) {
	key := fmt.Sprintf("%s%s", recordPrefix, dom)

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache record: %w", err)
	}

	var record domain.CacheRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("failed to decode cache record: %w", err)
	}

	return &record, nil
}

func (s *RedisStore) Put(ctx context.Context, record *domain.CacheRecord) error {
	key := fmt.Sprintf("%s%s", recordPrefix, record.Domain)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode cache record: %w", err)
	}

	// No key TTL: staleness is decided on read and retention belongs to
	// the deployment, so records outlive their freshness window.
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put cache record: %w", err)
	}

	return nil
}
