package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"sakeai/searchservice/internal/domain"
)

const redisRankingKey = "sakesearch:ranking:top"

// RedisRankingBackend shares the popularity ranking between replicas via
// Redis with JSON serialization.
type RedisRankingBackend struct {
	client *redis.Client
}

func NewRedisRankingBackend(client *redis.Client) *RedisRankingBackend {
	return &RedisRankingBackend{client: client}
}

func (r *RedisRankingBackend) Get(ctx context.Context) ([]domain.Item, bool, error) {
	data, err := r.client.Get(ctx, redisRankingKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (r *RedisRankingBackend) Set(ctx context.Context, items []domain.Item, ttl time.Duration) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisRankingKey, data, ttl).Err()
}

func (r *RedisRankingBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
