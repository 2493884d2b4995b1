package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mgreer/candy-depot/internal/core/domain"
)

const (
	offerKeyPrefix = "restock:cheapest:"
	offerKeyTTL    = 10 * time.Minute
)

// RedisAdapter caches cheapest-offer lookups. Every value it holds can be
// recomputed from the store, so staleness is bounded by the TTL and by
// explicit invalidation on catalog mutations.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func offerKey(itemID int64) string {
	return offerKeyPrefix + strconv.FormatInt(itemID, 10)
}

func (r *RedisAdapter) GetCheapestOffer(ctx context.Context, itemID int64) (*domain.ItemOffer, bool, error) {
	val, err := r.client.Get(ctx, offerKey(itemID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var offer domain.ItemOffer
	if err := json.Unmarshal(val, &offer); err != nil {
		return nil, false, err
	}
	return &offer, true, nil
}

func (r *RedisAdapter) SetCheapestOffer(ctx context.Context, itemID int64, offer domain.ItemOffer) error {
	val, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, offerKey(itemID), val, offerKeyTTL).Err()
}

func (r *RedisAdapter) InvalidateItem(ctx context.Context, itemID int64) error {
	return r.client.Del(ctx, offerKey(itemID)).Err()
}

func (r *RedisAdapter) InvalidateAll(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, offerKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
