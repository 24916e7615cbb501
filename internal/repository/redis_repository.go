package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each slot under its own key. Every write refreshes
// the TTL so an active session never expires mid-checkout.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisRepository) Get(ctx context.Context, sessionID string, slot Slot) ([]byte, error) {
	data, err := r.client.Get(ctx, slotKey(sessionID, slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisRepository) Put(ctx context.Context, sessionID string, slot Slot, data []byte) error {
	if err := r.client.Set(ctx, slotKey(sessionID, slot), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Apply runs inside MULTI/EXEC so readers never see a half-applied commit.
func (r *RedisRepository) Apply(ctx context.Context, sessionID string, commit Commit) error {
	if commit.empty() {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if dels := commit.deletes(); len(dels) > 0 {
			keys := make([]string, 0, len(dels))
			for _, s := range dels {
				keys = append(keys, slotKey(sessionID, s))
			}
			pipe.Del(ctx, keys...)
		}
		for s, data := range commit.Writes {
			pipe.Set(ctx, slotKey(sessionID, s), data, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit failed: %w", err)
	}
	return nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func slotKey(sessionID string, slot Slot) string {
	return fmt.Sprintf("storefront:%s:%s", sessionID, slot)
}
