// Package push stores browser push subscriptions and fans notification
// payloads out to them. Delivery is best-effort: failures are never
// surfaced to user-facing layers, and a failing endpoint prunes its own
// subscription.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/models"
)

const keyPrefix = "pushsub:"

// StoredSubscription pairs a subscription with its store key so fan-out
// failures can delete the exact record.
type StoredSubscription struct {
	ID           string
	Subscription models.PushSubscription
}

//go:generate mockgen -source=store.go -destination=mocks/store.go -package=mocks

// Store is the key-value persistence for push subscriptions. Operations
// are atomic per key but not transactional across keys; a record deleted
// between List and delivery is simply skipped.
type Store interface {
	Save(ctx context.Context, sub *models.PushSubscription) (string, error)
	List(ctx context.Context) ([]StoredSubscription, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each subscription under its own TTL-bounded key, so
// stale registrations age out without any bookkeeping.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) Save(ctx context.Context, sub *models.PushSubscription) (string, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal subscription: %w", err)
	}

	id := uuid.New().String()
	if err := s.client.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store subscription: %w", err)
	}
	return id, nil
}

func (s *RedisStore) List(ctx context.Context) ([]StoredSubscription, error) {
	var subs []StoredSubscription

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// Expired or deleted between scan and get.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read subscription %s: %w", key, err)
		}

		var sub models.PushSubscription
		if err := json.Unmarshal(data, &sub); err != nil {
			s.logger.Warn("Skipping undecodable subscription",
				zap.String("key", key),
				zap.Error(err))
			continue
		}

		subs = append(subs, StoredSubscription{
			ID:           key[len(keyPrefix):],
			Subscription: sub,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan subscriptions: %w", err)
	}

	return subs, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}
