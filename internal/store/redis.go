package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
)

const (
	// summaryKey holds the cached contact summary list as JSON.
	summaryKey = "contacts:summary"

	// summaryTTL bounds staleness when an invalidation is missed.
	summaryTTL = 30 * time.Second
)

// RedisStore caches the contact summary projection and backs the request
// rate limiter. Correctness never depends on it: every method degrades to
// a cache miss on failure.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for the rate limiter middleware.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// GetContactSummaries returns the cached summary list, or (nil, nil) on a
// cache miss.
func (s *RedisStore) GetContactSummaries(ctx context.Context) ([]models.ContactSummary, error) {
	data, err := s.client.Get(ctx, summaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var summaries []models.ContactSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		// Stale or corrupt entry: drop it and treat as a miss.
		s.client.Del(ctx, summaryKey)
		return nil, nil
	}
	return summaries, nil
}

// SetContactSummaries caches the summary list with a short TTL.
func (s *RedisStore) SetContactSummaries(ctx context.Context, summaries []models.ContactSummary) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, summaryKey, data, summaryTTL).Err()
}

// InvalidateContactSummaries drops the cached summary list. Called after
// every write so readers never see a pre-write projection past the TTL.
func (s *RedisStore) InvalidateContactSummaries(ctx context.Context) error {
	return s.client.Del(ctx, summaryKey).Err()
}
