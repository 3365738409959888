// Package catalog keeps a denormalized copy of stall aggregates in Redis so
// catalog listings can show ratings and prices without querying the review
// database. It is fed by the rating and price change events the review
// service publishes.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/nushungry/review-service/pkg/errors"
)

const keyPrefix = "stall:summary:"

// StallSummary is the denormalized aggregate snapshot stored per stall.
type StallSummary struct {
	StallID       int64     `json:"stall_id"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int64     `json:"review_count"`
	AveragePrice  float64   `json:"average_price"`
	PriceCount    int64     `json:"price_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store persists stall summaries.
type Store interface {
	Get(ctx context.Context, stallID int64) (*StallSummary, error)
	Save(ctx context.Context, summary *StallSummary) error
}

// RedisStore implements Store on top of Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed summary store. Summaries expire after
// the given TTL so stalls that stop receiving events eventually age out.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func summaryKey(stallID int64) string {
	return keyPrefix + strconv.FormatInt(stallID, 10)
}

// Get retrieves a stall summary by stall ID.
func (s *RedisStore) Get(ctx context.Context, stallID int64) (*StallSummary, error) {
	data, err := s.client.Get(ctx, summaryKey(stallID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("stall summary", strconv.FormatInt(stallID, 10))
		}
		return nil, fmt.Errorf("redis get stall summary: %w", err)
	}

	var summary StallSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal stall summary: %w", err)
	}

	return &summary, nil
}

// Save persists a stall summary with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, summary *StallSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal stall summary: %w", err)
	}

	if err := s.client.Set(ctx, summaryKey(summary.StallID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stall summary: %w", err)
	}

	return nil
}
