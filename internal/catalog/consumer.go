package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nushungry/review-service/internal/event"
	apperrors "github.com/nushungry/review-service/pkg/errors"
	pkgkafka "github.com/nushungry/review-service/pkg/kafka"
)

// Consumer applies rating and price change events to the summary store.
type Consumer struct {
	store  Store
	logger *slog.Logger
}

// NewConsumer creates a new event consumer for the catalog sync worker.
func NewConsumer(store Store, logger *slog.Logger) *Consumer {
	return &Consumer{
		store:  store,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, evt *pkgkafka.Event) error {
	switch evt.EventType {
	case event.EventTypeRatingChanged:
		return c.handleRatingChanged(ctx, evt)
	case event.EventTypePriceChanged:
		return c.handlePriceChanged(ctx, evt)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", evt.EventType),
			slog.String("event_id", evt.EventID),
		)
		return nil
	}
}

// handleRatingChanged merges a recomputed rating aggregate into the summary.
func (c *Consumer) handleRatingChanged(ctx context.Context, evt *pkgkafka.Event) error {
	var data event.RatingChangedData
	if err := evt.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal rating.changed data: %w", err)
	}

	summary, err := c.loadOrInit(ctx, data.StallID)
	if err != nil {
		return err
	}

	summary.AverageRating = data.NewAverageRating
	summary.ReviewCount = data.ReviewCount
	summary.UpdatedAt = laterOf(summary.UpdatedAt, data.Timestamp)

	if err := c.store.Save(ctx, summary); err != nil {
		return fmt.Errorf("save summary from rating.changed: %w", err)
	}

	c.logger.InfoContext(ctx, "updated stall rating summary",
		slog.Int64("stall_id", data.StallID),
		slog.Float64("average_rating", data.NewAverageRating),
		slog.Int64("review_count", data.ReviewCount),
	)

	return nil
}

// handlePriceChanged merges a recomputed price aggregate into the summary.
func (c *Consumer) handlePriceChanged(ctx context.Context, evt *pkgkafka.Event) error {
	var data event.PriceChangedData
	if err := evt.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal price.changed data: %w", err)
	}

	summary, err := c.loadOrInit(ctx, data.StallID)
	if err != nil {
		return err
	}

	summary.AveragePrice = data.NewAveragePrice
	summary.PriceCount = data.PriceCount
	summary.UpdatedAt = laterOf(summary.UpdatedAt, data.Timestamp)

	if err := c.store.Save(ctx, summary); err != nil {
		return fmt.Errorf("save summary from price.changed: %w", err)
	}

	c.logger.InfoContext(ctx, "updated stall price summary",
		slog.Int64("stall_id", data.StallID),
		slog.Float64("average_price", data.NewAveragePrice),
		slog.Int64("price_count", data.PriceCount),
	)

	return nil
}

// loadOrInit fetches the current summary, starting a fresh one for stalls the
// worker has not seen yet.
func (c *Consumer) loadOrInit(ctx context.Context, stallID int64) (*StallSummary, error) {
	summary, err := c.store.Get(ctx, stallID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &StallSummary{StallID: stallID}, nil
		}
		return nil, fmt.Errorf("load stall summary: %w", err)
	}
	return summary, nil
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
