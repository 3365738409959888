package event

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/nushungry/review-service/internal/domain"
	pkgkafka "github.com/nushungry/review-service/pkg/kafka"
)

// Aggregate type constant.
const AggregateTypeStall = "stall"

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// Event type constants for review domain events. The full topic name is the
// deployment namespace joined with these suffixes.
const (
	EventTypeRatingChanged = "review.rating.changed"
	EventTypePriceChanged  = "review.price.changed"
)

// RatingChangedData is the payload for a review.rating.changed event.
type RatingChangedData struct {
	StallID          int64     `json:"stallId"`
	NewAverageRating float64   `json:"newAverageRating"`
	ReviewCount      int64     `json:"reviewCount"`
	Timestamp        time.Time `json:"timestamp"`
}

// PriceChangedData is the payload for a review.price.changed event.
type PriceChangedData struct {
	StallID         int64     `json:"stallId"`
	NewAveragePrice float64   `json:"newAveragePrice"`
	PriceCount      int64     `json:"priceCount"`
	Timestamp       time.Time `json:"timestamp"`
}

// Sink is the broker client the producer writes through.
type Sink interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka. Delivery is best-effort:
// every failure between here and the broker is logged and suppressed, so a
// broker outage can never fail the review mutation that triggered the event.
// Consumers that need stronger guarantees reconcile by re-reading aggregates.
type Producer struct {
	sink        Sink
	ratingTopic string
	priceTopic  string
	logger      *slog.Logger
}

// NewProducer creates a new event producer for the review service. The
// namespace is the deployment-level topic prefix, e.g. "nushungry".
func NewProducer(sink Sink, namespace string, logger *slog.Logger) *Producer {
	return &Producer{
		sink:        sink,
		ratingTopic: pkgkafka.Topic(namespace, "review", "rating.changed"),
		priceTopic:  pkgkafka.Topic(namespace, "review", "price.changed"),
		logger:      logger,
	}
}

// PublishRatingChanged announces a stall's recomputed rating aggregate.
func (p *Producer) PublishRatingChanged(ctx context.Context, stallID int64, agg domain.RatingAggregate) {
	data := RatingChangedData{
		StallID:          stallID,
		NewAverageRating: agg.AverageRating,
		ReviewCount:      agg.ReviewCount,
		Timestamp:        time.Now().UTC(),
	}

	p.publish(ctx, p.ratingTopic, EventTypeRatingChanged, stallID, data)
}

// PublishPriceChanged announces a stall's recomputed price aggregate.
func (p *Producer) PublishPriceChanged(ctx context.Context, stallID int64, agg domain.PriceAggregate) {
	data := PriceChangedData{
		StallID:         stallID,
		NewAveragePrice: agg.AveragePrice,
		PriceCount:      agg.PriceCount,
		Timestamp:       time.Now().UTC(),
	}

	p.publish(ctx, p.priceTopic, EventTypePriceChanged, stallID, data)
}

// publish builds the envelope and hands it to the sink, absorbing any failure.
func (p *Producer) publish(ctx context.Context, topic, eventType string, stallID int64, data any) {
	event, err := pkgkafka.NewEvent(eventType, strconv.FormatInt(stallID, 10), AggregateTypeStall, SourceReviewService, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event, dropping",
			slog.String("event_type", eventType),
			slog.Int64("stall_id", stallID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := p.sink.Publish(ctx, topic, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event, dropping",
			slog.String("event_type", eventType),
			slog.String("topic", topic),
			slog.Int64("stall_id", stallID),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("topic", topic),
		slog.Int64("stall_id", stallID),
	)
}
