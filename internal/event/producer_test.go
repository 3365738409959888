package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nushungry/review-service/internal/domain"
	pkgkafka "github.com/nushungry/review-service/pkg/kafka"
)

// recordingSink captures published events for assertions.
type recordingSink struct {
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if s.err != nil {
		return s.err
	}
	s.topics = append(s.topics, topic)
	s.events = append(s.events, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProducer_PublishRatingChanged_TopicAndPayload(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(sink, "nushungry", testLogger())

	p.PublishRatingChanged(context.Background(), 42, domain.RatingAggregate{AverageRating: 4.2, ReviewCount: 5})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "nushungry.review.rating.changed", sink.topics[0])
	assert.Equal(t, EventTypeRatingChanged, sink.events[0].EventType)
	assert.Equal(t, "42", sink.events[0].AggregateID)
	assert.Equal(t, AggregateTypeStall, sink.events[0].AggregateType)
	assert.Equal(t, SourceReviewService, sink.events[0].Source)

	var data RatingChangedData
	require.NoError(t, sink.events[0].UnmarshalData(&data))
	assert.Equal(t, int64(42), data.StallID)
	assert.Equal(t, 4.2, data.NewAverageRating)
	assert.Equal(t, int64(5), data.ReviewCount)
	assert.False(t, data.Timestamp.IsZero())
}

func TestProducer_PublishPriceChanged_TopicAndPayload(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(sink, "nushungry", testLogger())

	p.PublishPriceChanged(context.Background(), 42, domain.PriceAggregate{AveragePrice: 7.59, PriceCount: 2})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "nushungry.review.price.changed", sink.topics[0])
	assert.Equal(t, EventTypePriceChanged, sink.events[0].EventType)

	var data PriceChangedData
	require.NoError(t, sink.events[0].UnmarshalData(&data))
	assert.Equal(t, int64(42), data.StallID)
	assert.Equal(t, 7.59, data.NewAveragePrice)
	assert.Equal(t, int64(2), data.PriceCount)
}

func TestProducer_PayloadFieldNamesAreStable(t *testing.T) {
	// Downstream consumers depend on these exact field names.
	sink := &recordingSink{}
	p := NewProducer(sink, "staging", testLogger())

	p.PublishRatingChanged(context.Background(), 7, domain.RatingAggregate{AverageRating: 3.5, ReviewCount: 2})
	p.PublishPriceChanged(context.Background(), 7, domain.PriceAggregate{AveragePrice: 5.25, PriceCount: 1})

	require.Len(t, sink.events, 2)

	var rating map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(sink.events[0].Data, &rating))
	assert.Contains(t, rating, "stallId")
	assert.Contains(t, rating, "newAverageRating")
	assert.Contains(t, rating, "reviewCount")
	assert.Contains(t, rating, "timestamp")

	var price map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(sink.events[1].Data, &price))
	assert.Contains(t, price, "stallId")
	assert.Contains(t, price, "newAveragePrice")
	assert.Contains(t, price, "priceCount")
	assert.Contains(t, price, "timestamp")
}

func TestProducer_NamespacePrefixesTopics(t *testing.T) {
	sink := &recordingSink{}
	p := NewProducer(sink, "staging", testLogger())

	p.PublishRatingChanged(context.Background(), 1, domain.RatingAggregate{})
	p.PublishPriceChanged(context.Background(), 1, domain.PriceAggregate{})

	assert.Equal(t, []string{"staging.review.rating.changed", "staging.review.price.changed"}, sink.topics)
}

func TestProducer_SinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker unreachable")}
	p := NewProducer(sink, "nushungry", testLogger())

	// Must not panic and must not surface the error in any way.
	p.PublishRatingChanged(context.Background(), 42, domain.RatingAggregate{AverageRating: 4.2, ReviewCount: 5})
	p.PublishPriceChanged(context.Background(), 42, domain.PriceAggregate{AveragePrice: 7.59, PriceCount: 2})

	assert.Empty(t, sink.events)
}
