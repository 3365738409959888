package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/internal/repository"
)

// EventPublisher announces recomputed aggregates to downstream consumers.
// Implementations are fire-and-forget: publish failures are absorbed inside
// the publisher and never reach the services.
type EventPublisher interface {
	PublishRatingChanged(ctx context.Context, stallID int64, agg domain.RatingAggregate)
	PublishPriceChanged(ctx context.Context, stallID int64, agg domain.PriceAggregate)
}

// RatingService recomputes a stall's rating aggregate from its full review
// set. The aggregate is always rebuilt from a fresh scan, never patched with
// deltas, so a missed update can be repaired by simply recomputing again.
type RatingService struct {
	reviews   repository.ReviewRepository
	stalls    repository.StallRepository
	publisher EventPublisher
	logger    *slog.Logger
}

// NewRatingService creates a new rating recomputation service.
func NewRatingService(reviews repository.ReviewRepository, stalls repository.StallRepository, publisher EventPublisher, logger *slog.Logger) *RatingService {
	return &RatingService{
		reviews:   reviews,
		stalls:    stalls,
		publisher: publisher,
		logger:    logger,
	}
}

// Recalculate rebuilds the rating aggregate for one stall, persists it and
// announces the new value. The stall write happens before the publish attempt
// so a consumer reacting to the event always finds at least the announced
// value in the store. A nonexistent stall fails fast without writing or
// publishing; a store failure aborts before any event is sent.
func (s *RatingService) Recalculate(ctx context.Context, stallID int64) (domain.RatingAggregate, error) {
	if _, err := s.stalls.GetByID(ctx, stallID); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("get stall %d: %w", stallID, err)
	}

	reviews, err := s.reviews.ListAllByStallID(ctx, stallID)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("list reviews for stall %d: %w", stallID, err)
	}

	agg := domain.ComputeRatingAggregate(reviews)

	if err := s.stalls.UpdateRatingAggregate(ctx, stallID, agg); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("persist rating aggregate for stall %d: %w", stallID, err)
	}

	s.publisher.PublishRatingChanged(ctx, stallID, agg)

	s.logger.InfoContext(ctx, "rating aggregate recomputed",
		slog.Int64("stall_id", stallID),
		slog.Float64("average_rating", agg.AverageRating),
		slog.Int64("review_count", agg.ReviewCount),
	)

	return agg, nil
}

// RecalculateAll rebuilds the rating aggregate for every stall. Per-stall
// failures are logged and collected but do not stop the sweep; this is the
// repair path for aggregates that drifted through lost updates.
func (s *RatingService) RecalculateAll(ctx context.Context) error {
	ids, err := s.stalls.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list stall ids: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if _, err := s.Recalculate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "rating recomputation failed for stall",
				slog.Int64("stall_id", id),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("stall %d: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

// Distribution returns the per-value rating counts for one stall.
func (s *RatingService) Distribution(ctx context.Context, stallID int64) (domain.RatingDistribution, error) {
	if _, err := s.stalls.GetByID(ctx, stallID); err != nil {
		return nil, fmt.Errorf("get stall %d: %w", stallID, err)
	}

	reviews, err := s.reviews.ListAllByStallID(ctx, stallID)
	if err != nil {
		return nil, fmt.Errorf("list reviews for stall %d: %w", stallID, err)
	}

	return domain.ComputeRatingDistribution(reviews), nil
}
