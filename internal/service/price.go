package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nushungry/review-service/internal/domain"
	"github.com/nushungry/review-service/internal/repository"
)

// PriceService recomputes a stall's per-capita price aggregate from its full
// review set. It is deliberately independent of RatingService: the two are
// triggered together by review mutations but fail and recover separately.
type PriceService struct {
	reviews   repository.ReviewRepository
	stalls    repository.StallRepository
	publisher EventPublisher
	logger    *slog.Logger
}

// NewPriceService creates a new price recomputation service.
func NewPriceService(reviews repository.ReviewRepository, stalls repository.StallRepository, publisher EventPublisher, logger *slog.Logger) *PriceService {
	return &PriceService{
		reviews:   reviews,
		stalls:    stalls,
		publisher: publisher,
		logger:    logger,
	}
}

// Recalculate rebuilds the price aggregate for one stall, persists it and
// announces the new value. Ordering matches RatingService.Recalculate: stall
// existence check, full review scan, aggregate write, then best-effort publish.
func (s *PriceService) Recalculate(ctx context.Context, stallID int64) (domain.PriceAggregate, error) {
	if _, err := s.stalls.GetByID(ctx, stallID); err != nil {
		return domain.PriceAggregate{}, fmt.Errorf("get stall %d: %w", stallID, err)
	}

	reviews, err := s.reviews.ListAllByStallID(ctx, stallID)
	if err != nil {
		return domain.PriceAggregate{}, fmt.Errorf("list reviews for stall %d: %w", stallID, err)
	}

	agg := domain.ComputePriceAggregate(reviews)

	if err := s.stalls.UpdatePriceAggregate(ctx, stallID, agg); err != nil {
		return domain.PriceAggregate{}, fmt.Errorf("persist price aggregate for stall %d: %w", stallID, err)
	}

	s.publisher.PublishPriceChanged(ctx, stallID, agg)

	s.logger.InfoContext(ctx, "price aggregate recomputed",
		slog.Int64("stall_id", stallID),
		slog.Float64("average_price", agg.AveragePrice),
		slog.Int64("price_count", agg.PriceCount),
	)

	return agg, nil
}

// RecalculateAll rebuilds the price aggregate for every stall, logging and
// collecting per-stall failures without stopping the sweep.
func (s *PriceService) RecalculateAll(ctx context.Context) error {
	ids, err := s.stalls.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list stall ids: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if _, err := s.Recalculate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "price recomputation failed for stall",
				slog.Int64("stall_id", id),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("stall %d: %w", id, err))
		}
	}

	return errors.Join(errs...)
}
